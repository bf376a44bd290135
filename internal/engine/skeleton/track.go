package skeleton

import "github.com/Faultbox/skelanim/pkg/math"

// Interpolation selects how a track is sampled between keys.
type Interpolation int

const (
	// Linear blends between the keys bracketing the frame.
	Linear Interpolation = iota
	// Constant holds the value of the key at or after the frame.
	Constant
)

func (m Interpolation) String() string {
	if m == Constant {
		return "constant"
	}
	return "linear"
}

// ParseInterpolation maps "linear" and "constant" to a mode.
func ParseInterpolation(s string) (Interpolation, bool) {
	switch s {
	case "linear":
		return Linear, true
	case "constant":
		return Constant, true
	}
	return Linear, false
}

// Key is one keyframe of a track.
type Key[T comparable] struct {
	Frame float32
	Value T
}

// Keyframe types for the three channels.
type (
	PositionKey = Key[math.Vec3]
	ScaleKey    = Key[math.Vec3]
	RotationKey = Key[math.Quat]
)

// Track is the key sequence of one joint channel. After Finalize the frames
// are strictly increasing.
type Track[T comparable] struct {
	Keys []Key[T]
}

// Add appends a key.
func (t *Track[T]) Add(frame float32, v T) {
	t.Keys = append(t.Keys, Key[T]{Frame: frame, Value: v})
}

// Len returns the number of keys.
func (t *Track[T]) Len() int { return len(t.Keys) }

// LastFrame returns the frame of the last key, or 0 for an empty track.
func (t *Track[T]) LastFrame() float32 {
	if len(t.Keys) == 0 {
		return 0
	}
	return t.Keys[len(t.Keys)-1].Frame
}

// Sample evaluates the track at frame. hint is the caller's search cursor:
// it is checked first and updated with the index found. ok is false for an
// empty track, in which case the caller keeps its previous value.
func (t *Track[T]) Sample(frame float32, mode Interpolation, hint *int, interp func(a, b T, f float32) T) (v T, ok bool) {
	keys := t.Keys
	if len(keys) == 0 {
		return v, false
	}

	found := -1
	if h := *hint; h >= 0 && h < len(keys) {
		if h > 0 && keys[h].Frame >= frame && keys[h-1].Frame < frame {
			found = h
		} else if h+1 < len(keys) && keys[h+1].Frame >= frame && keys[h].Frame < frame {
			found = h + 1
		}
	}

	if found == -1 {
		for i := range keys {
			if keys[i].Frame >= frame {
				found = i
				break
			}
		}
	}

	// Past the last key the channel holds the last value.
	if found == -1 {
		*hint = len(keys) - 1
		return keys[len(keys)-1].Value, true
	}
	*hint = found

	a := keys[found]
	if mode == Constant || found == 0 || a.Frame == frame {
		return a.Value, true
	}

	b := keys[found-1]
	span := a.Frame - b.Frame
	// Two keys on one frame: snap to the later key.
	if span <= 0 {
		return a.Value, true
	}
	return interp(b.Value, a.Value, (frame-b.Frame)/span), true
}

// prune drops out-of-order keys and the middle of every run of three equal
// values, leaving strictly increasing frames.
func (t *Track[T]) prune() (dropped int) {
	if len(t.Keys) == 0 {
		return 0
	}

	ordered := t.Keys[:1]
	for _, k := range t.Keys[1:] {
		if k.Frame <= ordered[len(ordered)-1].Frame {
			dropped++
			continue
		}
		ordered = append(ordered, k)
	}

	out := ordered[:0]
	for i, k := range ordered {
		n := len(out)
		if n >= 1 && i+1 < len(ordered) &&
			out[n-1].Value == k.Value && ordered[i+1].Value == k.Value {
			dropped++
			continue
		}
		out = append(out, k)
	}
	t.Keys = out
	return dropped
}

// Cursor holds the per-playback search hints for one joint's tracks.
type Cursor struct {
	Position int
	Scale    int
	Rotation int
}
