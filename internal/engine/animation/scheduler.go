package animation

import (
	stdmath "math"
	"time"
)

// Scheduler maps an absolute clock onto frame numbers of a frame loop.
type Scheduler struct {
	start float32
	end   float32
	// fps is negative for backwards playback.
	fps  float32
	loop bool

	beginMs float64
	lastMs  float64
	current float32

	onEnd    func()
	endFired bool

	transition      time.Duration
	transitionStart float64
	transitioning   bool
}

// NewScheduler returns a scheduler playing [start, end] at fps, beginning
// at clock zero.
func NewScheduler(start, end, fps float32, loop bool) *Scheduler {
	if end < start {
		start, end = end, start
	}
	s := &Scheduler{start: start, end: end, fps: fps, loop: loop}
	s.current = s.firstFrame()
	return s
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// firstFrame is where playback begins for the current direction.
func (s *Scheduler) firstFrame() float32 {
	if s.fps < 0 {
		return s.end
	}
	return s.start
}

// Reset restarts playback at now.
func (s *Scheduler) Reset(now time.Duration) {
	s.rebase(s.firstFrame(), millis(now))
	s.endFired = false
}

// BuildFrameNumber returns the frame shown at now. A non-looping
// animation stops at its last frame and calls the end callback once.
func (s *Scheduler) BuildFrameNumber(now time.Duration) float32 {
	nowMs := millis(now)
	s.lastMs = nowMs

	if s.start == s.end || s.fps == 0 {
		s.current = s.start
		return s.current
	}

	speed := float64(abs32(s.fps))
	elapsed := nowMs - s.beginMs
	span := float64(s.end - s.start)

	if s.loop {
		loopMs := span * 1000 / speed
		off := stdmath.Mod(elapsed, loopMs)
		if off < 0 {
			off += loopMs
		}
		frames := float32(off * speed / 1000)
		if s.fps > 0 {
			s.current = min(s.start+frames, s.end)
		} else {
			s.current = max(s.end-frames, s.start)
		}
		return s.current
	}

	frames := float32(max(elapsed, 0) * speed / 1000)
	finished := false
	if s.fps > 0 {
		s.current = s.start + frames
		if s.current > s.end {
			s.current = s.end
			finished = true
		}
	} else {
		s.current = s.end - frames
		if s.current < s.start {
			s.current = s.start
			finished = true
		}
	}

	if finished && !s.endFired {
		s.endFired = true
		if s.onEnd != nil {
			s.onEnd()
		}
	}
	return s.current
}

// CurrentFrame returns the frame computed by the last BuildFrameNumber.
func (s *Scheduler) CurrentFrame() float32 { return s.current }

// SetCurrentFrame jumps to frame at now. With a transition time set, a
// transition from the previous pose begins.
func (s *Scheduler) SetCurrentFrame(frame float32, now time.Duration) {
	frame = min(max(frame, s.start), s.end)
	s.rebase(frame, millis(now))
	s.endFired = false

	if s.transition > 0 {
		s.transitioning = true
		s.transitionStart = millis(now)
	}
}

// rebase moves the begin time so that nowMs maps onto frame.
func (s *Scheduler) rebase(frame float32, nowMs float64) {
	s.lastMs = nowMs
	s.current = frame
	if s.fps == 0 {
		s.beginMs = nowMs
		return
	}
	speed := float64(abs32(s.fps))
	if s.fps > 0 {
		s.beginMs = nowMs - float64(frame-s.start)*1000/speed
	} else {
		s.beginMs = nowMs - float64(s.end-frame)*1000/speed
	}
}

// SetFrameLoop changes the played range and restarts at its first frame.
// Reversed bounds are swapped.
func (s *Scheduler) SetFrameLoop(start, end float32, now time.Duration) {
	if end < start {
		start, end = end, start
	}
	s.start, s.end = start, end
	s.rebase(s.firstFrame(), millis(now))
	s.endFired = false
}

// SetAnimationSpeed changes the playback rate, keeping the current frame.
func (s *Scheduler) SetAnimationSpeed(fps float32, now time.Duration) {
	frame := s.BuildFrameNumber(now)
	s.fps = fps
	s.rebase(frame, millis(now))
}

// SetLoopMode switches looping, keeping the current frame.
func (s *Scheduler) SetLoopMode(loop bool, now time.Duration) {
	if s.loop == loop {
		return
	}
	frame := s.BuildFrameNumber(now)
	s.loop = loop
	s.rebase(frame, millis(now))
	s.endFired = false
}

// SetTransitionTime sets how long SetCurrentFrame blends from the old pose.
// Zero disables transitions.
func (s *Scheduler) SetTransitionTime(d time.Duration) {
	s.transition = max(d, 0)
	if s.transition == 0 {
		s.transitioning = false
	}
}

// TransitionTime returns the transition length.
func (s *Scheduler) TransitionTime() time.Duration { return s.transition }

// SetEndCallback registers fn to run when a non-looping animation reaches
// its last frame.
func (s *Scheduler) SetEndCallback(fn func()) { s.onEnd = fn }

// TransitionRamp returns the transition progress in [0, 1] at now and
// whether a transition is still running.
func (s *Scheduler) TransitionRamp(now time.Duration) (float32, bool) {
	if !s.transitioning {
		return 1, false
	}
	r := (millis(now) - s.transitionStart) / millis(s.transition)
	if r >= 1 {
		s.transitioning = false
		return 1, false
	}
	return float32(max(r, 0)), true
}

// Transitioning reports whether a transition is running.
func (s *Scheduler) Transitioning() bool { return s.transitioning }

func (s *Scheduler) StartFrame() float32     { return s.start }
func (s *Scheduler) EndFrame() float32       { return s.end }
func (s *Scheduler) AnimationSpeed() float32 { return s.fps }
func (s *Scheduler) Looping() bool           { return s.loop }

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
