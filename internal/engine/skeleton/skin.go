package skeleton

import (
	"errors"
	"fmt"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/pkg/math"
)

// Skinner deforms mesh buffers with the joint matrices of a pose.
type Skinner struct {
	skel *Skeleton

	// stamps[buffer][vertex] holds the pass that last wrote the vertex.
	stamps [][]uint32
	pass   uint32

	animateNormals bool

	lastPose    *Pose
	lastVersion uint64
}

// NewSkinner allocates pass bookkeeping for buffers shaped like the ones
// the skeleton was finalized with.
func NewSkinner(s *Skeleton, buffers []*meshbuf.Buffer) (*Skinner, error) {
	if !s.finalized {
		return nil, ErrNotFinalized
	}
	k := &Skinner{
		skel:           s,
		stamps:         make([][]uint32, len(buffers)),
		animateNormals: true,
	}
	for i, b := range buffers {
		k.stamps[i] = make([]uint32, b.Len())
	}
	return k, nil
}

// SetAnimateNormals toggles normal skinning.
func (k *Skinner) SetAnimateNormals(on bool) {
	if k.animateNormals != on {
		k.animateNormals = on
		k.lastPose = nil
	}
}

// AnimateNormals reports whether normals are skinned.
func (k *Skinner) AnimateNormals() bool { return k.animateNormals }

// Reset forces the next Skin call to run even if the pose is unchanged.
func (k *Skinner) Reset() { k.lastPose = nil }

// Skin writes the deformed positions, and normals if enabled, into buffers
// and refreshes their bounding boxes. Vertices without weights keep their
// current data.
func (k *Skinner) Skin(p *Pose, buffers []*meshbuf.Buffer) error {
	if p.skel != k.skel {
		return errors.New("skin: pose belongs to another skeleton")
	}
	if len(buffers) != len(k.stamps) {
		return fmt.Errorf("skin: got %d buffers, want %d", len(buffers), len(k.stamps))
	}
	for i, b := range buffers {
		if b.Len() != len(k.stamps[i]) {
			return fmt.Errorf("skin: buffer %d has %d vertices, want %d", i, b.Len(), len(k.stamps[i]))
		}
	}
	if p == k.lastPose && p.version == k.lastVersion {
		return nil
	}

	k.nextPass()

	for _, id := range k.skel.order {
		j := &k.skel.joints[id]
		if len(j.Weights) == 0 {
			continue
		}
		delta := p.global[id].Mul(j.InverseGlobalMatrix)

		for _, w := range j.Weights {
			v := buffers[w.Buffer].Vertices
			pos := delta.TransformPoint(w.bindPosition).Scale(w.Strength)

			var normal math.Vec3
			if k.animateNormals {
				normal = delta.TransformDirection(w.bindNormal).Scale(w.Strength)
			}

			stamp := &k.stamps[w.Buffer][w.Vertex]
			if *stamp != k.pass {
				*stamp = k.pass
				v.SetPosition(w.Vertex, pos)
				if k.animateNormals {
					v.SetNormal(w.Vertex, normal)
				}
				continue
			}
			v.SetPosition(w.Vertex, v.Position(w.Vertex).Add(pos))
			if k.animateNormals {
				v.SetNormal(w.Vertex, v.Normal(w.Vertex).Add(normal))
			}
		}
	}

	for _, b := range buffers {
		b.RecalculateBounds()
	}

	k.lastPose = p
	k.lastVersion = p.version
	return nil
}

// nextPass advances the pass id. Stamps are cleared only when it wraps.
func (k *Skinner) nextPass() {
	k.pass++
	if k.pass != 0 {
		return
	}
	for _, s := range k.stamps {
		clear(s)
	}
	k.pass = 1
}
