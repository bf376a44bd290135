package skeleton

import "github.com/Faultbox/skelanim/pkg/math"

// Pose is the animated state of one playback of a finalized skeleton.
// Several poses may share a skeleton.
type Pose struct {
	skel *Skeleton
	mode Interpolation

	positions []math.Vec3
	scales    []math.Vec3
	rotations []math.Quat
	local     []math.Mat4
	global    []math.Mat4
	// globalSpace marks joints whose local matrix is already in mesh space.
	globalSpace []bool
	cursors     []Cursor

	lastFrame float32
	evaluated bool
	version   uint64
}

// NewPose creates a pose in the bind configuration.
func NewPose(s *Skeleton) (*Pose, error) {
	if !s.finalized {
		return nil, ErrNotFinalized
	}

	n := len(s.joints)
	p := &Pose{
		skel:        s,
		positions:   make([]math.Vec3, n),
		scales:      make([]math.Vec3, n),
		rotations:   make([]math.Quat, n),
		local:       make([]math.Mat4, n),
		global:      make([]math.Mat4, n),
		globalSpace: make([]bool, n),
		cursors:     make([]Cursor, n),
	}
	for i := range s.joints {
		j := &s.joints[i]
		p.positions[i], p.rotations[i], p.scales[i] = j.LocalMatrix.Decompose()
		p.local[i] = j.LocalMatrix
		p.global[i] = j.GlobalMatrix
	}
	return p, nil
}

// Skeleton returns the skeleton the pose animates.
func (p *Pose) Skeleton() *Skeleton { return p.skel }

// SetInterpolation selects linear or constant key sampling.
func (p *Pose) SetInterpolation(mode Interpolation) {
	if p.mode != mode {
		p.mode = mode
		p.evaluated = false
	}
}

// Interpolation returns the sampling mode.
func (p *Pose) Interpolation() Interpolation { return p.mode }

// Animate moves the pose to frame. blend 1 replaces the previous pose,
// smaller values move towards the sampled pose by that fraction.
func (p *Pose) Animate(frame, blend float32) {
	if !p.skel.hasAnimation {
		return
	}
	if p.evaluated && frame == p.lastFrame {
		return
	}
	p.lastFrame = frame
	p.evaluated = true
	if blend <= 0 {
		return
	}

	for i := range p.skel.joints {
		p.sampleJoint(i, frame, blend)
	}
	p.BuildLocalMatrices()
	p.BuildGlobalMatrices()
}

func (p *Pose) sampleJoint(id int, frame, blend float32) {
	j := &p.skel.joints[id]
	c := &p.cursors[id]

	pos, posOK := j.Positions.Sample(frame, p.mode, &c.Position, math.Vec3.Lerp)
	scale, scaleOK := j.Scales.Sample(frame, p.mode, &c.Scale, math.Vec3.Lerp)
	rot, rotOK := j.Rotations.Sample(frame, p.mode, &c.Rotation, math.Quat.Slerp)

	if blend >= 1 {
		if posOK {
			p.positions[id] = pos
		}
		if scaleOK {
			p.scales[id] = scale
		}
		if rotOK {
			p.rotations[id] = rot
		}
		return
	}

	if posOK {
		p.positions[id] = p.positions[id].Lerp(pos, blend)
	}
	if scaleOK {
		p.scales[id] = p.scales[id].Lerp(scale, blend)
	}
	if rotOK {
		p.rotations[id] = p.rotations[id].Slerp(rot, blend)
	}
}

// BuildLocalMatrices rebuilds local matrices of keyed joints from the
// animated channels. Unkeyed joints keep their bind local matrix.
func (p *Pose) BuildLocalMatrices() {
	for i := range p.skel.joints {
		j := &p.skel.joints[i]
		p.globalSpace[i] = false
		if !j.HasKeys() {
			p.local[i] = j.LocalMatrix
			continue
		}
		m := math.Translate(p.positions[i].X, p.positions[i].Y, p.positions[i].Z).
			Mul(p.rotations[i].ToMat4())
		if j.Scales.Len() > 0 {
			s := p.scales[i]
			m = m.Mul(math.Scale(s.X, s.Y, s.Z))
		}
		p.local[i] = m
	}
}

// BuildGlobalMatrices composes local matrices down the hierarchy.
func (p *Pose) BuildGlobalMatrices() {
	for _, id := range p.skel.order {
		parent := p.skel.joints[id].Parent
		if parent == NoJoint || p.globalSpace[id] {
			p.global[id] = p.local[id]
		} else {
			p.global[id] = p.global[parent].Mul(p.local[id])
		}
	}
	p.version++
}

// SetJoint overrides a joint's animated transform. globalSpace places the
// joint directly in mesh space instead of below its parent. Call
// BuildGlobalMatrices once every joint has been set.
func (p *Pose) SetJoint(id int, t math.Vec3, r math.Quat, s math.Vec3, globalSpace bool) {
	p.positions[id] = t
	p.rotations[id] = r
	p.scales[id] = s
	p.local[id] = math.FromTRS(t, r, s)
	p.globalSpace[id] = globalSpace
}

// Invalidate forces the next Animate call to sample again.
func (p *Pose) Invalidate() { p.evaluated = false }

// Frame returns the last frame passed to Animate.
func (p *Pose) Frame() float32 { return p.lastFrame }

// Version changes every time the global matrices are rebuilt.
func (p *Pose) Version() uint64 { return p.version }

// Position returns the animated translation of a joint.
func (p *Pose) Position(id int) math.Vec3 { return p.positions[id] }

// Rotation returns the animated rotation of a joint.
func (p *Pose) Rotation(id int) math.Quat { return p.rotations[id] }

// Scale returns the animated scale of a joint.
func (p *Pose) Scale(id int) math.Vec3 { return p.scales[id] }

// LocalMatrix returns the animated local matrix of a joint.
func (p *Pose) LocalMatrix(id int) math.Mat4 { return p.local[id] }

// GlobalMatrix returns the animated mesh-space matrix of a joint.
func (p *Pose) GlobalMatrix(id int) math.Mat4 { return p.global[id] }
