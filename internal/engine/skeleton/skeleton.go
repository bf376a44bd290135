// Package skeleton implements the joint hierarchy, keyframe tracks, pose
// evaluation and CPU vertex skinning of a skinned mesh.
//
// A loader fills a Skeleton through CreateJoint, Link and the Add* methods,
// then calls Finalize once with the mesh buffers the weights refer to. After
// that the skeleton is read-only; per-playback state lives in Pose values
// and the vertex pass bookkeeping lives in a Skinner.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/Faultbox/skelanim/pkg/math"
)

// NoJoint marks the absence of a parent joint.
const NoJoint = -1

var (
	// ErrUnknownJoint is returned for joint ids outside the skeleton.
	ErrUnknownJoint = errors.New("unknown joint")
	// ErrFinalized is returned when mutating a finalized skeleton.
	ErrFinalized = errors.New("skeleton already finalized")
	// ErrNotFinalized is returned when evaluating a skeleton before Finalize.
	ErrNotFinalized = errors.New("skeleton not finalized")
	// ErrCyclicHierarchy is returned when the joints do not form a forest.
	ErrCyclicHierarchy = errors.New("joint hierarchy is not a forest")
)

// Weight binds one vertex to a joint with a strength in [0, 1].
type Weight struct {
	Buffer   int
	Vertex   int
	Strength float32

	// Bind-pose vertex data, copied once at finalize.
	bindPosition math.Vec3
	bindNormal   math.Vec3
}

// BindPosition returns the vertex position captured at finalize.
func (w Weight) BindPosition() math.Vec3 { return w.bindPosition }

// BindNormal returns the vertex normal captured at finalize.
func (w Weight) BindNormal() math.Vec3 { return w.bindNormal }

// Joint is one node of the hierarchy.
type Joint struct {
	Name string
	// LocalMatrix is the bind-pose transform relative to the parent.
	LocalMatrix math.Mat4
	Parent      int
	Children    []int

	Positions Track[math.Vec3]
	Scales    Track[math.Vec3]
	Rotations Track[math.Quat]
	Weights   []Weight

	// GlobalMatrix is the bind-pose transform in mesh space.
	GlobalMatrix math.Mat4
	// InverseGlobalMatrix maps mesh space into the joint's bind space.
	InverseGlobalMatrix math.Mat4

	presetInverse bool
	attached      []int
}

// HasKeys reports whether any channel of the joint is animated.
func (j *Joint) HasKeys() bool {
	return j.Positions.Len() > 0 || j.Scales.Len() > 0 || j.Rotations.Len() > 0
}

// Skeleton owns the joints of one mesh in an arena indexed by joint id.
type Skeleton struct {
	joints []Joint
	roots  []int
	order  []int

	explicitRoots bool
	finalized     bool
	hasAnimation  bool
	frameCount    float32
}

// New returns an empty skeleton.
func New() *Skeleton {
	return &Skeleton{}
}

// CreateJoint appends a joint with an identity bind transform and returns
// its id. A parent other than NoJoint receives the new joint as a child.
func (s *Skeleton) CreateJoint(name string, parent int) (int, error) {
	if s.finalized {
		return NoJoint, ErrFinalized
	}
	if parent != NoJoint && !s.valid(parent) {
		return NoJoint, fmt.Errorf("parent %d: %w", parent, ErrUnknownJoint)
	}

	id := len(s.joints)
	s.joints = append(s.joints, Joint{
		Name:                name,
		LocalMatrix:         math.Identity(),
		Parent:              parent,
		GlobalMatrix:        math.Identity(),
		InverseGlobalMatrix: math.Identity(),
	})
	if parent != NoJoint {
		s.joints[parent].Children = append(s.joints[parent].Children, id)
	}
	return id, nil
}

// Link makes child a child of parent. Loaders that see children before
// parents create joints without a parent first and link them afterwards.
// Structural problems are reported by Finalize.
func (s *Skeleton) Link(parent, child int) error {
	if s.finalized {
		return ErrFinalized
	}
	if !s.valid(parent) || !s.valid(child) {
		return fmt.Errorf("link %d -> %d: %w", parent, child, ErrUnknownJoint)
	}
	s.joints[parent].Children = append(s.joints[parent].Children, child)
	s.joints[child].Parent = parent
	return nil
}

// SetRoots records an explicit root list. Without one, Finalize treats
// every joint that is nobody's child as a root.
func (s *Skeleton) SetRoots(roots []int) error {
	if s.finalized {
		return ErrFinalized
	}
	for _, r := range roots {
		if !s.valid(r) {
			return fmt.Errorf("root %d: %w", r, ErrUnknownJoint)
		}
	}
	s.roots = append([]int(nil), roots...)
	s.explicitRoots = true
	return nil
}

// SetLocalMatrix sets a joint's bind-pose local transform.
func (s *Skeleton) SetLocalMatrix(id int, m math.Mat4) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.LocalMatrix = m
	return nil
}

// SetInverseBindMatrix presets the inverse global bind matrix, as formats
// such as glTF store it explicitly. Finalize keeps preset values.
func (s *Skeleton) SetInverseBindMatrix(id int, m math.Mat4) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.InverseGlobalMatrix = m
	j.presetInverse = true
	return nil
}

// AddPositionKey appends a position key.
func (s *Skeleton) AddPositionKey(id int, frame float32, v math.Vec3) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.Positions.Add(frame, v)
	return nil
}

// AddScaleKey appends a scale key.
func (s *Skeleton) AddScaleKey(id int, frame float32, v math.Vec3) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.Scales.Add(frame, v)
	return nil
}

// AddRotationKey appends a rotation key.
func (s *Skeleton) AddRotationKey(id int, frame float32, q math.Quat) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.Rotations.Add(frame, q)
	return nil
}

// AddWeight binds vertex (buffer, vertex) to joint id. Out-of-range targets
// are accepted here and clamped with a warning by Finalize.
func (s *Skeleton) AddWeight(id, buffer, vertex int, strength float32) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.Weights = append(j.Weights, Weight{Buffer: buffer, Vertex: vertex, Strength: strength})
	return nil
}

// AttachBuffer rigidly attaches a whole buffer to a joint. Finalize moves
// the buffer into place with the joint's global bind matrix.
func (s *Skeleton) AttachBuffer(id, buffer int) error {
	j, err := s.mutable(id)
	if err != nil {
		return err
	}
	j.attached = append(j.attached, buffer)
	return nil
}

// JointCount returns the number of joints.
func (s *Skeleton) JointCount() int { return len(s.joints) }

// Joint returns the joint with the given id, or nil.
func (s *Skeleton) Joint(id int) *Joint {
	if !s.valid(id) {
		return nil
	}
	return &s.joints[id]
}

// JointByName returns the id of the first joint with the given name, or
// NoJoint.
func (s *Skeleton) JointByName(name string) int {
	for i := range s.joints {
		if s.joints[i].Name == name {
			return i
		}
	}
	return NoJoint
}

// Roots returns the root joint ids.
func (s *Skeleton) Roots() []int { return s.roots }

// Order returns joint ids in preorder, parents before children. Valid after
// Finalize.
func (s *Skeleton) Order() []int { return s.order }

// Finalized reports whether Finalize has completed.
func (s *Skeleton) Finalized() bool { return s.finalized }

// HasAnimation reports whether any joint has keys or weights.
func (s *Skeleton) HasAnimation() bool { return s.hasAnimation }

// FrameCount returns the last key frame across all tracks.
func (s *Skeleton) FrameCount() float32 { return s.frameCount }

func (s *Skeleton) valid(id int) bool {
	return id >= 0 && id < len(s.joints)
}

func (s *Skeleton) mutable(id int) (*Joint, error) {
	if s.finalized {
		return nil, ErrFinalized
	}
	if !s.valid(id) {
		return nil, fmt.Errorf("joint %d: %w", id, ErrUnknownJoint)
	}
	return &s.joints[id], nil
}
