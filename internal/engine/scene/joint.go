// Package scene provides the caller-owned transform nodes that expose the
// joints of an animated mesh.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/skelanim/internal/engine/skeleton"
	"github.com/Faultbox/skelanim/pkg/math"
)

// SkinningSpace says how a joint node's transform is written back into the
// mesh.
type SkinningSpace int

const (
	// SpaceLocal places the joint relative to its parent.
	SpaceLocal SkinningSpace = iota
	// SpaceGlobal places the joint directly in mesh space.
	SpaceGlobal
)

// JointNode mirrors one joint of a skinned mesh.
type JointNode struct {
	Name  string
	Index int

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Space    SkinningSpace

	Parent   *JointNode
	Children []*JointNode

	absolute mgl32.Mat4
}

// NewJointNode returns a node at the identity transform.
func NewJointNode(name string, index int) *JointNode {
	return &JointNode{
		Name:     name,
		Index:    index,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		absolute: mgl32.Ident4(),
	}
}

// AddChild links child below n.
func (n *JointNode) AddChild(child *JointNode) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// RelativeTransformation returns T * R * S.
func (n *JointNode) RelativeTransformation() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(n.Rotation.Normalize().Mat4()).Mul4(s)
}

// UpdateAbsolute recomputes the absolute transform of n and its subtree.
func (n *JointNode) UpdateAbsolute() {
	stack := []*JointNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rel := cur.RelativeTransformation()
		if cur.Parent != nil && cur.Space == SpaceLocal {
			cur.absolute = cur.Parent.absolute.Mul4(rel)
		} else {
			cur.absolute = rel
		}
		stack = append(stack, cur.Children...)
	}
}

// AbsoluteTransformation returns the transform computed by the last
// UpdateAbsolute call.
func (n *JointNode) AbsoluteTransformation() mgl32.Mat4 { return n.absolute }

// AbsolutePosition returns the translation of the absolute transform.
func (n *JointNode) AbsolutePosition() mgl32.Vec3 { return n.absolute.Col(3).Vec3() }

// BuildJointNodes creates one node per joint, linked like the skeleton.
// The slice is indexed by joint id.
func BuildJointNodes(s *skeleton.Skeleton) []*JointNode {
	nodes := make([]*JointNode, s.JointCount())
	for i := range nodes {
		j := s.Joint(i)
		nodes[i] = NewJointNode(j.Name, i)
		t, r, sc := j.LocalMatrix.Decompose()
		nodes[i].Position = Vec3(t)
		nodes[i].Rotation = Quat(r)
		nodes[i].Scale = Vec3(sc)
	}
	for i := range nodes {
		if p := s.Joint(i).Parent; p != skeleton.NoJoint {
			nodes[p].AddChild(nodes[i])
		}
	}
	for _, r := range s.Roots() {
		nodes[r].UpdateAbsolute()
	}
	return nodes
}

// Vec3 converts an engine vector.
func Vec3(v math.Vec3) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

// Quat converts an engine quaternion.
func Quat(q math.Quat) mgl32.Quat { return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}} }

// Mat4 converts an engine matrix. Both are column-major.
func Mat4(m math.Mat4) mgl32.Mat4 { return mgl32.Mat4(m) }

// EngineVec3 converts back to an engine vector.
func EngineVec3(v mgl32.Vec3) math.Vec3 { return math.Vec3{X: v[0], Y: v[1], Z: v[2]} }

// EngineQuat converts back to an engine quaternion.
func EngineQuat(q mgl32.Quat) math.Quat { return math.Quat{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W} }
