package scene

import (
	stdmath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/skelanim/internal/engine/skeleton"
	"github.com/Faultbox/skelanim/pkg/math"
)

const eps = 1e-5

// near compares component-wise with an absolute tolerance.
func near(a, b mgl32.Vec3) bool {
	return EngineVec3(a).ApproxEqual(EngineVec3(b), eps)
}

func armSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	s := skeleton.New()
	root, err := s.CreateJoint("root", skeleton.NoJoint)
	if err != nil {
		t.Fatal(err)
	}
	child, err := s.CreateJoint("child", root)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetLocalMatrix(child, math.Translate(0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBuildJointNodes(t *testing.T) {
	nodes := BuildJointNodes(armSkeleton(t))

	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
	root, child := nodes[0], nodes[1]
	if root.Name != "root" || child.Name != "child" || child.Index != 1 {
		t.Errorf("names = %q %q, index %d", root.Name, child.Name, child.Index)
	}
	if child.Parent != root || len(root.Children) != 1 {
		t.Error("child not linked below root")
	}
	if !near(child.Position, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("child position = %v, want (0, 1, 0)", child.Position)
	}
	if !near(child.AbsolutePosition(), mgl32.Vec3{0, 1, 0}) {
		t.Errorf("child absolute = %v, want (0, 1, 0)", child.AbsolutePosition())
	}
}

func TestJointNode_UpdateAbsolute(t *testing.T) {
	tests := []struct {
		name  string
		space SkinningSpace
		want  mgl32.Vec3
	}{
		{"local follows parent", SpaceLocal, mgl32.Vec3{-1, 0, 0}},
		{"global ignores parent", SpaceGlobal, mgl32.Vec3{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := BuildJointNodes(armSkeleton(t))
			root, child := nodes[0], nodes[1]

			root.Rotation = mgl32.QuatRotate(stdmath.Pi/2, mgl32.Vec3{0, 0, 1})
			child.Space = tt.space
			root.UpdateAbsolute()

			if got := child.AbsolutePosition(); !near(got, tt.want) {
				t.Errorf("child absolute = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJointNode_RelativeTransformation(t *testing.T) {
	n := NewJointNode("n", 0)
	n.Position = mgl32.Vec3{1, 2, 3}
	n.Scale = mgl32.Vec3{2, 2, 2}

	got := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, n.RelativeTransformation())
	if want := (mgl32.Vec3{3, 2, 3}); !near(got, want) {
		t.Errorf("transformed = %v, want %v", got, want)
	}
}

func TestConversions(t *testing.T) {
	v := math.Vec3{X: 1, Y: -2, Z: 3}
	if got := EngineVec3(Vec3(v)); got != v {
		t.Errorf("vector round trip = %v, want %v", got, v)
	}

	q := math.QuatFromAxisAngle(math.Vec3{Y: 1}, 0.5)
	if got := EngineQuat(Quat(q)); got != q {
		t.Errorf("quaternion round trip = %v, want %v", got, q)
	}

	m := math.Translate(4, 5, 6)
	if got := Mat4(m).Col(3); got != (mgl32.Vec4{4, 5, 6, 1}) {
		t.Errorf("translation column = %v", got)
	}
}
