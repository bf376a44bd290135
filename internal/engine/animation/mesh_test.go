package animation

import (
	"errors"
	stdmath "math"
	"testing"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/internal/engine/scene"
	"github.com/Faultbox/skelanim/internal/engine/skeleton"
	"github.com/Faultbox/skelanim/pkg/math"
)

// armMesh builds a root without keys and a child one unit above it that
// turns 90 degrees about Z between frames 0 and 10, with one vertex at
// (0, 2, 0) bound to the child.
func armMesh(t *testing.T) *Mesh {
	t.Helper()
	s := skeleton.New()
	root, _ := s.CreateJoint("root", skeleton.NoJoint)
	child, _ := s.CreateJoint("child", root)
	_ = s.SetLocalMatrix(child, math.Translate(0, 1, 0))
	_ = s.AddRotationKey(child, 0, math.QuatIdentity())
	_ = s.AddRotationKey(child, 10, math.QuatFromAxisAngle(math.Vec3{Z: 1}, stdmath.Pi/2))
	_ = s.AddWeight(child, 0, 0, 1)

	v := meshbuf.StandardVertices{{Position: math.Vec3{Y: 2}, Normal: math.Vec3{Y: 1}}}
	m, err := NewMesh(s, []*meshbuf.Buffer{meshbuf.New(v, []uint32{0})})
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	return m
}

func vertex(buffers []*meshbuf.Buffer) math.Vec3 {
	return buffers[0].Vertices.Position(0)
}

var (
	h        = float32(stdmath.Sqrt2 / 2)
	at0      = math.Vec3{Y: 2}
	at45     = math.Vec3{X: -h, Y: 1 + h}
	at90     = math.Vec3{X: -1, Y: 1}
	vecDelta = float32(1e-5)
)

func TestNewMesh_Error(t *testing.T) {
	s := skeleton.New()
	a, _ := s.CreateJoint("a", skeleton.NoJoint)
	b, _ := s.CreateJoint("b", skeleton.NoJoint)
	_ = s.Link(a, b)
	_ = s.Link(b, a)

	if _, err := NewMesh(s, nil); !errors.Is(err, skeleton.ErrCyclicHierarchy) {
		t.Errorf("got %v, want ErrCyclicHierarchy", err)
	}
}

func TestMesh_GetMesh(t *testing.T) {
	tests := []struct {
		name      string
		frame     float32
		startLoop float32
		endLoop   float32
		want      math.Vec3
	}{
		{"frame 0", 0, 0, 0, at0},
		{"midpoint", 5, 0, 0, at45},
		{"last key", 10, 0, 0, at90},
		{"past frame count", 50, 0, 0, at90},
		{"negative frame", -3, 0, 0, at0},
		{"clamped to loop end", 9, 0, 5, at45},
		{"clamped to loop start", 1, 5, 10, at45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := armMesh(t)
			got := vertex(m.GetMesh(tt.frame, 0, tt.startLoop, tt.endLoop))
			if !got.ApproxEqual(tt.want, vecDelta) {
				t.Errorf("vertex = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMesh_GetMeshUnanimated(t *testing.T) {
	m := armMesh(t)
	m.GetMesh(10, 0, 0, 0)

	bind := m.GetMesh(Unanimated, 0, 0, 0)
	if bind[0] != m.BindBuffers()[0] {
		t.Error("Unanimated should return the bind buffers")
	}
	if vertex(bind) != at0 {
		t.Errorf("bind vertex = %v, want %v", vertex(bind), at0)
	}
}

func TestMesh_Joints(t *testing.T) {
	m := armMesh(t)

	if m.JointCount() != 2 {
		t.Errorf("JointCount = %d", m.JointCount())
	}
	if m.JointName(1) != "child" || m.JointName(7) != "" {
		t.Errorf("JointName mismatch: %q %q", m.JointName(1), m.JointName(7))
	}
	if m.JointNumber("child") != 1 || m.JointNumber("nope") != -1 {
		t.Error("JointNumber mismatch")
	}
	if m.FrameCount() != 10 {
		t.Errorf("FrameCount = %v, want 10", m.FrameCount())
	}
	if !m.HasAnimation() {
		t.Error("HasAnimation = false")
	}
}

func TestMesh_RecoverJoints(t *testing.T) {
	m := armMesh(t)
	nodes := scene.BuildJointNodes(m.Skeleton())

	m.GetMesh(10, 0, 0, 0)
	m.RecoverJoints(nodes)

	want := scene.Quat(math.QuatFromAxisAngle(math.Vec3{Z: 1}, stdmath.Pi/2))
	if !scene.EngineQuat(nodes[1].Rotation).SameRotation(scene.EngineQuat(want), vecDelta) {
		t.Errorf("child rotation = %v, want %v", nodes[1].Rotation, want)
	}
	if got := nodes[1].AbsolutePosition(); !scene.EngineVec3(got).ApproxEqual(math.Vec3{Y: 1}, vecDelta) {
		t.Errorf("child absolute position = %v", got)
	}

	// Short node lists are tolerated.
	m.RecoverJoints(nodes[:1])
}

func TestMesh_TransferJoints(t *testing.T) {
	m := armMesh(t)
	nodes := scene.BuildJointNodes(m.Skeleton())

	m.GetMesh(10, 0, 0, 0)
	m.RecoverJoints(nodes)

	nodes[1].Rotation = scene.Quat(math.QuatIdentity())
	m.TransferJoints(nodes)
	m.Skin()

	if got := vertex(m.Buffers()); !got.ApproxEqual(at0, vecDelta) {
		t.Errorf("vertex after transfer = %v, want %v", got, at0)
	}

	// The transfer invalidated the memo, so the same frame samples again.
	if got := vertex(m.GetMesh(10, 0, 0, 0)); !got.ApproxEqual(at90, vecDelta) {
		t.Errorf("vertex after re-animate = %v, want %v", got, at90)
	}
}

func TestMesh_TransferJointsUnchanged(t *testing.T) {
	m := armMesh(t)
	nodes := scene.BuildJointNodes(m.Skeleton())

	m.GetMesh(5, 0, 0, 0)
	m.RecoverJoints(nodes)
	version := m.Pose().Version()

	m.TransferJoints(nodes)
	if m.Pose().Version() != version {
		t.Errorf("version = %d after transferring unchanged nodes, want %d", m.Pose().Version(), version)
	}

	nodes[1].Rotation = scene.Quat(math.QuatIdentity())
	m.TransferJoints(nodes)
	if m.Pose().Version() == version {
		t.Error("version unchanged after transferring an edited node")
	}
}

func TestMesh_TransferJointsGlobalSpace(t *testing.T) {
	m := armMesh(t)
	nodes := scene.BuildJointNodes(m.Skeleton())

	nodes[0].Position = scene.Vec3(math.Vec3{X: 10})
	nodes[1].Space = scene.SpaceGlobal
	m.TransferJoints(nodes)
	m.Skin()

	// The child ignores the moved root.
	if got := vertex(m.Buffers()); !got.ApproxEqual(at0, vecDelta) {
		t.Errorf("vertex = %v, want %v", got, at0)
	}
}

func TestMesh_Settings(t *testing.T) {
	m := armMesh(t)

	m.SetInterpolationMode(skeleton.Constant)
	if got := vertex(m.GetMesh(5, 0, 0, 0)); !got.ApproxEqual(at90, vecDelta) {
		t.Errorf("constant mode vertex = %v, want %v", got, at90)
	}

	m.SetAnimateNormals(false)
	m.GetMesh(2, 0, 0, 0)
	if n := m.Buffers()[0].Vertices.Normal(0); !n.ApproxEqual(math.Vec3{X: -1}, vecDelta) {
		t.Errorf("normal = %v, want last skinned value (-1, 0, 0)", n)
	}

	if m.AnimationSpeed() != DefaultFramesPerSecond {
		t.Errorf("AnimationSpeed = %v", m.AnimationSpeed())
	}
	m.SetAnimationSpeed(30)
	if m.AnimationSpeed() != 30 {
		t.Errorf("AnimationSpeed = %v, want 30", m.AnimationSpeed())
	}
}

func TestMesh_Bounds(t *testing.T) {
	m := armMesh(t)
	m.GetMesh(10, 0, 0, 0)

	b := m.Bounds()
	if !b.Min.ApproxEqual(at90, vecDelta) || !b.Max.ApproxEqual(at90, vecDelta) {
		t.Errorf("bounds = %+v, want a point at %v", b, at90)
	}
}
