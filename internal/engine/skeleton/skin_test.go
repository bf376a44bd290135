package skeleton

import (
	stdmath "math"
	"testing"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/pkg/math"
)

func mustSkinner(t *testing.T, s *Skeleton, buffers []*meshbuf.Buffer) *Skinner {
	t.Helper()
	k, err := NewSkinner(s, buffers)
	if err != nil {
		t.Fatalf("NewSkinner: %v", err)
	}
	return k
}

func TestSkinner_IdentityReproducesBindPose(t *testing.T) {
	s := New()
	r := mustJoint(t, s, "r", NoJoint)
	c := mustJoint(t, s, "c", r)
	_ = s.SetLocalMatrix(r, math.Translate(2, -1, 0.5))
	_ = s.SetLocalMatrix(c, math.Translate(0, 1, 0))

	bind := []math.Vec3{{X: 0.3, Y: 1.7, Z: -2}, {X: 4, Y: 0, Z: 1}, {X: -1, Y: -1, Z: -1}}
	_ = s.AddWeight(r, 0, 0, 1)
	_ = s.AddWeight(c, 0, 1, 1)
	_ = s.AddWeight(r, 0, 2, 0.5)
	_ = s.AddWeight(c, 0, 2, 0.5)

	buffers := []*meshbuf.Buffer{buffer(bind...)}
	if err := s.Finalize(buffers); err != nil {
		t.Fatal(err)
	}

	skinned := meshbuf.CloneAll(buffers)
	p := mustPose(t, s)
	k := mustSkinner(t, s, skinned)
	if err := k.Skin(p, skinned); err != nil {
		t.Fatal(err)
	}

	for i, want := range bind {
		got := skinned[0].Vertices.Position(i)
		if !got.ApproxEqual(want, eps) {
			t.Errorf("vertex %d = %v, want bind %v", i, got, want)
		}
	}
}

func TestSkinner_TwoJointScenario(t *testing.T) {
	s, buffers, _, _ := twoJointArm(t)
	skinned := meshbuf.CloneAll(buffers)
	p := mustPose(t, s)
	k := mustSkinner(t, s, skinned)

	p.Animate(5, 1)
	if err := k.Skin(p, skinned); err != nil {
		t.Fatal(err)
	}

	h := float32(stdmath.Sqrt2 / 2)
	want := math.Vec3{X: -h, Y: 1 + h}
	if got := skinned[0].Vertices.Position(0); !got.ApproxEqual(want, eps) {
		t.Errorf("vertex = %v, want %v", got, want)
	}
	if got := skinned[0].Vertices.Normal(0); !got.ApproxEqual(math.Vec3{X: -h, Y: h}, eps) {
		t.Errorf("normal = %v, want rotated by 45 degrees", got)
	}
	if b := skinned[0].Bounds; !b.Min.ApproxEqual(want, eps) || !b.Max.ApproxEqual(want, eps) {
		t.Errorf("bounds not recalculated: %+v", b)
	}

	// The bind buffers stay untouched.
	if buffers[0].Vertices.Position(0) != (math.Vec3{Y: 2}) {
		t.Error("skinning wrote into the bind buffers")
	}
}

func TestSkinner_AccumulatesWeights(t *testing.T) {
	s := New()
	moving := mustJoint(t, s, "moving", NoJoint)
	still := mustJoint(t, s, "still", NoJoint)
	_ = s.AddPositionKey(moving, 0, math.Vec3{})
	_ = s.AddPositionKey(moving, 10, math.Vec3{X: 2})
	_ = s.AddWeight(moving, 0, 0, 1)
	_ = s.AddWeight(still, 0, 0, 1)

	buffers := []*meshbuf.Buffer{buffer(math.Vec3{Z: 1})}
	if err := s.Finalize(buffers); err != nil {
		t.Fatal(err)
	}
	p := mustPose(t, s)
	k := mustSkinner(t, s, buffers)

	// Skinning twice must not double-accumulate across passes.
	for _, f := range []float32{10, 5, 10} {
		p.Animate(f, 1)
		if err := k.Skin(p, buffers); err != nil {
			t.Fatal(err)
		}
	}
	if got := buffers[0].Vertices.Position(0); !got.ApproxEqual(math.Vec3{X: 1, Z: 1}, eps) {
		t.Errorf("vertex = %v, want (1, 0, 1)", got)
	}
}

func TestSkinner_AnimateNormalsOff(t *testing.T) {
	s, buffers, _, _ := twoJointArm(t)
	p := mustPose(t, s)
	k := mustSkinner(t, s, buffers)
	k.SetAnimateNormals(false)

	p.Animate(10, 1)
	if err := k.Skin(p, buffers); err != nil {
		t.Fatal(err)
	}
	if got := buffers[0].Vertices.Normal(0); got != (math.Vec3{Y: 1}) {
		t.Errorf("normal changed to %v with normal skinning off", got)
	}
	if got := buffers[0].Vertices.Position(0); !got.ApproxEqual(math.Vec3{X: -1, Y: 1}, eps) {
		t.Errorf("vertex = %v, want (-1, 1, 0)", got)
	}
}

func TestSkinner_SkipsUnchangedPose(t *testing.T) {
	s, buffers, _, _ := twoJointArm(t)
	p := mustPose(t, s)
	k := mustSkinner(t, s, buffers)

	p.Animate(10, 1)
	_ = k.Skin(p, buffers)

	marker := math.Vec3{X: 100}
	buffers[0].Vertices.SetPosition(0, marker)
	_ = k.Skin(p, buffers)
	if buffers[0].Vertices.Position(0) != marker {
		t.Error("unchanged pose was skinned again")
	}

	k.Reset()
	_ = k.Skin(p, buffers)
	if buffers[0].Vertices.Position(0) == marker {
		t.Error("Reset should force the next pass")
	}
}

func TestSkinner_PassWrap(t *testing.T) {
	s, buffers, _, _ := twoJointArm(t)
	p := mustPose(t, s)
	k := mustSkinner(t, s, buffers)

	k.pass = ^uint32(0) - 1
	for _, f := range []float32{2, 4, 6} {
		p.Animate(f, 1)
		if err := k.Skin(p, buffers); err != nil {
			t.Fatal(err)
		}
	}
	if k.pass != 2 {
		t.Errorf("pass = %d after wrap, want 2", k.pass)
	}

	want := p.GlobalMatrix(1).Mul(s.Joint(1).InverseGlobalMatrix).TransformPoint(math.Vec3{Y: 2})
	if got := buffers[0].Vertices.Position(0); !got.ApproxEqual(want, eps) {
		t.Errorf("vertex after wrap = %v, want %v", got, want)
	}
}

func TestSkinner_BufferMismatch(t *testing.T) {
	s, buffers, _, _ := twoJointArm(t)
	p := mustPose(t, s)
	k := mustSkinner(t, s, buffers)

	if err := k.Skin(p, nil); err == nil {
		t.Error("expected error for missing buffers")
	}
	if err := k.Skin(p, []*meshbuf.Buffer{buffer()}); err == nil {
		t.Error("expected error for a resized buffer")
	}

	other, _, _, _ := twoJointArm(t)
	if err := k.Skin(mustPose(t, other), buffers); err == nil {
		t.Error("expected error for a pose of another skeleton")
	}
}
