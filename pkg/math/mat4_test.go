package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
	if !m.IsIdentity() {
		t.Error("IsIdentity should be true for Identity()")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
	if m.Translation() != (Vec3{5, 10, 15}) {
		t.Errorf("Translation() = %v", m.Translation())
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(10, 20, 30)
	d := Vec3{0, 1, 0}
	if got := m.TransformDirection(d); got != d {
		t.Errorf("TransformDirection: got %v, want %v", got, d)
	}
}

func TestRotationZ90(t *testing.T) {
	m := QuatFromAxisAngle(Vec3{Z: 1}, float32(math.Pi/2)).ToMat4()
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Z rotation, (1,0,0) should become approximately (0,1,0)
	if !result.ApproxEqual(Vec3{0, 1, 0}, 0.001) {
		t.Errorf("rotation 90: got %v, want (0, 1, 0)", result)
	}
}

func TestInverse(t *testing.T) {
	m := FromTRS(
		Vec3{1, -2, 3},
		QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, 0.7),
		Vec3{2, 2, 2},
	)
	if got := m.Mul(m.Inverse()); !got.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("M * M^-1 = %v, want identity", got)
	}
}

func TestInverseSingular(t *testing.T) {
	var zero Mat4
	if !zero.Inverse().IsIdentity() {
		t.Error("singular matrix inverse should fall back to identity")
	}
}

func TestDecomposeRoundTrip(t *testing.T) {
	tr := Vec3{4, 5, 6}
	rot := QuatFromAxisAngle(Vec3{X: 1, Y: 1, Z: 0}.Normalize(), 1.2)
	sc := Vec3{1, 2, 3}

	m := FromTRS(tr, rot, sc)
	gotT, gotR, gotS := m.Decompose()

	if !gotT.ApproxEqual(tr, 1e-5) {
		t.Errorf("translation: got %v, want %v", gotT, tr)
	}
	if !gotR.SameRotation(rot, 1e-4) {
		t.Errorf("rotation: got %v, want %v", gotR, rot)
	}
	if !gotS.ApproxEqual(sc, 1e-4) {
		t.Errorf("scale: got %v, want %v", gotS, sc)
	}
	if !FromTRS(gotT, gotR, gotS).ApproxEqual(m, 1e-4) {
		t.Error("FromTRS(Decompose(m)) should reproduce m")
	}
}
