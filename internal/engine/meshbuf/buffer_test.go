package meshbuf

import (
	"testing"

	"github.com/Faultbox/skelanim/pkg/math"
)

func triangle() StandardVertices {
	return StandardVertices{
		{Position: math.Vec3{X: 0, Y: 0, Z: 0}, Normal: math.Vec3{Z: 1}},
		{Position: math.Vec3{X: 2, Y: 0, Z: 0}, Normal: math.Vec3{Z: 1}},
		{Position: math.Vec3{X: 0, Y: 3, Z: -1}, Normal: math.Vec3{Z: 1}},
	}
}

func TestLayouts(t *testing.T) {
	tests := []struct {
		name     string
		vertices Vertices
		want     Layout
	}{
		{"standard", triangle(), LayoutStandard},
		{"2tcoords", TwoTexCoordVertices{{}, {}}, LayoutTwoTexCoords},
		{"tangents", TangentVertices{{}}, LayoutTangents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vertices.Layout(); got != tt.want {
				t.Errorf("Layout() = %v, want %v", got, tt.want)
			}
			if got := tt.vertices.Layout().String(); got != tt.name {
				t.Errorf("String() = %s, want %s", got, tt.name)
			}

			p := math.Vec3{X: 1, Y: 2, Z: 3}
			n := math.Vec3{Y: 1}
			tt.vertices.SetPosition(0, p)
			tt.vertices.SetNormal(0, n)
			if tt.vertices.Position(0) != p {
				t.Errorf("Position(0) = %v, want %v", tt.vertices.Position(0), p)
			}
			if tt.vertices.Normal(0) != n {
				t.Errorf("Normal(0) = %v, want %v", tt.vertices.Normal(0), n)
			}
		})
	}
}

func TestSecondaryAttributesSurviveAccessors(t *testing.T) {
	v := TangentVertices{{Tangent: math.Vec3{X: 1}, Binormal: math.Vec3{Y: 1}}}
	v.SetPosition(0, math.Vec3{Z: 5})
	if v[0].Tangent != (math.Vec3{X: 1}) || v[0].Binormal != (math.Vec3{Y: 1}) {
		t.Errorf("tangent space lost after SetPosition: %+v", v[0])
	}
}

func TestBounds(t *testing.T) {
	b := New(triangle(), []uint32{0, 1, 2})

	if b.Bounds.Min != (math.Vec3{X: 0, Y: 0, Z: -1}) {
		t.Errorf("Min = %v", b.Bounds.Min)
	}
	if b.Bounds.Max != (math.Vec3{X: 2, Y: 3, Z: 0}) {
		t.Errorf("Max = %v", b.Bounds.Max)
	}
	if b.Bounds.Center() != (math.Vec3{X: 1, Y: 1.5, Z: -0.5}) {
		t.Errorf("Center = %v", b.Bounds.Center())
	}
}

func TestEmptyBuffer(t *testing.T) {
	b := New(StandardVertices{}, nil)
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if b.Bounds != (Bounds{}) {
		t.Errorf("empty buffer bounds = %v, want zero", b.Bounds)
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := New(triangle(), []uint32{0, 1, 2})
	c := b.Clone()

	c.Vertices.SetPosition(0, math.Vec3{X: 9, Y: 9, Z: 9})
	c.Indices[0] = 7

	if b.Vertices.Position(0) != (math.Vec3{}) {
		t.Error("clone shares vertex storage with original")
	}
	if b.Indices[0] != 0 {
		t.Error("clone shares index storage with original")
	}
}

func TestTransform(t *testing.T) {
	b := New(triangle(), nil)
	b.Transform(math.Translate(1, 1, 1))

	if got := b.Vertices.Position(1); got != (math.Vec3{X: 3, Y: 1, Z: 1}) {
		t.Errorf("Position(1) = %v", got)
	}
	if got := b.Vertices.Normal(1); got != (math.Vec3{Z: 1}) {
		t.Errorf("translation must not move normals, got %v", got)
	}
	if b.Bounds.Min != (math.Vec3{X: 1, Y: 1, Z: 0}) {
		t.Errorf("bounds not refreshed: %v", b.Bounds)
	}
}

func TestMergeBounds(t *testing.T) {
	a := New(StandardVertices{{Position: math.Vec3{X: -1}}}, nil)
	empty := New(StandardVertices{}, nil)
	c := New(StandardVertices{{Position: math.Vec3{Y: 4}}}, nil)

	got := MergeBounds([]*Buffer{empty, a, c})
	want := Bounds{Min: math.Vec3{X: -1}, Max: math.Vec3{Y: 4}}
	if got != want {
		t.Errorf("MergeBounds = %v, want %v", got, want)
	}
}
