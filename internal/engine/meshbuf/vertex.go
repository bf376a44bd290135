package meshbuf

import "github.com/Faultbox/skelanim/pkg/math"

// Layout identifies the vertex format of a buffer.
type Layout int

const (
	// LayoutStandard carries position, normal, color and one texture coordinate.
	LayoutStandard Layout = iota
	// LayoutTwoTexCoords adds a second texture coordinate set (lightmaps).
	LayoutTwoTexCoords
	// LayoutTangents adds tangent and binormal vectors for normal mapping.
	LayoutTangents
)

func (l Layout) String() string {
	switch l {
	case LayoutStandard:
		return "standard"
	case LayoutTwoTexCoords:
		return "2tcoords"
	case LayoutTangents:
		return "tangents"
	default:
		return "unknown"
	}
}

// Vertex is the standard vertex format.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Color    [4]uint8
	TexCoord [2]float32
}

// Vertex2TCoords is a vertex with a second texture coordinate set.
type Vertex2TCoords struct {
	Vertex
	TexCoord2 [2]float32
}

// VertexTangents is a vertex with tangent space vectors.
type VertexTangents struct {
	Vertex
	Tangent  math.Vec3
	Binormal math.Vec3
}

// Vertices gives uniform access to a vertex array regardless of its layout.
// Implementations are chosen once when a buffer is built.
type Vertices interface {
	Layout() Layout
	Len() int
	Position(i int) math.Vec3
	SetPosition(i int, p math.Vec3)
	Normal(i int) math.Vec3
	SetNormal(i int, n math.Vec3)
	TexCoord(i int) [2]float32
	Clone() Vertices
}

// StandardVertices stores LayoutStandard vertices.
type StandardVertices []Vertex

func (v StandardVertices) Layout() Layout                 { return LayoutStandard }
func (v StandardVertices) Len() int                       { return len(v) }
func (v StandardVertices) Position(i int) math.Vec3       { return v[i].Position }
func (v StandardVertices) SetPosition(i int, p math.Vec3) { v[i].Position = p }
func (v StandardVertices) Normal(i int) math.Vec3         { return v[i].Normal }
func (v StandardVertices) SetNormal(i int, n math.Vec3)   { v[i].Normal = n }
func (v StandardVertices) TexCoord(i int) [2]float32      { return v[i].TexCoord }

func (v StandardVertices) Clone() Vertices {
	return append(StandardVertices(nil), v...)
}

// TwoTexCoordVertices stores LayoutTwoTexCoords vertices.
type TwoTexCoordVertices []Vertex2TCoords

func (v TwoTexCoordVertices) Layout() Layout                 { return LayoutTwoTexCoords }
func (v TwoTexCoordVertices) Len() int                       { return len(v) }
func (v TwoTexCoordVertices) Position(i int) math.Vec3       { return v[i].Position }
func (v TwoTexCoordVertices) SetPosition(i int, p math.Vec3) { v[i].Position = p }
func (v TwoTexCoordVertices) Normal(i int) math.Vec3         { return v[i].Normal }
func (v TwoTexCoordVertices) SetNormal(i int, n math.Vec3)   { v[i].Normal = n }
func (v TwoTexCoordVertices) TexCoord(i int) [2]float32      { return v[i].TexCoord }

func (v TwoTexCoordVertices) Clone() Vertices {
	return append(TwoTexCoordVertices(nil), v...)
}

// TangentVertices stores LayoutTangents vertices.
type TangentVertices []VertexTangents

func (v TangentVertices) Layout() Layout                 { return LayoutTangents }
func (v TangentVertices) Len() int                       { return len(v) }
func (v TangentVertices) Position(i int) math.Vec3       { return v[i].Position }
func (v TangentVertices) SetPosition(i int, p math.Vec3) { v[i].Position = p }
func (v TangentVertices) Normal(i int) math.Vec3         { return v[i].Normal }
func (v TangentVertices) SetNormal(i int, n math.Vec3)   { v[i].Normal = n }
func (v TangentVertices) TexCoord(i int) [2]float32      { return v[i].TexCoord }

func (v TangentVertices) Clone() Vertices {
	return append(TangentVertices(nil), v...)
}
