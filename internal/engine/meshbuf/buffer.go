// Package meshbuf holds the vertex and index buffers a skinned mesh deforms.
package meshbuf

import "github.com/Faultbox/skelanim/pkg/math"

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Reset collapses the box onto a single point.
func (b *Bounds) Reset(p math.Vec3) {
	b.Min = p
	b.Max = p
}

// AddPoint grows the box to contain p.
func (b *Bounds) AddPoint(p math.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// AddBox grows the box to contain other.
func (b *Bounds) AddBox(other Bounds) {
	b.AddPoint(other.Min)
	b.AddPoint(other.Max)
}

// Center returns the middle of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Buffer is one drawable piece of a mesh.
type Buffer struct {
	Vertices Vertices
	Indices  []uint32
	Bounds   Bounds
}

// New creates a buffer and computes its bounding box.
func New(vertices Vertices, indices []uint32) *Buffer {
	b := &Buffer{Vertices: vertices, Indices: indices}
	b.RecalculateBounds()
	return b
}

// Len returns the vertex count.
func (b *Buffer) Len() int {
	if b.Vertices == nil {
		return 0
	}
	return b.Vertices.Len()
}

// RecalculateBounds recomputes the bounding box from vertex positions.
// An empty buffer gets a zero box at the origin.
func (b *Buffer) RecalculateBounds() {
	n := b.Len()
	if n == 0 {
		b.Bounds = Bounds{}
		return
	}
	b.Bounds.Reset(b.Vertices.Position(0))
	for i := 1; i < n; i++ {
		b.Bounds.AddPoint(b.Vertices.Position(i))
	}
}

// Clone returns a deep copy. Callers use it to keep a skinned pose after
// requesting another frame, since skinning writes in place.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{
		Indices: append([]uint32(nil), b.Indices...),
		Bounds:  b.Bounds,
	}
	if b.Vertices != nil {
		c.Vertices = b.Vertices.Clone()
	}
	return c
}

// Transform moves every vertex by m. Normals are rotated and renormalized.
func (b *Buffer) Transform(m math.Mat4) {
	for i := 0; i < b.Len(); i++ {
		b.Vertices.SetPosition(i, m.TransformPoint(b.Vertices.Position(i)))
		b.Vertices.SetNormal(i, m.TransformDirection(b.Vertices.Normal(i)).Normalize())
	}
	b.RecalculateBounds()
}

// MergeBounds returns the box enclosing every non-empty buffer.
func MergeBounds(buffers []*Buffer) Bounds {
	var out Bounds
	first := true
	for _, b := range buffers {
		if b.Len() == 0 {
			continue
		}
		if first {
			out = b.Bounds
			first = false
			continue
		}
		out.AddBox(b.Bounds)
	}
	return out
}

// CloneAll deep-copies a buffer list.
func CloneAll(buffers []*Buffer) []*Buffer {
	out := make([]*Buffer, len(buffers))
	for i, b := range buffers {
		out[i] = b.Clone()
	}
	return out
}
