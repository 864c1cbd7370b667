package geometry

import (
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"
)

// AABB is an axis aligned bounding box. Min <= Max holds per axis for every
// box produced by this package. Degenerate (zero volume) boxes are legal and
// describe single points or axis aligned faces.
type AABB struct {
	Min vec3.T `json:"min"`
	Max vec3.T `json:"max"`
}

// NewAABB builds a box from explicit per-axis bounds.
func NewAABB(minX, maxX, minY, maxY, minZ, maxZ float64) AABB {
	return AABB{
		Min: vec3.T{minX, minY, minZ},
		Max: vec3.T{maxX, maxY, maxZ},
	}
}

// EmptyAABB returns a box that extends to nothing and can be grown with Extend.
func EmptyAABB() AABB {
	return AABB{
		Min: vec3.T{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Max: vec3.T{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

// IsEmpty reports whether the box has never been extended.
func (b *AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend grows the box to contain the given point.
func (b *AABB) Extend(p *vec3.T) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// Union returns the smallest box containing both operands.
func (b AABB) Union(other AABB) AABB {
	out := b
	out.Extend(&other.Min)
	out.Extend(&other.Max)
	return out
}

// Center returns the box midpoint.
func (b *AABB) Center() vec3.T {
	return vec3.T{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// HalfExtents returns the half size of the box along each axis.
func (b *AABB) HalfExtents() vec3.T {
	return vec3.T{
		(b.Max[0] - b.Min[0]) / 2,
		(b.Max[1] - b.Min[1]) / 2,
		(b.Max[2] - b.Min[2]) / 2,
	}
}

// Diagonal returns the length of the box diagonal.
func (b *AABB) Diagonal() float64 {
	d := vec3.Sub(&b.Max, &b.Min)
	return d.Length()
}

// Contains reports whether the point lies inside the box, boundaries included.
func (b *AABB) Contains(p *vec3.T) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether other lies fully inside the box, allowing eps of
// numerical slack per axis.
func (b *AABB) ContainsBox(other *AABB, eps float64) bool {
	for i := 0; i < 3; i++ {
		if other.Min[i] < b.Min[i]-eps || other.Max[i] > b.Max[i]+eps {
			return false
		}
	}
	return true
}

// BoxVolume expresses the AABB as the 12-value 3D Tiles box bounding volume:
// center followed by the three half-extent axes.
func (b *AABB) BoxVolume() [12]float64 {
	c := b.Center()
	h := b.HalfExtents()
	return [12]float64{
		c[0], c[1], c[2],
		h[0], 0, 0,
		0, h[1], 0,
		0, 0, h[2],
	}
}
