package spatial

import (
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"
)

// TriangleIntersectsBox runs the Akenine-Moller separating axis test between
// a triangle and an axis aligned box given by center and half extents. The 13
// candidate axes are the 3 box axes, the triangle face normal and the 9 cross
// products of triangle edges with box axes; if none separates, the shapes
// intersect.
func TriangleIntersectsBox(a, b, c *vec3.T, center, half *vec3.T) bool {
	// Triangle in box-centered coordinates.
	v0 := vec3.Sub(a, center)
	v1 := vec3.Sub(b, center)
	v2 := vec3.Sub(c, center)

	e0 := vec3.Sub(&v1, &v0)
	e1 := vec3.Sub(&v2, &v1)
	e2 := vec3.Sub(&v0, &v2)

	fex := math.Abs(e0[0])
	fey := math.Abs(e0[1])
	fez := math.Abs(e0[2])
	if !axisTest(e0[2], -e0[1], v0[1], v0[2], v2[1], v2[2], fez, fey, half[1], half[2]) {
		return false
	}
	if !axisTest(-e0[2], e0[0], v0[0], v0[2], v2[0], v2[2], fez, fex, half[0], half[2]) {
		return false
	}
	if !axisTest(e0[1], -e0[0], v1[0], v1[1], v2[0], v2[1], fey, fex, half[0], half[1]) {
		return false
	}

	fex = math.Abs(e1[0])
	fey = math.Abs(e1[1])
	fez = math.Abs(e1[2])
	if !axisTest(e1[2], -e1[1], v0[1], v0[2], v2[1], v2[2], fez, fey, half[1], half[2]) {
		return false
	}
	if !axisTest(-e1[2], e1[0], v0[0], v0[2], v2[0], v2[2], fez, fex, half[0], half[2]) {
		return false
	}
	if !axisTest(e1[1], -e1[0], v0[0], v0[1], v1[0], v1[1], fey, fex, half[0], half[1]) {
		return false
	}

	fex = math.Abs(e2[0])
	fey = math.Abs(e2[1])
	fez = math.Abs(e2[2])
	if !axisTest(e2[2], -e2[1], v0[1], v0[2], v1[1], v1[2], fez, fey, half[1], half[2]) {
		return false
	}
	if !axisTest(-e2[2], e2[0], v0[0], v0[2], v1[0], v1[2], fez, fex, half[0], half[2]) {
		return false
	}
	if !axisTest(e2[1], -e2[0], v1[0], v1[1], v2[0], v2[1], fey, fex, half[0], half[1]) {
		return false
	}

	// Box axis projections: quick reject on the triangle AABB.
	for i := 0; i < 3; i++ {
		min := math.Min(v0[i], math.Min(v1[i], v2[i]))
		max := math.Max(v0[i], math.Max(v1[i], v2[i]))
		if min > half[i] || max < -half[i] {
			return false
		}
	}

	// Face normal vs box.
	normal := vec3.Cross(&e0, &e1)
	return planeBoxOverlap(&normal, &v0, half)
}

// axisTest projects two triangle vertices and the box onto one cross product
// axis; pa/pb are the axis components, (x1,y1)/(x2,y2) the relevant vertex
// coordinates and (fa,fb)/(ha,hb) the matching absolute components and half
// extents.
func axisTest(pa, pb, x1, y1, x2, y2, fa, fb, ha, hb float64) bool {
	p1 := pa*x1 + pb*y1
	p2 := pa*x2 + pb*y2
	min, max := p1, p2
	if min > max {
		min, max = max, min
	}
	rad := fa*ha + fb*hb
	return !(min > rad || max < -rad)
}

func planeBoxOverlap(normal, point, half *vec3.T) bool {
	var vmin, vmax vec3.T
	for i := 0; i < 3; i++ {
		if normal[i] > 0 {
			vmin[i] = -half[i] - point[i]
			vmax[i] = half[i] - point[i]
		} else {
			vmin[i] = half[i] - point[i]
			vmax[i] = -half[i] - point[i]
		}
	}
	if vec3.Dot(normal, &vmin) > 0 {
		return false
	}
	return vec3.Dot(normal, &vmax) >= 0
}
