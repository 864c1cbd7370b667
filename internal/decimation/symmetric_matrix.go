package decimation

import vec3 "github.com/flywave/go3d/float64/vec3"

// symmetricMatrix stores the 10 distinct coefficients of a symmetric 4x4
// matrix, row major over the upper triangle:
//
//	m[0] m[1] m[2] m[3]
//	m[1] m[4] m[5] m[6]
//	m[2] m[5] m[7] m[8]
//	m[3] m[6] m[8] m[9]
type symmetricMatrix [10]float64

// planeQuadric builds the rank-1 quadric of the plane ax+by+cz+d=0.
func planeQuadric(a, b, c, d float64) symmetricMatrix {
	return symmetricMatrix{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

func (m *symmetricMatrix) add(other *symmetricMatrix) {
	for i := range m {
		m[i] += other[i]
	}
}

func (m *symmetricMatrix) added(other *symmetricMatrix) symmetricMatrix {
	var out symmetricMatrix
	for i := range m {
		out[i] = m[i] + other[i]
	}
	return out
}

// det returns the determinant of the 3x3 matrix assembled from the given
// coefficient indexes, row by row.
func (m *symmetricMatrix) det(a11, a12, a13, a21, a22, a23, a31, a32, a33 int) float64 {
	return m[a11]*m[a22]*m[a33] + m[a13]*m[a21]*m[a32] + m[a12]*m[a23]*m[a31] -
		m[a13]*m[a22]*m[a31] - m[a11]*m[a23]*m[a32] - m[a12]*m[a21]*m[a33]
}

// vertexError evaluates v^T Q v for the homogeneous point (x, y, z, 1).
func (m *symmetricMatrix) vertexError(p *vec3.T) float64 {
	x, y, z := p[0], p[1], p[2]
	return m[0]*x*x + 2*m[1]*x*y + 2*m[2]*x*z + 2*m[3]*x +
		m[4]*y*y + 2*m[5]*y*z + 2*m[6]*y +
		m[7]*z*z + 2*m[8]*z +
		m[9]
}
