package math

import "math"

// Mat4 is a 4x4 matrix in column-major order.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// Compose builds an object-to-world matrix from a location, an XYZ Euler
// rotation in radians and a scale: T * Rz * Ry * Rx * S.
func Compose(location, rotation, scale [3]float32) Mat4 {
	sx, cx := math.Sincos(float64(rotation[0]))
	sy, cy := math.Sincos(float64(rotation[1]))
	sz, cz := math.Sincos(float64(rotation[2]))

	// Columns of Rz * Ry * Rx.
	r := [3][3]float64{
		{cz * cy, sz * cy, -sy},
		{cz*sy*sx - sz*cx, sz*sy*sx + cz*cx, cy * sx},
		{cz*sy*cx + sz*sx, sz*sy*cx - cz*sx, cy * cx},
	}

	var m Mat4
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] = float32(r[col][row]) * scale[col]
		}
	}
	m[12], m[13], m[14], m[15] = location[0], location[1], location[2], 1
	return m
}

// TransformPoint transforms a 3D point by this matrix (assumes w=1).
func (m Mat4) TransformPoint(p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		return [3]float32{x / w, y / w, z / w}
	}
	return [3]float32{x, y, z}
}

// TransformDirection transforms a direction vector (ignores translation).
func (m Mat4) TransformDirection(d [3]float32) [3]float32 {
	return [3]float32{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 block, embedded
// in a Mat4, for transforming surface normals. A singular block yields the
// identity.
func (m Mat4) NormalMatrix() Mat4 {
	a, b, c := m[0], m[4], m[8]
	d, e, f := m[1], m[5], m[9]
	g, h, i := m[2], m[6], m[10]

	A := e*i - f*h
	B := -(d*i - f*g)
	C := d*h - e*g
	det := a*A + b*B + c*C
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	// Cofactor matrix divided by the determinant is the inverse-transpose.
	return Mat4{
		A * inv, -(b*i - c*h) * inv, (b*f - c*e) * inv, 0,
		B * inv, (a*i - c*g) * inv, -(a*f - c*d) * inv, 0,
		C * inv, -(a*h - b*g) * inv, (a*e - b*d) * inv, 0,
		0, 0, 0, 1,
	}
}
