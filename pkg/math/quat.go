package math

import "math"

// EulerToQuat converts an XYZ Euler rotation in radians (applied X first,
// then Y, then Z) to a unit quaternion in [x, y, z, w] order.
func EulerToQuat(rot [3]float32) [4]float32 {
	hx, hy, hz := float64(rot[0])/2, float64(rot[1])/2, float64(rot[2])/2
	sx, cx := math.Sincos(hx)
	sy, cy := math.Sincos(hy)
	sz, cz := math.Sincos(hz)

	return [4]float32{
		float32(cz*cy*sx - sz*cx*sy),
		float32(cz*cx*sy + sz*cy*sx),
		float32(cx*cy*sz - cz*sx*sy),
		float32(cx*cy*cz + sx*sy*sz),
	}
}
