package xr

import "math"

// Vec3 is a position in metres, in the runtime's play space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Quat is a rotation quaternion.
type Quat struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// IdentityQuat is the rotation that leaves vectors unchanged.
var IdentityQuat = Quat{W: 1}

// Pose is a snapshot of head position and orientation at one sampled instant.
type Pose struct {
	Position    Vec3 `json:"position"`
	Orientation Quat `json:"orientation"`
}

// NewPose builds a pose at position p with identity orientation.
func NewPose(x, y, z float64) Pose {
	return Pose{Position: Vec3{X: x, Y: y, Z: z}, Orientation: IdentityQuat}
}

// QuatFromEuler builds a quaternion from roll, pitch and yaw in degrees.
// Rotation order is yaw (Y), then pitch (X), then roll (Z).
func QuatFromEuler(roll, pitch, yaw float64) Quat {
	r := roll * math.Pi / 360
	p := pitch * math.Pi / 360
	y := yaw * math.Pi / 360

	cr, sr := math.Cos(r), math.Sin(r)
	cp, sp := math.Cos(p), math.Sin(p)
	cy, sy := math.Cos(y), math.Sin(y)

	return Quat{
		X: cy*sp*cr + sy*cp*sr,
		Y: sy*cp*cr - cy*sp*sr,
		Z: cy*cp*sr - sy*sp*cr,
		W: cy*cp*cr + sy*sp*sr,
	}
}

// Normalize returns q scaled to unit length. The zero quaternion maps to identity.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityQuat
	}
	return Quat{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

// Matrix is a column-major 4x4 transform. Row r, column c is at m[c*4+r].
type Matrix [16]float64

// At returns the element in row r, column c.
func (m Matrix) At(r, c int) float64 {
	return m[c*4+r]
}

// ModelMatrix returns the head's model matrix: rotation by the orientation
// followed by translation to the position.
func (p Pose) ModelMatrix() Matrix {
	q := p.Orientation.Normalize()
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z

	var m Matrix
	m[0] = 1 - 2*(yy+zz)
	m[1] = 2 * (xy + wz)
	m[2] = 2 * (xz - wy)
	m[4] = 2 * (xy - wz)
	m[5] = 1 - 2*(xx+zz)
	m[6] = 2 * (yz + wx)
	m[8] = 2 * (xz + wy)
	m[9] = 2 * (yz - wx)
	m[10] = 1 - 2*(xx+yy)
	m[12] = p.Position.X
	m[13] = p.Position.Y
	m[14] = p.Position.Z
	m[15] = 1
	return m
}
