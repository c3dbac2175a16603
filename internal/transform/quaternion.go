package transform

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the identity rotation.
var Identity = quat.Number{Real: 1}

// FromAxisAngle returns the unit quaternion rotating by angle radians about axis.
func FromAxisAngle(axis r3.Vec, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, axis))
}

// Normalize returns q scaled to unit length. A zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

func dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Slerp interpolates from a toward b by t along the shortest arc.
func Slerp(a, b quat.Number, t float64) quat.Number {
	a = Normalize(a)
	b = Normalize(b)

	cos := dot(a, b)
	if cos < 0 {
		// q and -q are the same rotation; flip to take the short way round
		b = quat.Scale(-1, b)
		cos = -cos
	}

	if cos > 1-1e-9 {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}

	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return quat.Add(quat.Scale(wa, a), quat.Scale(wb, b))
}

// Angle returns the rotation angle in radians, in [0, pi], that takes a to b.
func Angle(a, b quat.Number) float64 {
	d := quat.Mul(quat.Conj(Normalize(a)), Normalize(b))
	v := math.Sqrt(d.Imag*d.Imag + d.Jmag*d.Jmag + d.Kmag*d.Kmag)
	return 2 * math.Atan2(v, math.Abs(d.Real))
}

// Rotate applies q to p.
func Rotate(q quat.Number, p r3.Vec) r3.Vec {
	return r3.Rotation(Normalize(q)).Rotate(p)
}
