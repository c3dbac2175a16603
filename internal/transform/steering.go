package transform

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SteeringRotation is the turn applied about the camera's forward axis for
// a measured hand angle. Mirrored video turns by +angle, unmirrored by
// -angle, so the object always turns the way the hands on screen do.
func SteeringRotation(forward r3.Vec, angle float64, mirror bool) quat.Number {
	if !mirror {
		angle = -angle
	}
	return FromAxisAngle(r3.Unit(forward), angle)
}

// TargetOrientation faces the object toward the camera and then turns it
// by the steering rotation.
func TargetOrientation(camera quat.Number, forward r3.Vec, angle float64, mirror bool) quat.Number {
	return Normalize(quat.Mul(Normalize(camera), SteeringRotation(forward, angle, mirror)))
}
