// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation converts filter quaternions into presentation angles
// and defines the reference orientation providers used for comparison.
package orientation

import (
	"math"
)

// Pose is the presentation form of an orientation, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide reference poses over time: the
// accelerometer tilt, a GPS course, or a simulator's ground truth.
type Source interface {
	Next() (Pose, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (Pose, error)

// Next calls f.
func (f SourceFunc) Next() (Pose, error) { return f() }

// PoseFromQuaternion derives the pose (degrees) from a unit quaternion.
// It is always computed from the quaternion, never stored alongside it.
func PoseFromQuaternion(q0, q1, q2, q3 float64) Pose {
	roll, pitch, yaw := EulerFromQuaternion(q0, q1, q2, q3)
	return Pose{
		Roll:  DegreesFromRadians(roll),
		Pitch: DegreesFromRadians(pitch),
		Yaw:   DegreesFromRadians(yaw),
	}
}

// TiltFromAccel computes roll and pitch from accelerometer data only.
// Yaw is unobservable from gravity and is left at 0.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  DegreesFromRadians(rollRad),
		Pitch: DegreesFromRadians(pitchRad),
	}
}

// WrapDegrees folds an angle into (-180, 180].
func WrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// Diff returns a - b with every axis wrapped into (-180, 180].
func Diff(a, b Pose) Pose {
	return Pose{
		Roll:  WrapDegrees(a.Roll - b.Roll),
		Pitch: WrapDegrees(a.Pitch - b.Pitch),
		Yaw:   WrapDegrees(a.Yaw - b.Yaw),
	}
}
