// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "math"

// EulerFromQuaternion returns roll, pitch and yaw in radians for the unit
// quaternion (q0, q1, q2, q3) using the aerospace ZYX sequence.
//
// Pitch at ±90° is gimbal lock: roll and yaw become ill-conditioned there and
// no attempt is made to disambiguate them. The asin argument is clamped only
// so rounding just past ±1 cannot turn into NaN.
func EulerFromQuaternion(q0, q1, q2, q3 float64) (roll, pitch, yaw float64) {
	roll = math.Atan2(2*(q0*q1+q2*q3), 1-2*(q1*q1+q2*q2))
	pitch = math.Asin(clamp(2*(q0*q2-q3*q1), -1, 1))
	yaw = math.Atan2(2*(q0*q3+q1*q2), 1-2*(q2*q2+q3*q3))
	return roll, pitch, yaw
}

// DegreesFromRadians converts an angle from radians to degrees.
func DegreesFromRadians(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// RadiansFromDegrees converts an angle from degrees to radians.
func RadiansFromDegrees(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
