// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestPoseFromQuaternion(t *testing.T) {
	p := PoseFromQuaternion(axisAngle(0, 0, 1, math.Pi/2))
	test.That(t, p.Roll, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, p.Pitch, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, p.Yaw, test.ShouldAlmostEqual, 90.0, 1e-9)
}

func TestTiltFromAccelMatchesEuler(t *testing.T) {
	// gravity seen by a body rolled by 30°
	roll := RadiansFromDegrees(30)
	p := TiltFromAccel(0, math.Sin(roll), math.Cos(roll))
	test.That(t, p.Roll, test.ShouldAlmostEqual, 30.0, 1e-9)
	test.That(t, p.Pitch, test.ShouldAlmostEqual, 0.0, 1e-9)

	// gravity seen by a body pitched by 20°
	pitch := RadiansFromDegrees(20)
	p = TiltFromAccel(-math.Sin(pitch), 0, math.Cos(pitch))
	test.That(t, p.Roll, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, p.Pitch, test.ShouldAlmostEqual, 20.0, 1e-9)
	test.That(t, p.Yaw, test.ShouldEqual, 0.0)
}

func TestDiffWraps(t *testing.T) {
	d := Diff(Pose{Yaw: 179}, Pose{Yaw: -179})
	test.That(t, d.Yaw, test.ShouldAlmostEqual, -2.0, 1e-9)

	d = Diff(Pose{Roll: 10, Pitch: -5, Yaw: 350}, Pose{Roll: 5, Pitch: 5, Yaw: 10})
	test.That(t, d.Roll, test.ShouldAlmostEqual, 5.0, 1e-9)
	test.That(t, d.Pitch, test.ShouldAlmostEqual, -10.0, 1e-9)
	test.That(t, d.Yaw, test.ShouldAlmostEqual, -20.0, 1e-9)

	test.That(t, WrapDegrees(180), test.ShouldEqual, 180.0)
	test.That(t, WrapDegrees(-180), test.ShouldEqual, 180.0)
}
