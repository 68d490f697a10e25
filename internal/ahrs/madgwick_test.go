// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/fused/internal/orientation"
)

func TestMagnetometerResolvesHeading(t *testing.T) {
	mw, err := NewMadgwick(sampleHz, 0.5)
	test.That(t, err, test.ShouldBeNil)
	mh, err := NewMahony(sampleHz, DefaultTwoKp, DefaultTwoKi)
	test.That(t, err, test.ShouldBeNil)

	// Mahony at the reference gains settles slower than Madgwick at beta 0.5
	for _, tc := range []struct {
		f       Filter
		seconds int
	}{
		{mw, 60},
		{mh, 180},
	} {
		f := tc.f
		// level body whose horizontal field component points along body +Y
		for i := 0; i < tc.seconds*int(sampleHz); i++ {
			f.UpdateAHRS(0, 0, 0, 0, 0, 1, 0, 0.5, 0.8)
		}
		q := f.Quaternion()
		roll, pitch, yaw := orientation.EulerFromQuaternion(q.Q0, q.Q1, q.Q2, q.Q3)
		test.That(t, roll, test.ShouldAlmostEqual, 0.0, 0.02)
		test.That(t, pitch, test.ShouldAlmostEqual, 0.0, 0.02)
		test.That(t, math.Abs(yaw), test.ShouldAlmostEqual, math.Pi/2, 0.02)
	}
}

func TestMadgwickAlignedReadingsAreFixedPoint(t *testing.T) {
	f, err := NewMadgwick(sampleHz, DefaultBeta)
	test.That(t, err, test.ShouldBeNil)

	// gravity and field already match the identity estimate: zero gradient
	for i := 0; i < 100; i++ {
		f.UpdateIMU(0, 0, 0, 0, 0, 9.81)
	}
	test.That(t, f.Quaternion(), test.ShouldResemble, Identity)
}
