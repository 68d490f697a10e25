// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"testing"

	"go.viam.com/test"
)

func TestMahonyIntegralHeldAtZeroWhenDisabled(t *testing.T) {
	for _, twoKi := range []float64{0, -0.5} {
		f, err := NewMahony(sampleHz, DefaultTwoKp, twoKi)
		test.That(t, err, test.ShouldBeNil)

		// biased gyro against a tilted gravity reading keeps the error non-zero
		for i := 0; i < 5000; i++ {
			f.UpdateIMU(0.05, -0.03, 0.02, 0.3, 0.4, 0.8)
			test.That(t, f.IntegralFeedback(), test.ShouldResemble, [3]float64{})
			f.UpdateAHRS(0.05, -0.03, 0.02, 0.3, 0.4, 0.8, 0.2, 0.1, -0.5)
			test.That(t, f.IntegralFeedback(), test.ShouldResemble, [3]float64{})
		}
	}
}

func TestMahonyIntegralCancelsGyroBias(t *testing.T) {
	const bias = 0.01
	f, err := NewMahony(sampleHz, DefaultTwoKp, 0.2)
	test.That(t, err, test.ShouldBeNil)

	for i := 0; i < 180*int(sampleHz); i++ {
		f.UpdateIMU(bias, 0, 0, 0, 0, 1)
	}

	fb := f.IntegralFeedback()
	test.That(t, fb[0], test.ShouldAlmostEqual, -bias, 1e-3)
	test.That(t, fb[1], test.ShouldAlmostEqual, 0.0, 1e-3)
	test.That(t, fb[2], test.ShouldAlmostEqual, 0.0, 1e-3)

	twoKp, twoKi := f.Gains()
	test.That(t, twoKp, test.ShouldEqual, DefaultTwoKp)
	test.That(t, twoKi, test.ShouldEqual, 0.2)
}

func TestMahonyIntegralUntouchedByDegenerateAccel(t *testing.T) {
	f, err := NewMahony(sampleHz, DefaultTwoKp, 0.5)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 200; i++ {
		f.UpdateIMU(0.02, 0.01, 0, 0.1, 0, 1)
	}
	before := f.IntegralFeedback()
	test.That(t, before, test.ShouldNotResemble, [3]float64{})

	f.UpdateIMU(0.02, 0.01, 0, 0, 0, 0)
	test.That(t, f.IntegralFeedback(), test.ShouldResemble, before)
}
