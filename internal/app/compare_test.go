// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/sensors"
)

func TestCompareOnSimulation(t *testing.T) {
	cfg := config.Default()
	cfg.SimRateX = 0.1
	cfg.SimRateZ = 0.2
	cfg.Reference = "sim"

	report, tr, err := Compare(cfg, 1000)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Samples, test.ShouldEqual, 1000)
	test.That(t, len(tr.Samples), test.ShouldEqual, 1000)
	test.That(t, report.HasReference, test.ShouldBeTrue)
	test.That(t, len(report.Filters), test.ShouldEqual, 2)
	test.That(t, report.Filters[0].Kind, test.ShouldEqual, ahrs.KindMadgwick)
	test.That(t, report.Filters[1].Kind, test.ShouldEqual, ahrs.KindMahony)

	for _, s := range report.Filters {
		test.That(t, s.RMSError.Roll, test.ShouldBeLessThan, 2.0)
		test.That(t, s.RMSError.Pitch, test.ShouldBeLessThan, 2.0)
		test.That(t, s.RMSError.Yaw, test.ShouldBeLessThan, 2.0)
		test.That(t, s.MaxError.Roll, test.ShouldBeGreaterThanOrEqualTo, s.RMSError.Roll)
	}
	test.That(t, report.MaxDivergence.Roll, test.ShouldBeLessThan, 4.0)
	test.That(t, report.MaxDivergence.Yaw, test.ShouldBeLessThan, 4.0)
}

func TestCompareTraceWithoutTruth(t *testing.T) {
	tr, err := sensors.DecodeTrace(strings.NewReader(`
rate_hz: 100
samples:
  - {gyro: [0, 0, 0.5], accel: [0, 0, 1]}
  - {gyro: [0, 0, 0.5], accel: [0, 0, 1]}
  - {gyro: [0, 0, 0.5], accel: [0, 0, 1]}
`))
	test.That(t, err, test.ShouldBeNil)

	cfg := config.Default()
	cfg.Reference = "gps"
	report, err := CompareTrace(cfg, tr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Samples, test.ShouldEqual, 3)
	test.That(t, report.HasReference, test.ShouldBeFalse)
	for _, s := range report.Filters {
		test.That(t, s.RMSError.Yaw, test.ShouldEqual, 0.0)
		test.That(t, s.Final.Yaw, test.ShouldBeGreaterThan, 0.0)
	}
	// with no tilt error both filters integrate the gyro identically
	test.That(t, report.MaxDivergence.Yaw, test.ShouldAlmostEqual, 0.0, 1e-9)
}
