// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"
)

// Raw represents a single raw IMU+mag sample in sensor counts.
type Raw struct {
	Source string `json:"source"` // "left" or "right"

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"` // magnetometer, 0.1 µT
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

// Sample is one instant's readings in filter units: gyro in rad/s, accel in
// g, magnetometer in µT. A zero magnetometer vector means "no reading".
type Sample struct {
	Source string `json:"source,omitempty"`

	Gx float64 `json:"gx"`
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	Ax float64 `json:"ax"`
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Mx float64 `json:"mx"`
	My float64 `json:"my"`
	Mz float64 `json:"mz"`
}

// HasMag reports whether the sample carries a magnetometer reading.
func (s Sample) HasMag() bool {
	return s.Mx != 0 || s.My != 0 || s.Mz != 0
}

// Source is anything that delivers samples in stream order.
type Source interface {
	Next() (Sample, error)
}

// MPU9250 full-scale sensitivities, indexed by the range register value.
var (
	accelLSBPerG   = [4]float64{16384, 8192, 4096, 2048}
	gyroLSBPerDegS = [4]float64{131, 65.5, 32.8, 16.4}
)

// Scale converts raw counts into a Sample.
type Scale struct {
	AccelLSBPerG   float64
	GyroLSBPerDegS float64
	MagUTPerLSB    float64
}

// ScaleForRanges returns the Scale for the MPU9250 range codes
// (accel 0=±2g..3=±16g, gyro 0=±250°/s..3=±2000°/s).
func ScaleForRanges(accelRange, gyroRange byte) (Scale, error) {
	if int(accelRange) >= len(accelLSBPerG) {
		return Scale{}, fmt.Errorf("accel range must be 0-3, got %d", accelRange)
	}
	if int(gyroRange) >= len(gyroLSBPerDegS) {
		return Scale{}, fmt.Errorf("gyro range must be 0-3, got %d", gyroRange)
	}
	return Scale{
		AccelLSBPerG:   accelLSBPerG[accelRange],
		GyroLSBPerDegS: gyroLSBPerDegS[gyroRange],
		MagUTPerLSB:    0.1,
	}, nil
}

// Apply converts r to physical units.
func (sc Scale) Apply(r Raw) Sample {
	gyro := func(v int16) float64 {
		return float64(v) / sc.GyroLSBPerDegS * math.Pi / 180
	}
	return Sample{
		Source: r.Source,
		Gx:     gyro(r.Gx),
		Gy:     gyro(r.Gy),
		Gz:     gyro(r.Gz),
		Ax:     float64(r.Ax) / sc.AccelLSBPerG,
		Ay:     float64(r.Ay) / sc.AccelLSBPerG,
		Az:     float64(r.Az) / sc.AccelLSBPerG,
		Mx:     float64(r.Mx) * sc.MagUTPerLSB,
		My:     float64(r.My) * sc.MagUTPerLSB,
		Mz:     float64(r.Mz) * sc.MagUTPerLSB,
	}
}
