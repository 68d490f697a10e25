// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Mahony is the proportional-integral complementary filter.
//
// The error between measured and predicted reference directions (their cross
// product) is fed back into the gyro rate: proportionally through twoKp, and
// through a persistent integral term scaled by twoKi when twoKi > 0.
type Mahony struct {
	sampleFreq float64
	dt         float64
	twoKp      float64
	twoKi      float64

	q          quat.Number
	integralFB vec3
}

var _ Filter = (*Mahony)(nil)

// NewMahony returns a filter sampled at sampleFrequencyHz with proportional
// gain twoKp and integral gain twoKi (both 2x the textbook Kp/Ki).
func NewMahony(sampleFrequencyHz, twoKp, twoKi float64) (*Mahony, error) {
	dt, err := samplePeriod(sampleFrequencyHz)
	if err != nil {
		return nil, err
	}
	return &Mahony{
		sampleFreq: sampleFrequencyHz,
		dt:         dt,
		twoKp:      twoKp,
		twoKi:      twoKi,
		q:          Identity.number(),
	}, nil
}

// Quaternion returns the current estimate.
func (f *Mahony) Quaternion() Quaternion { return fromNumber(f.q) }

// Gains returns (twoKp, twoKi).
func (f *Mahony) Gains() (twoKp, twoKi float64) { return f.twoKp, f.twoKi }

// SampleFrequency returns the configured rate in Hz.
func (f *Mahony) SampleFrequency() float64 { return f.sampleFreq }

// IntegralFeedback returns the accumulated integral term in rad/s.
func (f *Mahony) IntegralFeedback() [3]float64 { return f.integralFB }

// UpdateIMU fuses one gyroscope + accelerometer sample. A zero accelerometer
// vector skips all feedback and only integrates the gyro.
func (f *Mahony) UpdateIMU(gx, gy, gz, ax, ay, az float64) {
	g := vec3{gx, gy, gz}

	if a, ok := (vec3{ax, ay, az}).normalized(); ok {
		halfV := toBody(f.q, vec3{0, 0, 1}).scale(0.5)
		g = f.feedback(g, a.cross(halfV))
	}

	f.q = integrate(f.q, gyroRate(f.q, g[0], g[1], g[2]), f.dt)
}

// UpdateAHRS fuses one gyroscope + accelerometer + magnetometer sample. A zero
// magnetometer vector falls back to UpdateIMU.
func (f *Mahony) UpdateAHRS(gx, gy, gz, ax, ay, az, mx, my, mz float64) {
	m, ok := (vec3{mx, my, mz}).normalized()
	if !ok {
		f.UpdateIMU(gx, gy, gz, ax, ay, az)
		return
	}

	g := vec3{gx, gy, gz}

	if a, ok := (vec3{ax, ay, az}).normalized(); ok {
		h := toEarth(f.q, m)
		b := vec3{math.Sqrt(h[0]*h[0] + h[1]*h[1]), 0, h[2]}

		halfV := toBody(f.q, vec3{0, 0, 1}).scale(0.5)
		halfW := toBody(f.q, b).scale(0.5)

		g = f.feedback(g, a.cross(halfV).add(m.cross(halfW)))
	}

	f.q = integrate(f.q, gyroRate(f.q, g[0], g[1], g[2]), f.dt)
}

// feedback applies the integral and proportional terms for halfErr to the
// gyro rate g.
func (f *Mahony) feedback(g, halfErr vec3) vec3 {
	if f.twoKi > 0 {
		f.integralFB = f.integralFB.add(halfErr.scale(f.twoKi * f.dt))
		g = g.add(f.integralFB)
	} else {
		// no windup while integral feedback is disabled
		f.integralFB = vec3{}
	}
	return g.add(halfErr.scale(f.twoKp))
}
