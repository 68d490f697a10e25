// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Madgwick is the gradient-descent orientation filter.
//
// Each update integrates the gyro rate and, when the reference readings are
// usable, subtracts beta times the normalized gradient of the error between
// measured and predicted gravity (and earth field) from the rate of change
// before integrating.
type Madgwick struct {
	sampleFreq float64
	dt         float64
	beta       float64

	q quat.Number
}

var _ Filter = (*Madgwick)(nil)

// NewMadgwick returns a filter sampled at sampleFrequencyHz with gradient step
// beta. beta is an opaque tuning input and is not range checked.
func NewMadgwick(sampleFrequencyHz, beta float64) (*Madgwick, error) {
	dt, err := samplePeriod(sampleFrequencyHz)
	if err != nil {
		return nil, err
	}
	return &Madgwick{
		sampleFreq: sampleFrequencyHz,
		dt:         dt,
		beta:       beta,
		q:          Identity.number(),
	}, nil
}

// Quaternion returns the current estimate.
func (f *Madgwick) Quaternion() Quaternion { return fromNumber(f.q) }

// Beta returns the gradient step size.
func (f *Madgwick) Beta() float64 { return f.beta }

// SampleFrequency returns the configured rate in Hz.
func (f *Madgwick) SampleFrequency() float64 { return f.sampleFreq }

// UpdateIMU fuses one gyroscope + accelerometer sample. A zero accelerometer
// vector skips the correction and only integrates the gyro.
func (f *Madgwick) UpdateIMU(gx, gy, gz, ax, ay, az float64) {
	qDot := gyroRate(f.q, gx, gy, gz)

	if a, ok := (vec3{ax, ay, az}).normalized(); ok {
		qDot = f.correct(qDot, gravityGradient(f.q, a))
	}

	f.q = integrate(f.q, qDot, f.dt)
}

// UpdateAHRS fuses one gyroscope + accelerometer + magnetometer sample. A zero
// magnetometer vector falls back to UpdateIMU.
func (f *Madgwick) UpdateAHRS(gx, gy, gz, ax, ay, az, mx, my, mz float64) {
	m, ok := (vec3{mx, my, mz}).normalized()
	if !ok {
		f.UpdateIMU(gx, gy, gz, ax, ay, az)
		return
	}

	qDot := gyroRate(f.q, gx, gy, gz)

	if a, ok := (vec3{ax, ay, az}).normalized(); ok {
		s := quat.Add(gravityGradient(f.q, a), fieldGradient(f.q, m))
		qDot = f.correct(qDot, s)
	}

	f.q = integrate(f.q, qDot, f.dt)
}

// correct blends the normalized gradient s into the rate of change. A zero
// gradient means the estimate already matches the measurement.
func (f *Madgwick) correct(qDot, s quat.Number) quat.Number {
	n := quat.Abs(s)
	if n == 0 {
		return qDot
	}
	return quat.Sub(qDot, quat.Scale(f.beta/n, s))
}

// gravityGradient returns Jᵀ·f for the objective f = Rᵀ(q)·(0,0,1) - a.
func gravityGradient(q quat.Number, a vec3) quat.Number {
	q0, q1, q2, q3 := q.Real, q.Imag, q.Jmag, q.Kmag

	f1 := 2*(q1*q3-q0*q2) - a[0]
	f2 := 2*(q0*q1+q2*q3) - a[1]
	f3 := 2*(0.5-q1*q1-q2*q2) - a[2]

	return quat.Number{
		Real: -2*q2*f1 + 2*q1*f2,
		Imag: 2*q3*f1 + 2*q0*f2 - 4*q1*f3,
		Jmag: -2*q0*f1 + 2*q3*f2 - 4*q2*f3,
		Kmag: 2*q1*f1 + 2*q2*f2,
	}
}

// fieldGradient returns Jᵀ·f for the earth field objective. The reference
// field b = (bx, 0, bz) is the measurement rotated into the earth frame with
// its horizontal part folded onto x, so declination never enters the error.
func fieldGradient(q quat.Number, m vec3) quat.Number {
	q0, q1, q2, q3 := q.Real, q.Imag, q.Jmag, q.Kmag

	h := toEarth(q, m)
	_2bx := math.Sqrt(h[0]*h[0] + h[1]*h[1])
	_2bz := h[2]
	_4bx := 2 * _2bx
	_4bz := 2 * _2bz

	f1 := _2bx*(0.5-q2*q2-q3*q3) + _2bz*(q1*q3-q0*q2) - m[0]
	f2 := _2bx*(q1*q2-q0*q3) + _2bz*(q0*q1+q2*q3) - m[1]
	f3 := _2bx*(q0*q2+q1*q3) + _2bz*(0.5-q1*q1-q2*q2) - m[2]

	return quat.Number{
		Real: -_2bz*q2*f1 + (-_2bx*q3+_2bz*q1)*f2 + _2bx*q2*f3,
		Imag: _2bz*q3*f1 + (_2bx*q2+_2bz*q0)*f2 + (_2bx*q3-_4bz*q1)*f3,
		Jmag: (-_4bx*q2-_2bz*q0)*f1 + (_2bx*q1+_2bz*q3)*f2 + (_2bx*q0-_4bz*q2)*f3,
		Kmag: (-_4bx*q3+_2bz*q1)*f1 + (-_2bx*q0+_2bz*q2)*f2 + _2bx*q1*f3,
	}
}
