// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ahrs implements attitude and heading reference filters that fuse
// gyroscope, accelerometer and (optionally) magnetometer samples into a unit
// orientation quaternion.
//
// Filters are not safe for concurrent use. Drive each instance from a single
// sample stream; use one instance per stream.
package ahrs

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfiguration is returned (wrapped) when a filter is constructed
// with a sample frequency that is not strictly positive and finite.
var ErrInvalidConfiguration = errors.New("ahrs: invalid configuration")

// Filter accepts 6- or 9-axis samples and exposes a unit quaternion.
//
// Gyro rates are in rad/s. Accelerometer and magnetometer readings may use any
// self-consistent unit, only their direction is used.
type Filter interface {
	UpdateIMU(gx, gy, gz, ax, ay, az float64)
	UpdateAHRS(gx, gy, gz, ax, ay, az, mx, my, mz float64)
	Quaternion() Quaternion
}

// Kind selects a filter implementation.
type Kind string

const (
	KindMadgwick Kind = "madgwick"
	KindMahony   Kind = "mahony"
)

// Reference tuning from the public-domain implementations.
const (
	DefaultBeta  = 0.1
	DefaultTwoKp = 2.0 * 0.5
	DefaultTwoKi = 2.0 * 0.0
)

// ParseKind maps a config string ("madgwick", "mahony") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMadgwick, KindMahony:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q (want madgwick or mahony)", ErrInvalidConfiguration, s)
	}
}

// Config carries the construction parameters for either filter. Fields that
// do not apply to the selected Kind are ignored.
type Config struct {
	Kind              Kind
	SampleFrequencyHz float64
	Beta              float64
	TwoKp             float64
	TwoKi             float64
}

// DefaultConfig returns a Config for kind at sampleFrequencyHz with the
// reference gains.
func DefaultConfig(kind Kind, sampleFrequencyHz float64) Config {
	return Config{
		Kind:              kind,
		SampleFrequencyHz: sampleFrequencyHz,
		Beta:              DefaultBeta,
		TwoKp:             DefaultTwoKp,
		TwoKi:             DefaultTwoKi,
	}
}

// New builds the filter selected by cfg.Kind.
func New(cfg Config) (Filter, error) {
	switch cfg.Kind {
	case KindMadgwick:
		f, err := NewMadgwick(cfg.SampleFrequencyHz, cfg.Beta)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindMahony:
		f, err := NewMahony(cfg.SampleFrequencyHz, cfg.TwoKp, cfg.TwoKi)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidConfiguration, cfg.Kind)
	}
}

// samplePeriod validates the sample frequency and returns Δt in seconds.
func samplePeriod(sampleFrequencyHz float64) (float64, error) {
	if !(sampleFrequencyHz > 0) || math.IsInf(sampleFrequencyHz, 1) {
		return 0, fmt.Errorf("%w: sample frequency must be positive, got %v Hz", ErrInvalidConfiguration, sampleFrequencyHz)
	}
	return 1 / sampleFrequencyHz, nil
}
