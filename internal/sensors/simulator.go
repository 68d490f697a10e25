// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/relabs-tech/fused/internal/imu"
	"github.com/relabs-tech/fused/internal/orientation"
	"gonum.org/v1/gonum/num/quat"
)

// DefaultField is the earth-frame magnetic field (µT) used by the simulator:
// horizontal part along +x, vertical part along +z.
var DefaultField = [3]float64{22, 0, 42}

// SimConfig describes a simulated body spinning at constant body rates.
type SimConfig struct {
	SampleFrequencyHz float64
	Rate              [3]float64 // body rates, rad/s
	GyroNoise         float64    // standard deviation, rad/s
	AccelNoise        float64    // standard deviation, g
	MagNoise          float64    // standard deviation, µT
	Field             [3]float64 // earth-frame field, µT; zero means DefaultField
	Seed              int64
	Initial           orientation.Pose // starting attitude, degrees
}

// Simulator synthesizes samples from a known orientation. The same config
// always produces the same stream.
type Simulator struct {
	mu sync.Mutex

	cfg  SimConfig
	rng  *rand.Rand
	step quat.Number // rotation applied per sample
	q    quat.Number // ground truth
	n    uint64
}

var _ imu.Source = (*Simulator)(nil)

// NewSimulator returns a simulator positioned at cfg.Initial.
func NewSimulator(cfg SimConfig) (*Simulator, error) {
	if !(cfg.SampleFrequencyHz > 0) || math.IsInf(cfg.SampleFrequencyHz, 1) {
		return nil, fmt.Errorf("simulator: sample frequency must be positive, got %v Hz", cfg.SampleFrequencyHz)
	}
	if cfg.Field == ([3]float64{}) {
		cfg.Field = DefaultField
	}

	dt := 1 / cfg.SampleFrequencyHz
	half := quat.Number{
		Imag: 0.5 * cfg.Rate[0] * dt,
		Jmag: 0.5 * cfg.Rate[1] * dt,
		Kmag: 0.5 * cfg.Rate[2] * dt,
	}

	return &Simulator{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		step: quat.Exp(half),
		q:    QuaternionFromPose(cfg.Initial),
	}, nil
}

// Next advances the truth by one sample period and returns the readings a
// perfect sensor would produce there, plus configured noise.
func (s *Simulator) Next() (imu.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.q = quat.Mul(s.q, s.step)
	s.q = quat.Scale(1/quat.Abs(s.q), s.q)
	s.n++

	a := rotateToBody(s.q, [3]float64{0, 0, 1})
	m := rotateToBody(s.q, s.cfg.Field)

	return imu.Sample{
		Source: "sim",
		Gx:     s.cfg.Rate[0] + s.noise(s.cfg.GyroNoise),
		Gy:     s.cfg.Rate[1] + s.noise(s.cfg.GyroNoise),
		Gz:     s.cfg.Rate[2] + s.noise(s.cfg.GyroNoise),
		Ax:     a[0] + s.noise(s.cfg.AccelNoise),
		Ay:     a[1] + s.noise(s.cfg.AccelNoise),
		Az:     a[2] + s.noise(s.cfg.AccelNoise),
		Mx:     m[0] + s.noise(s.cfg.MagNoise),
		My:     m[1] + s.noise(s.cfg.MagNoise),
		Mz:     m[2] + s.noise(s.cfg.MagNoise),
	}, nil
}

// Truth returns the orientation of the most recent sample as (q0, q1, q2, q3).
func (s *Simulator) Truth() [4]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return [4]float64{s.q.Real, s.q.Imag, s.q.Jmag, s.q.Kmag}
}

// Samples returns how many samples have been produced.
func (s *Simulator) Samples() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reference exposes the ground truth pose as a reference source.
func (s *Simulator) Reference() orientation.Source {
	return orientation.SourceFunc(func() (orientation.Pose, error) {
		q := s.Truth()
		return orientation.PoseFromQuaternion(q[0], q[1], q[2], q[3]), nil
	})
}

func (s *Simulator) noise(stddev float64) float64 {
	if stddev <= 0 {
		return 0
	}
	return s.rng.NormFloat64() * stddev
}

// QuaternionFromPose builds the ZYX (yaw, pitch, roll) rotation for p.
func QuaternionFromPose(p orientation.Pose) quat.Number {
	half := func(deg float64) float64 { return orientation.RadiansFromDegrees(deg) / 2 }
	cr, sr := math.Cos(half(p.Roll)), math.Sin(half(p.Roll))
	cp, sp := math.Cos(half(p.Pitch)), math.Sin(half(p.Pitch))
	cy, sy := math.Cos(half(p.Yaw)), math.Sin(half(p.Yaw))

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// rotateToBody expresses an earth-frame vector in the body frame: q* ⊗ v ⊗ q.
func rotateToBody(q quat.Number, v [3]float64) [3]float64 {
	r := quat.Mul(quat.Mul(quat.Conj(q), quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}), q)
	return [3]float64{r.Imag, r.Jmag, r.Kmag}
}
