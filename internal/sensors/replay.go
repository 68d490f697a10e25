// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/relabs-tech/fused/internal/imu"
	"github.com/relabs-tech/fused/internal/orientation"
	"gopkg.in/yaml.v3"
)

// ErrEndOfTrace is returned by ReplaySource.Next once every sample has been
// delivered. It wraps io.EOF.
var ErrEndOfTrace = fmt.Errorf("replay: end of trace: %w", io.EOF)

// Trace is a recorded sample stream.
//
//	rate_hz: 100
//	samples:
//	  - gyro: [0.01, 0, 0]
//	    accel: [0, 0, 1]
//	    mag: [22, 0, 42]
//	    truth: {roll: 0, pitch: 0, yaw: 0}
type Trace struct {
	RateHz  float64       `yaml:"rate_hz"`
	Samples []TraceSample `yaml:"samples"`
}

// TraceSample is one recorded sample. Mag and Truth are optional.
type TraceSample struct {
	Gyro  [3]float64        `yaml:"gyro"`  // rad/s
	Accel [3]float64        `yaml:"accel"` // g
	Mag   [3]float64        `yaml:"mag,omitempty"`
	Truth *orientation.Pose `yaml:"truth,omitempty"`
}

// ReplaySource plays a Trace back in order.
type ReplaySource struct {
	mu    sync.Mutex
	trace Trace
	pos   int
	loop  bool
}

var _ imu.Source = (*ReplaySource)(nil)

// LoadTrace reads a YAML trace file.
func LoadTrace(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, fmt.Errorf("replay: open trace: %w", err)
	}
	defer f.Close()
	return DecodeTrace(f)
}

// DecodeTrace parses a YAML trace from r.
func DecodeTrace(r io.Reader) (Trace, error) {
	var tr Trace
	if err := yaml.NewDecoder(r).Decode(&tr); err != nil {
		return Trace{}, fmt.Errorf("replay: decode trace: %w", err)
	}
	if len(tr.Samples) == 0 {
		return Trace{}, fmt.Errorf("replay: trace has no samples")
	}
	return tr, nil
}

// EncodeTrace writes tr as YAML.
func EncodeTrace(w io.Writer, tr Trace) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tr); err != nil {
		return fmt.Errorf("replay: encode trace: %w", err)
	}
	return enc.Close()
}

// NewReplaySource plays tr once, or forever when loop is set.
func NewReplaySource(tr Trace, loop bool) *ReplaySource {
	return &ReplaySource{trace: tr, loop: loop}
}

// RateHz returns the rate the trace was recorded at (0 if unknown).
func (r *ReplaySource) RateHz() float64 { return r.trace.RateHz }

// Next returns the next recorded sample, or ErrEndOfTrace.
func (r *ReplaySource) Next() (imu.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.trace.Samples) {
		if !r.loop {
			return imu.Sample{}, ErrEndOfTrace
		}
		r.pos = 0
	}
	ts := r.trace.Samples[r.pos]
	r.pos++

	return imu.Sample{
		Source: "replay",
		Gx:     ts.Gyro[0],
		Gy:     ts.Gyro[1],
		Gz:     ts.Gyro[2],
		Ax:     ts.Accel[0],
		Ay:     ts.Accel[1],
		Az:     ts.Accel[2],
		Mx:     ts.Mag[0],
		My:     ts.Mag[1],
		Mz:     ts.Mag[2],
	}, nil
}

// Reference returns the truth recorded with the most recently delivered
// sample. Samples without truth report an error.
func (r *ReplaySource) Reference() orientation.Source {
	return orientation.SourceFunc(func() (orientation.Pose, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.pos == 0 {
			return orientation.Pose{}, fmt.Errorf("replay: no sample delivered yet")
		}
		t := r.trace.Samples[r.pos-1].Truth
		if t == nil {
			return orientation.Pose{}, fmt.Errorf("replay: sample %d has no truth", r.pos-1)
		}
		return *t, nil
	})
}

// Record pulls up to n samples from src into a Trace, stopping early when
// src reports io.EOF. When truth is non-nil it is read after every sample;
// samples whose truth is unavailable are stored without it.
func Record(src imu.Source, truth orientation.Source, rateHz float64, n int) (Trace, error) {
	tr := Trace{RateHz: rateHz, Samples: make([]TraceSample, 0, max(n, 0))}
	for i := 0; i < n; i++ {
		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Trace{}, fmt.Errorf("replay: record sample %d: %w", i, err)
		}
		ts := TraceSample{
			Gyro:  [3]float64{s.Gx, s.Gy, s.Gz},
			Accel: [3]float64{s.Ax, s.Ay, s.Az},
			Mag:   [3]float64{s.Mx, s.My, s.Mz},
		}
		if truth != nil {
			if p, err := truth.Next(); err == nil {
				ts.Truth = &p
			}
		}
		tr.Samples = append(tr.Samples, ts)
	}
	if len(tr.Samples) == 0 {
		return Trace{}, fmt.Errorf("replay: source produced no samples")
	}
	return tr, nil
}

// HasTruth reports whether every sample carries a truth pose.
func (tr Trace) HasTruth() bool {
	for _, s := range tr.Samples {
		if s.Truth == nil {
			return false
		}
	}
	return len(tr.Samples) > 0
}
