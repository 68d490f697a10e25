// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fusion pumps samples from a source through a filter and hands the
// resulting orientation to sinks.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/imu"
	"github.com/relabs-tech/fused/internal/orientation"
)

// Euler holds the aerospace ZYX angles in radians.
type Euler struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Output is what a driver produces for every fused sample.
type Output struct {
	RunID      string            `json:"run_id"`
	Stream     string            `json:"stream"`
	Filter     ahrs.Kind         `json:"filter"`
	Seq        uint64            `json:"seq"`
	Time       time.Time         `json:"time"`
	Sample     imu.Sample        `json:"sample"`
	Quaternion ahrs.Quaternion   `json:"quaternion"`
	Euler      Euler             `json:"euler"`
	Pose       orientation.Pose  `json:"pose"`
	Reference  *orientation.Pose `json:"reference,omitempty"`
}

// Driver owns one filter and feeds it one stream. A Driver must be driven
// from a single goroutine; run one Driver per stream.
type Driver struct {
	Name              string
	Kind              ahrs.Kind
	Filter            ahrs.Filter
	Source            imu.Source
	Reference         orientation.Source // optional
	UseMagnetometer   bool
	SampleFrequencyHz float64
	Sinks             []Sink

	runID string
	seq   uint64
}

// RunID identifies this driver's output stream. It is assigned on first use.
func (d *Driver) RunID() string {
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	return d.runID
}

// Step reads one sample, updates the filter and publishes the result to
// every sink in order. Source errors are returned and nothing is published.
// Reference and sink errors are logged.
func (d *Driver) Step(now time.Time) (Output, error) {
	s, err := d.Source.Next()
	if err != nil {
		return Output{}, fmt.Errorf("%s: read sample: %w", d.Name, err)
	}

	if d.UseMagnetometer {
		d.Filter.UpdateAHRS(s.Gx, s.Gy, s.Gz, s.Ax, s.Ay, s.Az, s.Mx, s.My, s.Mz)
	} else {
		d.Filter.UpdateIMU(s.Gx, s.Gy, s.Gz, s.Ax, s.Ay, s.Az)
	}

	q := d.Filter.Quaternion()
	roll, pitch, yaw := orientation.EulerFromQuaternion(q.Q0, q.Q1, q.Q2, q.Q3)

	out := Output{
		RunID:      d.RunID(),
		Stream:     d.Name,
		Filter:     d.Kind,
		Seq:        d.seq,
		Time:       now,
		Sample:     s,
		Quaternion: q,
		Euler:      Euler{Roll: roll, Pitch: pitch, Yaw: yaw},
		Pose:       orientation.PoseFromQuaternion(q.Q0, q.Q1, q.Q2, q.Q3),
	}
	d.seq++

	if d.Reference != nil {
		if obs, ok := d.Reference.(SampleObserver); ok {
			obs.Observe(s)
		}
		ref, err := d.Reference.Next()
		if err != nil {
			log.Printf("fusion: %s reference: %v", d.Name, err)
		} else {
			out.Reference = &ref
		}
	}

	for i, sink := range d.Sinks {
		if err := sink.Publish(out); err != nil {
			log.Printf("fusion: %s sink %d: %v", d.Name, i, err)
		}
	}

	return out, nil
}

// Period returns the sample period for SampleFrequencyHz.
func (d *Driver) Period() (time.Duration, error) {
	if !(d.SampleFrequencyHz > 0) {
		return 0, fmt.Errorf("%s: sample frequency must be positive, got %v Hz", d.Name, d.SampleFrequencyHz)
	}
	period := time.Duration(float64(time.Second) / d.SampleFrequencyHz)
	if period <= 0 {
		return 0, fmt.Errorf("%s: sample frequency %v Hz is above the 1 ns timer resolution", d.Name, d.SampleFrequencyHz)
	}
	return period, nil
}

// Run calls Step on a fixed-rate ticker until ctx is cancelled or the
// source is exhausted (io.EOF). Other source errors skip the tick.
func (d *Driver) Run(ctx context.Context) error {
	period, err := d.Period()
	if err != nil {
		return err
	}

	log.Printf("fusion: %s running %s at %.1f Hz (run %s)", d.Name, d.Kind, d.SampleFrequencyHz, d.RunID())

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("fusion: %s stopped after %d samples", d.Name, d.seq)
			return nil
		case now := <-ticker.C:
			if _, err := d.Step(now); err != nil {
				if errors.Is(err, io.EOF) {
					log.Printf("fusion: %s source exhausted after %d samples", d.Name, d.seq)
					return nil
				}
				log.Printf("fusion: %v", err)
			}
		}
	}
}

// Drain steps up to n samples back to back, stamping them start, start+period
// and so on. It stops early at io.EOF and returns how many samples were fused.
// n <= 0 drains until the source is exhausted.
func (d *Driver) Drain(start time.Time, n int) (int, error) {
	period, err := d.Period()
	if err != nil {
		return 0, err
	}
	done := 0
	for n <= 0 || done < n {
		if _, err := d.Step(start.Add(time.Duration(done) * period)); err != nil {
			if errors.Is(err, io.EOF) {
				return done, nil
			}
			return done, err
		}
		done++
	}
	return done, nil
}
