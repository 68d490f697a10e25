// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"errors"
	"time"

	"github.com/relabs-tech/fused/internal/imu"
	"github.com/relabs-tech/fused/internal/orientation"
)

// Sink receives every Output a driver produces, synchronously and in order.
type Sink interface {
	Publish(Output) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Output) error

// Publish calls f.
func (f SinkFunc) Publish(out Output) error { return f(out) }

// Every forwards at most one Output per interval to sink, judged by
// Output.Time. The first Output always passes.
func Every(interval time.Duration, sink Sink) Sink {
	var last time.Time
	return SinkFunc(func(out Output) error {
		if !last.IsZero() && out.Time.Sub(last) < interval {
			return nil
		}
		last = out.Time
		return sink.Publish(out)
	})
}

var errNoSample = errors.New("accel tilt: no sample observed")

// SampleObserver is implemented by references that derive their pose from the
// sample stream itself. The driver calls Observe before Next.
type SampleObserver interface {
	Observe(imu.Sample)
}

// AccelTilt is the accelerometer-only roll/pitch reference.
type AccelTilt struct {
	last imu.Sample
	seen bool
}

var (
	_ orientation.Source = (*AccelTilt)(nil)
	_ SampleObserver     = (*AccelTilt)(nil)
)

// Observe records the latest sample.
func (a *AccelTilt) Observe(s imu.Sample) {
	a.last = s
	a.seen = true
}

// Next returns the tilt of the latest observed sample.
func (a *AccelTilt) Next() (orientation.Pose, error) {
	if !a.seen {
		return orientation.Pose{}, errNoSample
	}
	return orientation.TiltFromAccel(a.last.Ax, a.last.Ay, a.last.Az), nil
}
