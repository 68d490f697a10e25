// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/imu"
	"github.com/relabs-tech/fused/internal/orientation"
	"github.com/relabs-tech/fused/internal/sensors"
)

// recordingFilter remembers which update path was taken.
type recordingFilter struct {
	imuCalls, ahrsCalls int
	q                   ahrs.Quaternion
}

func (f *recordingFilter) UpdateIMU(gx, gy, gz, ax, ay, az float64) { f.imuCalls++ }
func (f *recordingFilter) UpdateAHRS(gx, gy, gz, ax, ay, az, mx, my, mz float64) {
	f.ahrsCalls++
}
func (f *recordingFilter) Quaternion() ahrs.Quaternion { return f.q }

// sliceSource serves samples then errs with io.EOF.
type sliceSource struct {
	samples []imu.Sample
	errAt   map[int]error
	n       int
}

func (s *sliceSource) Next() (imu.Sample, error) {
	defer func() { s.n++ }()
	if err, ok := s.errAt[s.n]; ok {
		return imu.Sample{}, err
	}
	if s.n >= len(s.samples) {
		return imu.Sample{}, io.EOF
	}
	return s.samples[s.n], nil
}

func level(n int) []imu.Sample {
	out := make([]imu.Sample, n)
	for i := range out {
		out[i] = imu.Sample{Az: 1, Mx: 20, Mz: 40}
	}
	return out
}

func TestStepSelectsUpdatePath(t *testing.T) {
	f := &recordingFilter{q: ahrs.Identity}
	d := &Driver{Name: "left", Filter: f, Source: &sliceSource{samples: level(4)}, SampleFrequencyHz: 100}

	_, err := d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.imuCalls, test.ShouldEqual, 1)
	test.That(t, f.ahrsCalls, test.ShouldEqual, 0)

	d.UseMagnetometer = true
	_, err = d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.imuCalls, test.ShouldEqual, 1)
	test.That(t, f.ahrsCalls, test.ShouldEqual, 1)
}

func TestStepPublishesInOrder(t *testing.T) {
	f, err := ahrs.New(ahrs.DefaultConfig(ahrs.KindMahony, 100))
	test.That(t, err, test.ShouldBeNil)

	var order []string
	var seqs []uint64
	failing := SinkFunc(func(Output) error {
		order = append(order, "failing")
		return errors.New("broker down")
	})
	recording := SinkFunc(func(out Output) error {
		order = append(order, "recording")
		seqs = append(seqs, out.Seq)
		return nil
	})

	d := &Driver{
		Name:              "left",
		Kind:              ahrs.KindMahony,
		Filter:            f,
		Source:            &sliceSource{samples: level(3)},
		SampleFrequencyHz: 100,
		Sinks:             []Sink{failing, recording},
	}

	var last Output
	for i := 0; i < 3; i++ {
		last, err = d.Step(time.Unix(int64(i), 0))
		test.That(t, err, test.ShouldBeNil)
	}

	test.That(t, order, test.ShouldResemble, []string{"failing", "recording", "failing", "recording", "failing", "recording"})
	test.That(t, seqs, test.ShouldResemble, []uint64{0, 1, 2})
	test.That(t, last.Stream, test.ShouldEqual, "left")
	test.That(t, last.Filter, test.ShouldEqual, ahrs.KindMahony)
	test.That(t, last.Time, test.ShouldResemble, time.Unix(2, 0))
	test.That(t, last.Quaternion, test.ShouldResemble, f.Quaternion())
	test.That(t, last.Reference, test.ShouldBeNil)

	_, err = uuid.Parse(last.RunID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, last.RunID, test.ShouldEqual, d.RunID())
}

func TestStepDerivesAnglesFromQuaternion(t *testing.T) {
	q := ahrs.Quaternion{Q0: 0.9238795325112867, Q1: 0.3826834323650898}
	d := &Driver{Filter: &recordingFilter{q: q}, Source: &sliceSource{samples: level(1)}, SampleFrequencyHz: 50}

	out, err := d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Euler.Roll, test.ShouldAlmostEqual, orientation.RadiansFromDegrees(45), 1e-9)
	test.That(t, out.Pose.Roll, test.ShouldAlmostEqual, 45.0, 1e-9)
	test.That(t, out.Pose.Pitch, test.ShouldAlmostEqual, 0.0, 1e-9)
}

func TestStepSourceErrorPublishesNothing(t *testing.T) {
	published := 0
	src := &sliceSource{samples: level(3), errAt: map[int]error{1: errors.New("spi timeout")}}
	d := &Driver{
		Filter:            &recordingFilter{q: ahrs.Identity},
		Source:            src,
		SampleFrequencyHz: 100,
		Sinks:             []Sink{SinkFunc(func(Output) error { published++; return nil })},
	}

	_, err := d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)
	_, err = d.Step(time.Now())
	test.That(t, err, test.ShouldNotBeNil)
	out, err := d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, published, test.ShouldEqual, 2)
	test.That(t, out.Seq, test.ShouldEqual, uint64(1))
}

func TestStepReferences(t *testing.T) {
	d := &Driver{
		Filter:            &recordingFilter{q: ahrs.Identity},
		Source:            &sliceSource{samples: []imu.Sample{{Ay: 1}}},
		Reference:         &AccelTilt{},
		SampleFrequencyHz: 100,
	}
	out, err := d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Reference, test.ShouldNotBeNil)
	test.That(t, out.Reference.Roll, test.ShouldAlmostEqual, 90.0)

	d = &Driver{
		Filter:            &recordingFilter{q: ahrs.Identity},
		Source:            &sliceSource{samples: level(1)},
		Reference:         orientation.SourceFunc(func() (orientation.Pose, error) { return orientation.Pose{}, errors.New("no fix") }),
		SampleFrequencyHz: 100,
	}
	out, err = d.Step(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Reference, test.ShouldBeNil)

	_, err = (&AccelTilt{}).Next()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDrainStopsAtEndOfSource(t *testing.T) {
	d := &Driver{Filter: &recordingFilter{q: ahrs.Identity}, Source: &sliceSource{samples: level(7)}, SampleFrequencyHz: 10}

	var stamps []time.Time
	d.Sinks = []Sink{SinkFunc(func(out Output) error { stamps = append(stamps, out.Time); return nil })}

	start := time.Unix(100, 0)
	n, err := d.Drain(start, 5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 5)
	test.That(t, stamps[4], test.ShouldResemble, start.Add(400*time.Millisecond))

	n, err = d.Drain(start, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 2)

	_, err = (&Driver{SampleFrequencyHz: 0}).Drain(start, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunStopsOnCancel(t *testing.T) {
	sim, err := sensors.NewSimulator(sensors.SimConfig{SampleFrequencyHz: 1000, Rate: [3]float64{0, 0, 0.1}})
	test.That(t, err, test.ShouldBeNil)
	f, err := ahrs.New(ahrs.DefaultConfig(ahrs.KindMadgwick, 1000))
	test.That(t, err, test.ShouldBeNil)

	published := 0
	d := &Driver{
		Name:              "sim",
		Kind:              ahrs.KindMadgwick,
		Filter:            f,
		Source:            sim,
		Reference:         sim.Reference(),
		SampleFrequencyHz: 1000,
		Sinks:             []Sink{SinkFunc(func(Output) error { published++; return nil })},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	test.That(t, d.Run(ctx), test.ShouldBeNil)
	test.That(t, published, test.ShouldBeGreaterThan, 0)
	test.That(t, uint64(published), test.ShouldEqual, sim.Samples())
}

func TestPeriodRejectsSubNanosecondRates(t *testing.T) {
	d := &Driver{Name: "fast", Filter: &recordingFilter{q: ahrs.Identity}, Source: &sliceSource{samples: level(3)}}

	d.SampleFrequencyHz = 1000
	period, err := d.Period()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, period, test.ShouldEqual, time.Millisecond)

	for _, hz := range []float64{0, -5, 2e9, math.Inf(1)} {
		d.SampleFrequencyHz = hz
		_, err := d.Period()
		test.That(t, err, test.ShouldNotBeNil)
	}

	// the filter accepts 2 GHz, the ticker cannot
	_, err = ahrs.New(ahrs.DefaultConfig(ahrs.KindMadgwick, 2e9))
	test.That(t, err, test.ShouldBeNil)
	d.SampleFrequencyHz = 2e9
	test.That(t, d.Run(context.Background()), test.ShouldNotBeNil)
	_, err = d.Drain(time.Now(), 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunReturnsWhenSourceExhausted(t *testing.T) {
	d := &Driver{Filter: &recordingFilter{q: ahrs.Identity}, Source: &sliceSource{samples: level(3)}, SampleFrequencyHz: 1000}

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the source was exhausted")
	}

	test.That(t, (&Driver{SampleFrequencyHz: -1}).Run(context.Background()), test.ShouldNotBeNil)
}

func TestEveryThrottlesByOutputTime(t *testing.T) {
	var got []uint64
	sink := Every(time.Second, SinkFunc(func(out Output) error { got = append(got, out.Seq); return nil }))

	start := time.Unix(0, 0)
	for i := 0; i < 25; i++ {
		test.That(t, sink.Publish(Output{Seq: uint64(i), Time: start.Add(time.Duration(i) * 100 * time.Millisecond)}), test.ShouldBeNil)
	}
	test.That(t, got, test.ShouldResemble, []uint64{0, 10, 20})
}

func TestOutputJSON(t *testing.T) {
	out := Output{RunID: "r", Stream: "left", Filter: ahrs.KindMadgwick, Quaternion: ahrs.Identity}
	b, err := json.Marshal(out)
	test.That(t, err, test.ShouldBeNil)

	var m map[string]any
	test.That(t, json.Unmarshal(b, &m), test.ShouldBeNil)
	test.That(t, m["run_id"], test.ShouldEqual, "r")
	test.That(t, m["filter"], test.ShouldEqual, "madgwick")
	_, hasRef := m["reference"]
	test.That(t, hasRef, test.ShouldBeFalse)
}
