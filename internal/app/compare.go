// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/orientation"
	"github.com/relabs-tech/fused/internal/sensors"
)

// FilterStats summarizes one filter's run over a trace.
type FilterStats struct {
	Kind     ahrs.Kind
	Final    orientation.Pose
	RMSError orientation.Pose // against the reference, when there is one
	MaxError orientation.Pose
}

// CompareReport is the outcome of running both filters on one trace.
type CompareReport struct {
	Samples       int
	HasReference  bool
	Filters       []FilterStats
	MaxDivergence orientation.Pose // largest per-axis |madgwick - mahony|
}

// Compare records up to n samples from the configured left stream and runs
// every filter kind over the identical samples.
func Compare(cfg *config.Config, n int) (CompareReport, sensors.Trace, error) {
	st, err := sensors.Open(cfg, sensors.Left)
	if err != nil {
		return CompareReport{}, sensors.Trace{}, err
	}
	tr, err := sensors.Record(st.Source, st.Truth, cfg.SampleFrequencyHz, n)
	if err != nil {
		return CompareReport{}, sensors.Trace{}, err
	}
	report, err := CompareTrace(cfg, tr)
	return report, tr, err
}

// CompareTrace runs Madgwick and Mahony over tr with the configured gains.
func CompareTrace(cfg *config.Config, tr sensors.Trace) (CompareReport, error) {
	kinds := []ahrs.Kind{ahrs.KindMadgwick, ahrs.KindMahony}

	// the trace carries its own truth; live references do not apply offline
	local := *cfg
	if local.Reference != "accel" {
		local.Reference = "none"
	}

	report := CompareReport{Samples: len(tr.Samples), HasReference: tr.HasTruth()}
	poses := make([][]orientation.Pose, len(kinds))

	start := time.Unix(0, 0)
	for i, kind := range kinds {
		rp := sensors.NewReplaySource(tr, false)
		st := sensors.Stream{Name: string(kind), Source: rp}

		d, err := newDriver(&local, kind, st, nil)
		if err != nil {
			return CompareReport{}, err
		}
		if report.HasReference {
			d.Reference = rp.Reference()
		}

		stats := FilterStats{Kind: kind}
		var sq orientation.Pose
		d.Sinks = []fusion.Sink{fusion.SinkFunc(func(out fusion.Output) error {
			poses[i] = append(poses[i], out.Pose)
			stats.Final = out.Pose
			if out.Reference != nil {
				e := orientation.Diff(out.Pose, *out.Reference)
				sq = addPose(sq, mulPose(e, e))
				stats.MaxError = maxAbsPose(stats.MaxError, e)
			}
			return nil
		})}

		if _, err := d.Drain(start, 0); err != nil {
			return CompareReport{}, fmt.Errorf("compare %s: %w", kind, err)
		}
		if report.HasReference && report.Samples > 0 {
			k := float64(report.Samples)
			stats.RMSError = orientation.Pose{
				Roll:  math.Sqrt(sq.Roll / k),
				Pitch: math.Sqrt(sq.Pitch / k),
				Yaw:   math.Sqrt(sq.Yaw / k),
			}
		}
		report.Filters = append(report.Filters, stats)
	}

	for j := range poses[0] {
		report.MaxDivergence = maxAbsPose(report.MaxDivergence, orientation.Diff(poses[0][j], poses[1][j]))
	}
	return report, nil
}

// RunCompare prints a comparison over n samples, optionally saving the trace.
func RunCompare(n int, tracePath string) error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}

	report, tr, err := Compare(cfg, n)
	if err != nil {
		return err
	}

	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		if err := sensors.EncodeTrace(f, tr); err != nil {
			return err
		}
		fmt.Printf("trace written to %s\n", tracePath)
	}

	fmt.Printf("samples: %d at %.1f Hz (source %s, magnetometer %v)\n",
		report.Samples, cfg.SampleFrequencyHz, cfg.SampleSource, cfg.UseMagnetometer)
	for _, s := range report.Filters {
		fmt.Printf("%-9s final R=%7.2f P=%7.2f Y=%7.2f", s.Kind, s.Final.Roll, s.Final.Pitch, s.Final.Yaw)
		if report.HasReference {
			fmt.Printf(" | rms R=%.3f P=%.3f Y=%.3f | max R=%.3f P=%.3f Y=%.3f",
				s.RMSError.Roll, s.RMSError.Pitch, s.RMSError.Yaw,
				s.MaxError.Roll, s.MaxError.Pitch, s.MaxError.Yaw)
		}
		fmt.Println()
	}
	fmt.Printf("max divergence R=%.3f P=%.3f Y=%.3f\n",
		report.MaxDivergence.Roll, report.MaxDivergence.Pitch, report.MaxDivergence.Yaw)
	return nil
}

func addPose(a, b orientation.Pose) orientation.Pose {
	return orientation.Pose{Roll: a.Roll + b.Roll, Pitch: a.Pitch + b.Pitch, Yaw: a.Yaw + b.Yaw}
}

func mulPose(a, b orientation.Pose) orientation.Pose {
	return orientation.Pose{Roll: a.Roll * b.Roll, Pitch: a.Pitch * b.Pitch, Yaw: a.Yaw * b.Yaw}
}

func maxAbsPose(m, e orientation.Pose) orientation.Pose {
	return orientation.Pose{
		Roll:  math.Max(m.Roll, math.Abs(e.Roll)),
		Pitch: math.Max(m.Pitch, math.Abs(e.Pitch)),
		Yaw:   math.Max(m.Yaw, math.Abs(e.Yaw)),
	}
}
