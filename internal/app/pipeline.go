// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/fused/internal/ahrs"
	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/fusion"
	"github.com/relabs-tech/fused/internal/gps"
	"github.com/relabs-tech/fused/internal/orientation"
	"github.com/relabs-tech/fused/internal/sensors"
)

// filterConfig maps the configured gains onto an ahrs.Config for kind.
func filterConfig(cfg *config.Config, kind ahrs.Kind) ahrs.Config {
	return ahrs.Config{
		Kind:              kind,
		SampleFrequencyHz: cfg.SampleFrequencyHz,
		Beta:              cfg.MadgwickBeta,
		TwoKp:             cfg.MahonyTwoKp,
		TwoKi:             cfg.MahonyTwoKi,
	}
}

// newDriver builds the driver for one stream with the configured filter.
// course is the shared GPS reference and may be nil unless REFERENCE=gps.
func newDriver(cfg *config.Config, kind ahrs.Kind, st sensors.Stream, course *gps.CourseReference) (*fusion.Driver, error) {
	f, err := ahrs.New(filterConfig(cfg, kind))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", st.Name, err)
	}

	var ref orientation.Source
	switch cfg.Reference {
	case "accel":
		ref = &fusion.AccelTilt{}
	case "gps":
		if course == nil {
			return nil, fmt.Errorf("%s: gps reference requested but no GPS feed", st.Name)
		}
		ref = course
	case "sim":
		ref = st.Truth
	}

	return &fusion.Driver{
		Name:              st.Name,
		Kind:              kind,
		Filter:            f,
		Source:            st.Source,
		Reference:         ref,
		UseMagnetometer:   cfg.UseMagnetometer,
		SampleFrequencyHz: cfg.SampleFrequencyHz,
	}, nil
}

// consoleSink logs one line per interval.
func consoleSink(interval time.Duration) fusion.Sink {
	return fusion.Every(interval, fusion.SinkFunc(func(out fusion.Output) error {
		log.Print(formatOutput(out))
		return nil
	}))
}

func formatOutput(out fusion.Output) string {
	line := fmt.Sprintf("%s %-5s #%d %s R=%7.2f P=%7.2f Y=%7.2f | q=(%.4f, %.4f, %.4f, %.4f)",
		out.Time.Format(time.RFC3339), out.Stream, out.Seq, out.Filter,
		out.Pose.Roll, out.Pose.Pitch, out.Pose.Yaw,
		out.Quaternion.Q0, out.Quaternion.Q1, out.Quaternion.Q2, out.Quaternion.Q3,
	)
	if out.Reference != nil {
		d := orientation.Diff(out.Pose, *out.Reference)
		line += fmt.Sprintf(" | ref R=%7.2f P=%7.2f Y=%7.2f (dR=%.2f dP=%.2f dY=%.2f)",
			out.Reference.Roll, out.Reference.Pitch, out.Reference.Yaw, d.Roll, d.Pitch, d.Yaw)
	}
	return line
}
