// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides the sample sources that feed the filters: the
// MPU9250 over SPI, a deterministic simulator, and recorded YAML traces.
package sensors

import (
	"fmt"

	"github.com/relabs-tech/fused/internal/config"
	"github.com/relabs-tech/fused/internal/imu"
	"github.com/relabs-tech/fused/internal/orientation"
)

// Side names a sensor stream.
const (
	Left  = "left"
	Right = "right"
)

// Stream is an opened sample source plus, when the source knows it, the true
// orientation for each sample.
type Stream struct {
	Name   string
	Source imu.Source
	Truth  orientation.Source // nil unless the source records ground truth
}

// Open builds the sample source for side according to cfg.SampleSource.
func Open(cfg *config.Config, side string) (Stream, error) {
	switch cfg.SampleSource {
	case "mpu9250":
		scale, err := imu.ScaleForRanges(cfg.IMUAccelRange, cfg.IMUGyroRange)
		if err != nil {
			return Stream{}, fmt.Errorf("%s IMU: %w", side, err)
		}
		spiDev, csPin := cfg.IMULeftSPIDevice, cfg.IMULeftCSPin
		if side == Right {
			spiDev, csPin = cfg.IMURightSPIDevice, cfg.IMURightCSPin
		}
		src, err := NewMPU9250Source(side, spiDev, csPin, scale)
		if err != nil {
			return Stream{}, err
		}
		return Stream{Name: side, Source: src}, nil

	case "sim":
		seed := cfg.SimSeed
		if side == Right {
			seed++
		}
		sim, err := NewSimulator(SimConfig{
			SampleFrequencyHz: cfg.SampleFrequencyHz,
			Rate:              [3]float64{cfg.SimRateX, cfg.SimRateY, cfg.SimRateZ},
			GyroNoise:         cfg.SimGyroNoise,
			AccelNoise:        cfg.SimAccNoise,
			MagNoise:          cfg.SimMagNoise,
			Seed:              seed,
		})
		if err != nil {
			return Stream{}, err
		}
		return Stream{Name: side, Source: sim, Truth: sim.Reference()}, nil

	case "replay":
		tr, err := LoadTrace(cfg.ReplayFile)
		if err != nil {
			return Stream{}, err
		}
		rp := NewReplaySource(tr, false)
		return Stream{Name: side, Source: rp, Truth: rp.Reference()}, nil

	default:
		return Stream{}, fmt.Errorf("unknown sample source %q", cfg.SampleSource)
	}
}

// Sides returns the streams cfg enables, left first.
func Sides(cfg *config.Config) []string {
	if cfg.IMURightEnabled {
		return []string{Left, Right}
	}
	return []string{Left}
}
