// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/fused/internal/orientation"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "2025-12-06"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
}

// ParseLine parses one NMEA line. ok is false for lines that are not RMC
// sentences; err is set only for malformed sentences.
func ParseLine(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("nmea parse: %w", err)
	}

	m, isRMC := sentence.(nmea.RMC)
	if !isRMC {
		return Fix{}, false, nil
	}

	return Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   string(m.Validity),
	}, true, nil
}

// HeadingReference returns the course over ground as a yaw-only reference
// pose. Course is meaningless when stationary, so fixes that are void or
// slower than minSpeedKnots are rejected.
func (f Fix) HeadingReference(minSpeedKnots float64) (orientation.Pose, bool) {
	if f.Validity != string(nmea.ValidRMC) || f.SpeedKnots < minSpeedKnots {
		return orientation.Pose{}, false
	}
	return orientation.Pose{Yaw: orientation.WrapDegrees(f.CourseDeg)}, true
}
