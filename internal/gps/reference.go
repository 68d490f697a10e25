// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"sync"
	"time"

	"github.com/relabs-tech/fused/internal/orientation"
)

// ErrNoCourse is returned while no usable fix is available.
var ErrNoCourse = errors.New("gps: no usable course over ground")

// CourseReference turns the latest GPS fix into a yaw reference. Fixes are
// delivered from another goroutine (an MQTT handler) via Update.
type CourseReference struct {
	MinSpeedKnots float64
	MaxAge        time.Duration // 0 disables the staleness check

	mu      sync.RWMutex
	fix     Fix
	updated time.Time
	now     func() time.Time
}

var _ orientation.Source = (*CourseReference)(nil)

// NewCourseReference returns a reference that rejects fixes slower than
// minSpeedKnots or older than maxAge.
func NewCourseReference(minSpeedKnots float64, maxAge time.Duration) *CourseReference {
	return &CourseReference{MinSpeedKnots: minSpeedKnots, MaxAge: maxAge, now: time.Now}
}

// Update stores fix as the latest one.
func (c *CourseReference) Update(fix Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fix = fix
	c.updated = c.clock()
}

// Latest returns the most recent fix and whether one was received.
func (c *CourseReference) Latest() (Fix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fix, !c.updated.IsZero()
}

// Next returns the yaw reference for the latest fix.
func (c *CourseReference) Next() (orientation.Pose, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.updated.IsZero() {
		return orientation.Pose{}, ErrNoCourse
	}
	if c.MaxAge > 0 && c.clock().Sub(c.updated) > c.MaxAge {
		return orientation.Pose{}, ErrNoCourse
	}
	p, ok := c.fix.HeadingReference(c.MinSpeedKnots)
	if !ok {
		return orientation.Pose{}, ErrNoCourse
	}
	return p, nil
}

func (c *CourseReference) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
