// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestCourseReference(t *testing.T) {
	now := time.Unix(1000, 0)
	ref := NewCourseReference(2, 5*time.Second)
	ref.now = func() time.Time { return now }

	_, err := ref.Next()
	test.That(t, errors.Is(err, ErrNoCourse), test.ShouldBeTrue)
	_, ok := ref.Latest()
	test.That(t, ok, test.ShouldBeFalse)

	ref.Update(Fix{Validity: "A", SpeedKnots: 10, CourseDeg: 270})
	p, err := ref.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Yaw, test.ShouldAlmostEqual, -90.0)
	fix, ok := ref.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.CourseDeg, test.ShouldEqual, 270.0)

	now = now.Add(6 * time.Second)
	_, err = ref.Next()
	test.That(t, errors.Is(err, ErrNoCourse), test.ShouldBeTrue)

	ref.Update(Fix{Validity: "A", SpeedKnots: 1, CourseDeg: 90})
	_, err = ref.Next()
	test.That(t, errors.Is(err, ErrNoCourse), test.ShouldBeTrue)

	ref.Update(Fix{Validity: "V", SpeedKnots: 20, CourseDeg: 90})
	_, err = ref.Next()
	test.That(t, errors.Is(err, ErrNoCourse), test.ShouldBeTrue)
}

func TestCourseReferenceWithoutMaxAge(t *testing.T) {
	ref := &CourseReference{MinSpeedKnots: 0}
	ref.Update(Fix{Validity: "A", CourseDeg: 45})
	p, err := ref.Next()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Yaw, test.ShouldAlmostEqual, 45.0)
}
