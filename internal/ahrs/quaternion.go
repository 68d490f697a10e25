// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is the orientation estimate handed out by a filter.
// Q0 is the scalar part; Q1..Q3 are the vector part.
type Quaternion struct {
	Q0 float64 `json:"q0"`
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// Identity is the "no rotation" quaternion every filter starts from.
var Identity = Quaternion{Q0: 1}

// Norm returns the Euclidean length of q.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.number())
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.Q0, Imag: q.Q1, Jmag: q.Q2, Kmag: q.Q3}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{Q0: n.Real, Q1: n.Imag, Q2: n.Jmag, Q3: n.Kmag}
}

// gyroRate returns the quaternion derivative 0.5 * q ⊗ (0, ω) for body rates in rad/s.
func gyroRate(q quat.Number, gx, gy, gz float64) quat.Number {
	return quat.Scale(0.5, quat.Mul(q, quat.Number{Imag: gx, Jmag: gy, Kmag: gz}))
}

// integrate advances q by qDot over dt and renormalizes the result.
func integrate(q, qDot quat.Number, dt float64) quat.Number {
	return normalize(quat.Add(q, quat.Scale(dt, qDot)))
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity.number()
	}
	return quat.Scale(1/n, q)
}

// toBody rotates an earth frame vector into the sensor frame: q* ⊗ v ⊗ q.
func toBody(q quat.Number, v vec3) vec3 {
	r := quat.Mul(quat.Mul(quat.Conj(q), quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}), q)
	return vec3{r.Imag, r.Jmag, r.Kmag}
}

// toEarth rotates a sensor frame vector into the earth frame: q ⊗ v ⊗ q*.
func toEarth(q quat.Number, v vec3) vec3 {
	r := quat.Mul(quat.Mul(q, quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}), quat.Conj(q))
	return vec3{r.Imag, r.Jmag, r.Kmag}
}

// vec3 is a plain 3-vector used for measured and predicted directions.
type vec3 [3]float64

func (v vec3) dot(w vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (v vec3) cross(w vec3) vec3 {
	return vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v vec3) add(w vec3) vec3 {
	return vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

func (v vec3) scale(f float64) vec3 {
	return vec3{v[0] * f, v[1] * f, v[2] * f}
}

func (v vec3) isZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// normalized returns v scaled to unit length. ok is false for the zero
// vector, in which case v is returned untouched.
func (v vec3) normalized() (vec3, bool) {
	if v.isZero() {
		return v, false
	}
	return v.scale(1 / math.Sqrt(v.dot(v))), true
}
