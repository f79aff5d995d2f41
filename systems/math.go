package systems

import "math"

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// NormalizeAngle wraps an angle to [-Pi, Pi).
func NormalizeAngle(angle float32) float32 {
	const twoPi = 2 * math.Pi
	a := math.Mod(float64(angle)+math.Pi, twoPi)
	if a < 0 {
		a += twoPi
	}
	r := float32(a - math.Pi)
	// float32(Pi) rounds above Pi; keep the interval half-open.
	if r >= float32(math.Pi) {
		r = -float32(math.Pi)
	}
	return r
}

// Wrap maps v into [0, size) using a Euclidean modulo.
func Wrap(v, size float32) float32 {
	r := float32(math.Mod(float64(v), float64(size)))
	if r < 0 {
		r += size
	}
	// A tiny negative remainder can round up to size.
	if r >= size {
		r = 0
	}
	return r
}

// distance returns the Euclidean distance between two points.
func distance(x1, y1, x2, y2 float32) float32 {
	dx := x1 - x2
	dy := y1 - y2
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}
