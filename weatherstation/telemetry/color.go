package telemetry

import "golang.org/x/exp/constraints"

// Color is an RGB actuator color. Channels are bytes, so a stored Color is
// always within [0,255].
type Color struct {
	R, G, B uint8
}

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampColor builds a Color from arbitrary integers, clamping each channel
// to [0,255].
func ClampColor(r, g, b int) Color {
	return Color{
		R: uint8(Clamp(r, 0, 255)),
		G: uint8(Clamp(g, 0, 255)),
		B: uint8(Clamp(b, 0, 255)),
	}
}
