package posture

import (
	"math"

	"github.com/golang/geo/r3"
)

const degreesPerRadian = 180 / math.Pi

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b r3.Vector) r3.Vector {
	return a.Add(b).Mul(0.5)
}

// HorizontalTilt returns how far the line from p1 to p2 deviates from
// horizontal, in degrees within [0, 180].
func HorizontalTilt(p1, p2 r3.Vector) float64 {
	return math.Abs(math.Atan2(p2.Y-p1.Y, p2.X-p1.X)) * degreesPerRadian
}

// VerticalOffset returns how far the line between an upper and a lower point
// deviates from vertical, in degrees within [0, 90].
// Coincident points read as 0.
func VerticalOffset(top, bottom r3.Vector) float64 {
	dx := math.Abs(top.X - bottom.X)
	dy := math.Abs(top.Y - bottom.Y)
	return math.Abs(math.Atan2(dx, dy)) * degreesPerRadian
}

// roundTenth rounds v to one decimal place.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
