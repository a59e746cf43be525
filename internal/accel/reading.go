package accel

import (
	"math"
	"time"
)

// Reading represents a single triaxial accelerometer sample in m/s².
type Reading struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	Timestamp time.Time `json:"timestamp"`
}

// Magnitude returns the Euclidean norm of the acceleration vector.
// At rest this sits near the gravity baseline of ~9.8 m/s².
func (r Reading) Magnitude() float64 {
	return math.Sqrt(r.X*r.X + r.Y*r.Y + r.Z*r.Z)
}
