package calibration

import (
	"fmt"
	"time"
)

// Profile bundles the detection constants tuned for one class of
// device/platform. A profile is picked once when the reading source is
// selected; only the peak and valley gates are refined afterwards.
type Profile struct {
	Name string

	// StepThreshold is the minimum peak-to-valley drop accepted as a
	// step. Fixed: it encodes the minimum confidence bar.
	StepThreshold float64

	// PeakThreshold and ValleyThreshold are absolute magnitude gates
	// around the ~9.8 m/s² gravity baseline. Refined at runtime by Adapt.
	PeakThreshold   float64
	ValleyThreshold float64

	// MinStepInterval is the debounce window between counted steps.
	// Fixed, like StepThreshold.
	MinStepInterval time.Duration

	// BufferSize is the sliding-window capacity.
	BufferSize int

	// K scales the stddev term during dynamic threshold adaptation.
	K float64

	// Clamp keeps adapted gates on the correct side of the gravity
	// baseline on platforms with noisier sensors.
	Clamp bool
}

// clampBaseline is the pivot for clamped profiles: the adapted peak gate
// never drops below it and the adapted valley gate never rises above it.
const clampBaseline = 9.5

var profiles = map[string]Profile{
	"native": {
		Name:            "native",
		StepThreshold:   1.0,
		PeakThreshold:   10.2,
		ValleyThreshold: 9.4,
		MinStepInterval: 250 * time.Millisecond,
		BufferSize:      20,
		K:               0.5,
	},
	"serial": {
		Name:            "serial",
		StepThreshold:   1.0,
		PeakThreshold:   10.2,
		ValleyThreshold: 9.4,
		MinStepInterval: 250 * time.Millisecond,
		BufferSize:      20,
		K:               0.5,
	},
	"browser-ios": {
		Name:            "browser-ios",
		StepThreshold:   1.2,
		PeakThreshold:   10.5,
		ValleyThreshold: 9.5,
		MinStepInterval: 300 * time.Millisecond,
		BufferSize:      15,
		K:               0.3,
		Clamp:           true,
	},
	"browser-other": {
		Name:            "browser-other",
		StepThreshold:   1.1,
		PeakThreshold:   10.3,
		ValleyThreshold: 9.5,
		MinStepInterval: 300 * time.Millisecond,
		BufferSize:      18,
		K:               0.5,
	},
	"simulator": {
		Name:            "simulator",
		StepThreshold:   0.8,
		PeakThreshold:   10.0,
		ValleyThreshold: 9.6,
		MinStepInterval: 200 * time.Millisecond,
		BufferSize:      15,
		K:               0.5,
	},
}

// Named returns the profile for the given platform class.
func Named(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown calibration profile %q", name)
	}
	return p, nil
}

// Adapt recomputes the peak and valley gates from the mean and standard
// deviation of the magnitudes currently buffered, so detection tracks
// the current activity intensity. StepThreshold and MinStepInterval are
// never touched.
func (p *Profile) Adapt(mean, stddev float64) {
	peak := mean + p.K*stddev
	valley := mean - p.K*stddev
	if p.Clamp {
		if peak < clampBaseline {
			peak = clampBaseline
		}
		if valley > clampBaseline {
			valley = clampBaseline
		}
	}
	p.PeakThreshold = peak
	p.ValleyThreshold = valley
}
