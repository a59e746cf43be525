// Package detector implements the peak/valley state machine that turns a
// stream of smoothed acceleration magnitudes into step events.
package detector

import (
	"time"

	"github.com/relabs-tech/step_counter/internal/calibration"
)

// Detector is a two-state machine. It waits for the smoothed magnitude
// to cross the peak gate, then for a valley crossing that is both deep
// enough (StepThreshold) and late enough (MinStepInterval) before
// counting a step and re-arming.
//
// Two behaviors are deliberate and empirically tuned, not bugs: the
// first sample crossing the peak gate is captured as the peak reference
// (not the true local maximum of the ascent), and a rejected valley
// crossing leaves the machine waiting for a valley rather than re-arming.
type Detector struct {
	waitingForValley bool
	lastPeak         float64
	lastStepTime     time.Time
}

// New returns a detector in its initial state, awaiting a peak.
func New() *Detector {
	return &Detector{}
}

// Process evaluates one smoothed magnitude sample against the active
// profile and reports whether it completed a step.
func (d *Detector) Process(magnitude float64, t time.Time, p *calibration.Profile) bool {
	if !d.waitingForValley {
		if magnitude > p.PeakThreshold {
			d.waitingForValley = true
			d.lastPeak = magnitude
		}
		return false
	}

	if magnitude >= p.ValleyThreshold {
		return false
	}
	if t.Sub(d.lastStepTime) < p.MinStepInterval {
		return false
	}
	if d.lastPeak-magnitude < p.StepThreshold {
		return false
	}

	d.waitingForValley = false
	d.lastStepTime = t
	return true
}

// Reset returns the machine to its initial state.
func (d *Detector) Reset() {
	d.waitingForValley = false
	d.lastPeak = 0
	d.lastStepTime = time.Time{}
}

// WaitingForValley reports whether a peak has been seen and the machine
// is waiting for the matching valley. Exposed for diagnostics.
func (d *Detector) WaitingForValley() bool { return d.waitingForValley }

// LastPeak returns the magnitude captured at the most recent peak-gate
// crossing. Exposed for diagnostics.
func (d *Detector) LastPeak() float64 { return d.lastPeak }
