package calibration

import (
	"math"
	"testing"
)

func TestNamedProfiles(t *testing.T) {
	for _, name := range []string{"native", "serial", "browser-ios", "browser-other", "simulator"} {
		p, err := Named(name)
		if err != nil {
			t.Fatalf("profile %q: %v", name, err)
		}
		if p.BufferSize < 15 || p.BufferSize > 20 {
			t.Fatalf("profile %q: buffer size %d outside 15-20", name, p.BufferSize)
		}
		if p.PeakThreshold <= p.ValleyThreshold {
			t.Fatalf("profile %q: peak gate %v not above valley gate %v", name, p.PeakThreshold, p.ValleyThreshold)
		}
	}

	if _, err := Named("toaster"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestAdaptRecomputesGatesOnly(t *testing.T) {
	p, _ := Named("native")
	step, interval := p.StepThreshold, p.MinStepInterval

	p.Adapt(10.0, 1.0)

	if math.Abs(p.PeakThreshold-10.5) > 1e-9 {
		t.Fatalf("expected peak gate 10.5, got %v", p.PeakThreshold)
	}
	if math.Abs(p.ValleyThreshold-9.5) > 1e-9 {
		t.Fatalf("expected valley gate 9.5, got %v", p.ValleyThreshold)
	}
	if p.StepThreshold != step || p.MinStepInterval != interval {
		t.Fatal("adaptation must not touch StepThreshold or MinStepInterval")
	}
}

func TestAdaptClampsNoisyProfiles(t *testing.T) {
	p, _ := Named("browser-ios")

	// Nearly flat signal well below the baseline: unclamped, both gates
	// would land around 8.0 and the detector would fire on noise.
	p.Adapt(8.0, 0.1)

	if p.PeakThreshold < 9.5 {
		t.Fatalf("clamped peak gate fell below baseline: %v", p.PeakThreshold)
	}
	if p.ValleyThreshold > 9.5 {
		t.Fatalf("clamped valley gate rose above baseline: %v", p.ValleyThreshold)
	}

	// An unclamped profile follows the data wherever it goes.
	q, _ := Named("browser-other")
	q.Adapt(8.0, 0.1)
	if q.PeakThreshold >= 9.5 {
		t.Fatalf("unclamped peak gate should track the data, got %v", q.PeakThreshold)
	}
}
