package signal

import (
	"math"
	"testing"

	"github.com/relabs-tech/step_counter/internal/accel"
)

func TestSmoothedReturnsZeroBeforeThreeReadings(t *testing.T) {
	w := NewWindow(15)
	if got := Smoothed(w); got != 0 {
		t.Fatalf("empty window: expected 0, got %v", got)
	}
	w.Push(accel.Reading{Z: 9.8})
	w.Push(accel.Reading{Z: 9.8})
	if got := Smoothed(w); got != 0 {
		t.Fatalf("two readings: expected 0, got %v", got)
	}
}

func TestSmoothedAveragesLastThreeMagnitudes(t *testing.T) {
	w := NewWindow(15)
	// An older reading that must not influence the mean.
	w.Push(accel.Reading{Z: 100})
	w.Push(accel.Reading{Z: 9})
	w.Push(accel.Reading{Z: 10})
	w.Push(accel.Reading{Z: 11})

	want := (9.0 + 10.0 + 11.0) / 3
	if got := Smoothed(w); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMeanStdDev(t *testing.T) {
	w := NewWindow(4)
	for _, z := range []float64{9, 9, 11, 11} {
		w.Push(accel.Reading{Z: z})
	}

	mean, stddev := MeanStdDev(w)
	if math.Abs(mean-10) > 1e-9 {
		t.Fatalf("expected mean 10, got %v", mean)
	}
	if math.Abs(stddev-1) > 1e-9 {
		t.Fatalf("expected stddev 1, got %v", stddev)
	}
}

func TestMeanStdDevEmptyWindow(t *testing.T) {
	w := NewWindow(4)
	mean, stddev := MeanStdDev(w)
	if mean != 0 || stddev != 0 {
		t.Fatalf("expected 0, 0 on empty window, got %v, %v", mean, stddev)
	}
}
