package signal

import (
	"testing"
	"time"

	"github.com/relabs-tech/step_counter/internal/accel"
)

func reading(z float64, seq int) accel.Reading {
	return accel.Reading{
		Z:         z,
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(seq) * 100 * time.Millisecond),
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	w := NewWindow(20)

	// Pushing capacity+5 readings must leave exactly the last 20,
	// in order, oldest evicted first.
	for i := 1; i <= 25; i++ {
		w.Push(reading(float64(i), i))
		if w.Len() > 20 {
			t.Fatalf("window grew past capacity: %d", w.Len())
		}
	}

	if w.Len() != 20 {
		t.Fatalf("expected 20 buffered readings, got %d", w.Len())
	}
	all := w.Recent(20)
	for i, r := range all {
		want := float64(i + 6) // readings 6..25 survive
		if r.Z != want {
			t.Fatalf("position %d: expected reading %v, got %v", i, want, r.Z)
		}
	}
}

func TestWindowRecentBeforeFill(t *testing.T) {
	w := NewWindow(15)
	w.Push(reading(1, 1))
	w.Push(reading(2, 2))

	got := w.Recent(3)
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if got[0].Z != 1 || got[1].Z != 2 {
		t.Fatalf("unexpected order: %v, %v", got[0].Z, got[1].Z)
	}
	if w.Full() {
		t.Fatal("window reported full with 2 of 15 readings")
	}
}
