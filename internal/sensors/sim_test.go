package sensors

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/step_counter/internal/accel"
)

func TestSimSourceEmitsGaitLikeReadings(t *testing.T) {
	src := NewSimSource(time.Millisecond)

	if src.Name() != "simulator" {
		t.Fatalf("unexpected name %q", src.Name())
	}
	if err := src.RequestPermission(); err != nil {
		t.Fatalf("simulator permission: %v", err)
	}

	var mu sync.Mutex
	var readings []accel.Reading
	err := src.Start(func(r accel.Reading) {
		mu.Lock()
		readings = append(readings, r)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(readings)
		mu.Unlock()
		if n >= 10 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d readings arrived", n)
		}
		time.Sleep(time.Millisecond)
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, r := range readings {
		mag := r.Magnitude()
		// Oscillates around gravity, amplitude 1.6.
		if mag < 9.8-1.7 || mag > 9.8+1.7 {
			t.Fatalf("magnitude %v outside the simulated gait envelope", mag)
		}
		if math.IsNaN(mag) {
			t.Fatal("NaN magnitude from simulator")
		}
		if r.Timestamp.IsZero() {
			t.Fatal("simulator reading missing timestamp")
		}
	}
}

func TestSimSourceStopIsIdempotent(t *testing.T) {
	src := NewSimSource(time.Millisecond)
	if err := src.Stop(); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	if err := src.Start(func(accel.Reading) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := src.Start(func(accel.Reading) {}); err == nil {
		t.Fatal("second start must fail")
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
