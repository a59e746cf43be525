package signal

import "github.com/relabs-tech/step_counter/internal/accel"

// Window is a fixed-capacity FIFO of the most recent accelerometer
// readings. When full, pushing evicts the oldest entry first.
type Window struct {
	capacity int
	readings []accel.Reading
}

// NewWindow creates a window holding at most capacity readings.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		readings: make([]accel.Reading, 0, capacity),
	}
}

// Push appends a reading, evicting the oldest one if the window is full.
func (w *Window) Push(r accel.Reading) {
	if len(w.readings) == w.capacity {
		copy(w.readings, w.readings[1:])
		w.readings = w.readings[:w.capacity-1]
	}
	w.readings = append(w.readings, r)
}

// Recent returns the last n readings, oldest first, or fewer if the
// window has not yet filled that far.
func (w *Window) Recent(n int) []accel.Reading {
	if n > len(w.readings) {
		n = len(w.readings)
	}
	return w.readings[len(w.readings)-n:]
}

// Len returns the number of buffered readings.
func (w *Window) Len() int { return len(w.readings) }

// Cap returns the window capacity.
func (w *Window) Cap() int { return w.capacity }

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool { return len(w.readings) == w.capacity }
