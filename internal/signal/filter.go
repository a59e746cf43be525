package signal

import "math"

// smoothingSpan is the number of trailing readings averaged by Smoothed.
// Kept short so single-sample spikes are suppressed without blurring
// genuine gait peaks.
const smoothingSpan = 3

// Smoothed returns the arithmetic mean of the magnitudes of the last
// three buffered readings, or 0 while fewer than three are buffered.
// A transient 0 is harmless: it sits below any realistic valley gate
// and the detector starts out waiting for a peak.
func Smoothed(w *Window) float64 {
	recent := w.Recent(smoothingSpan)
	if len(recent) < smoothingSpan {
		return 0
	}
	var sum float64
	for _, r := range recent {
		sum += r.Magnitude()
	}
	return sum / smoothingSpan
}

// MeanStdDev computes the mean and population standard deviation of the
// magnitudes of every buffered reading. Used by dynamic threshold
// adaptation once the window is full.
func MeanStdDev(w *Window) (mean, stddev float64) {
	all := w.Recent(w.Len())
	if len(all) == 0 {
		return 0, 0
	}
	for _, r := range all {
		mean += r.Magnitude()
	}
	mean /= float64(len(all))

	var variance float64
	for _, r := range all {
		d := r.Magnitude() - mean
		variance += d * d
	}
	variance /= float64(len(all))
	return mean, math.Sqrt(variance)
}
