// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/step_counter/internal/accel"
)

// SimSource generates a synthetic walking gait for development machines
// without a motion sensor: the magnitude oscillates around the gravity
// baseline at a steady cadence, most of it on the Z axis.
type SimSource struct {
	interval time.Duration
	cadence  float64 // step cycles per second
	amp      float64 // oscillation amplitude in m/s²

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSimSource creates a simulator emitting one reading per interval.
func NewSimSource(interval time.Duration) *SimSource {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &SimSource{interval: interval, cadence: 1.8, amp: 1.6}
}

// Name identifies the simulator platform class.
func (s *SimSource) Name() string { return "simulator" }

// RequestPermission always succeeds: there is nothing to ask for.
func (s *SimSource) RequestPermission() error { return nil }

// Start begins emitting synthetic readings on a ticker goroutine.
func (s *SimSource) Start(push accel.PushFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("simulator already started")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	stop, done := s.stop, s.done
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				push(s.reading(t, t.Sub(start).Seconds()))
			}
		}
	}()
	return nil
}

// reading synthesizes one sample whose magnitude follows a sinusoid
// around 9.8 m/s², with small lateral components so the axes look alive.
func (s *SimSource) reading(t time.Time, elapsed float64) accel.Reading {
	mag := 9.8 + s.amp*math.Sin(2*math.Pi*s.cadence*elapsed)
	x := 0.4 * math.Sin(elapsed*0.9)
	y := 0.3 * math.Cos(elapsed*1.3)
	z := math.Sqrt(mag*mag - x*x - y*y)
	return accel.Reading{X: x, Y: y, Z: z, Timestamp: t}
}

// Stop halts the ticker goroutine and waits for it to exit.
func (s *SimSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	return nil
}
