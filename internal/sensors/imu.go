// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/step_counter/internal/accel"
)

// gravity converts g units to m/s².
const gravity = 9.80665

// IMUSource reads the accelerometer of an MPU9250 over SPI and pushes
// scaled readings at a fixed sample interval.
type IMUSource struct {
	imu      *mpu9250.MPU9250
	interval time.Duration
	scale    float64 // raw int16 counts → m/s²

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewIMUSource initializes the MPU9250 on the given SPI device with the
// given chip-select pin. accelRange selects 0=±2g .. 3=±16g. A missing
// or unresponsive device reports accel.ErrDeviceUnsupported.
func NewIMUSource(spiDev, csPin string, accelRange byte, interval time.Duration) (*IMUSource, error) {
	if accelRange > 3 {
		return nil, fmt.Errorf("accel range must be 0-3, got %d", accelRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %v", accel.ErrDeviceUnsupported, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%w: CS pin %q not found", accel.ErrDeviceUnsupported, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%w: SPI transport (%s): %v", accel.ErrDeviceUnsupported, spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%w: device creation: %v", accel.ErrDeviceUnsupported, err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%w: initialization: %v", accel.ErrDeviceUnsupported, err)
	}

	fullScaleG := []float64{2, 4, 8, 16}[accelRange]
	log.Printf("IMU: accelerometer range ±%.0fg on %s (CS %s)", fullScaleG, spiDev, csPin)

	return &IMUSource{
		imu:      imu,
		interval: interval,
		scale:    fullScaleG * gravity / 32768,
	}, nil
}

// Name identifies the native platform class.
func (s *IMUSource) Name() string { return "native" }

// RequestPermission always succeeds: a wired sensor needs no grant.
func (s *IMUSource) RequestPermission() error { return nil }

// Start polls the accelerometer on a ticker goroutine. A failed read is
// transient: it is logged and that sample is dropped.
func (s *IMUSource) Start(push accel.PushFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("IMU source already started")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	stop, done := s.stop, s.done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				r, err := s.read(t)
				if err != nil {
					log.Printf("IMU read error: %v", err)
					continue
				}
				push(r)
			}
		}
	}()
	return nil
}

func (s *IMUSource) read(t time.Time) (accel.Reading, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return accel.Reading{}, fmt.Errorf("acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return accel.Reading{}, fmt.Errorf("acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return accel.Reading{}, fmt.Errorf("acc Z: %w", err)
	}

	return accel.Reading{
		X:         float64(ax) * s.scale,
		Y:         float64(ay) * s.scale,
		Z:         float64(az) * s.scale,
		Timestamp: t,
	}, nil
}

// Stop halts the polling goroutine and waits for it to exit.
func (s *IMUSource) Stop() error {
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
