// Package engine wires a reading source through the signal window,
// smoothing filter, and step detector into the session store, and fans
// state changes out to subscribers. One Counter is constructed per use;
// there is no shared global instance.
package engine

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/step_counter/internal/accel"
	"github.com/relabs-tech/step_counter/internal/calibration"
	"github.com/relabs-tech/step_counter/internal/detector"
	"github.com/relabs-tech/step_counter/internal/session"
	"github.com/relabs-tech/step_counter/internal/signal"
)

// readingQueueSize bounds the channel between the source's push callback
// and the single consumer goroutine. A full queue drops the sample: a
// missed reading is negligible for a debounce-based detector.
const readingQueueSize = 64

// Options configures one Counter instance. Everything is injected.
type Options struct {
	Platform Platform

	// Source delivers readings for the platform. Nil means no usable
	// sensor; Initialize will report device_supported = false.
	Source accel.Source

	// Storage persists session records. Nil defaults to in-memory.
	Storage session.Storage

	// DeviceID scopes the storage key. Defaults to "default".
	DeviceID string

	// Profile overrides the platform's default calibration profile name.
	Profile string

	// Now overrides the wall clock used for session bookkeeping and day
	// rollover. Nil means time.Now.
	Now func() time.Time
}

// Counter is the step counter facade exposing the public control
// surface: Initialize, StartCounting, StopCounting, ResetStepCount,
// StepData, Subscribe/Unsubscribe, and Diagnostics.
type Counter struct {
	platform    Platform
	source      accel.Source
	profileName string
	store       *session.Store
	registry    *registry

	mu          sync.Mutex
	profile     calibration.Profile
	window      *signal.Window
	det         *detector.Detector
	initialized bool
	active      bool
	readings    chan accel.Reading
	stopCh      chan struct{}

	wg        sync.WaitGroup
	accepting atomic.Bool
	dropped   atomic.Uint64
}

// New constructs a counter. It performs no I/O; call Initialize next.
func New(opts Options) *Counter {
	if opts.Storage == nil {
		opts.Storage = session.NewMemoryStorage()
	}
	if opts.DeviceID == "" {
		opts.DeviceID = "default"
	}
	name := opts.Profile
	if name == "" {
		name = opts.Platform.DefaultProfile()
	}
	return &Counter{
		platform:    opts.Platform,
		source:      opts.Source,
		profileName: name,
		store:       session.NewStore(opts.Storage, opts.DeviceID, opts.Now),
		registry:    newRegistry(),
	}
}

// Initialize loads the persisted session (applying day rollover),
// resolves the calibration profile, and negotiates sensor permission.
// It returns false, never panicking, when no adapter is usable.
func (c *Counter) Initialize() bool {
	c.store.Load()

	profile, err := calibration.Named(c.profileName)
	if err != nil {
		log.Printf("engine: %v, falling back to simulator profile", err)
		profile, _ = calibration.Named("simulator")
	}

	c.mu.Lock()
	c.profile = profile
	c.window = signal.NewWindow(profile.BufferSize)
	c.det = detector.New()
	c.initialized = false
	c.mu.Unlock()

	if c.source == nil || c.platform == NoSensor {
		log.Printf("engine: no motion sensor on platform %q", c.platform)
		c.store.Update(func(r *session.Record) {
			r.DeviceSupported = false
			r.HasPermission = false
			r.SensorType = session.SensorNone
		})
		return false
	}

	if err := c.source.RequestPermission(); err != nil {
		log.Printf("engine: permission request on %q: %v", c.source.Name(), err)
		c.store.Update(func(r *session.Record) {
			r.DeviceSupported = !errors.Is(err, accel.ErrDeviceUnsupported)
			r.HasPermission = false
			r.SensorType = session.SensorNone
		})
		return false
	}

	c.store.Update(func(r *session.Record) {
		r.DeviceSupported = true
		r.HasPermission = true
		r.SensorType = session.SensorAccelerometer
	})

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return true
}

// StartCounting registers the adapter callback and begins processing
// readings. It requires a prior successful Initialize and returns false
// when permission or support preconditions are unmet.
func (c *Counter) StartCounting() bool {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return false
	}
	if c.active {
		c.mu.Unlock()
		return true
	}
	c.readings = make(chan accel.Reading, readingQueueSize)
	c.stopCh = make(chan struct{})
	readings, stopCh := c.readings, c.stopCh
	c.mu.Unlock()

	c.accepting.Store(true)
	c.wg.Add(1)
	go c.processLoop(readings, stopCh)

	if err := c.source.Start(func(r accel.Reading) { c.enqueue(readings, r) }); err != nil {
		log.Printf("engine: source start: %v", err)
		c.accepting.Store(false)
		close(stopCh)
		c.wg.Wait()
		return false
	}

	c.mu.Lock()
	c.active = true
	c.mu.Unlock()

	snap := c.store.Update(func(r *session.Record) { r.IsActive = true })
	c.registry.notify(snap)
	return true
}

// StopCounting synchronously deregisters the adapter callback and stops
// the consumer goroutine: no reading is processed after it returns. The
// final persistence write is asynchronous best-effort.
func (c *Counter) StopCounting() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	stopCh := c.stopCh
	c.mu.Unlock()

	c.accepting.Store(false)
	if err := c.source.Stop(); err != nil {
		log.Printf("engine: source stop: %v", err)
	}
	close(stopCh)
	c.wg.Wait()

	snap := c.store.Update(func(r *session.Record) { r.IsActive = false })
	c.registry.notify(snap)
}

// ResetStepCount zeroes today's count, re-arms the detector, and
// persists immediately.
func (c *Counter) ResetStepCount() {
	c.mu.Lock()
	if c.det != nil {
		c.det.Reset()
	}
	c.mu.Unlock()

	snap := c.store.Reset()
	c.registry.notify(snap)
}

// StepData returns a snapshot of the current session record.
func (c *Counter) StepData() session.Record {
	return c.store.Snapshot()
}

// Subscribe registers a listener for state-affecting events and returns
// its subscription token.
func (c *Counter) Subscribe(fn Listener) Subscription {
	return c.registry.subscribe(fn)
}

// Unsubscribe removes the listener identified by token.
func (c *Counter) Unsubscribe(token Subscription) {
	c.registry.unsubscribe(token)
}

// Flush blocks until outstanding asynchronous persistence writes finish.
// Shutdown and tests use it; the hot path never does.
func (c *Counter) Flush() {
	c.store.Flush()
}

// enqueue is the push callback handed to the source.
func (c *Counter) enqueue(readings chan<- accel.Reading, r accel.Reading) {
	if !c.accepting.Load() {
		return
	}
	select {
	case readings <- r:
	default:
		c.dropped.Add(1)
		log.Printf("engine: reading queue full, dropping sample")
	}
}

// processLoop is the single consumer: each reading runs through the full
// pipeline before the next is taken.
func (c *Counter) processLoop(readings <-chan accel.Reading, stopCh <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case r := <-readings:
			c.process(r)
		}
	}
}

// process runs one reading through window → smoothing → adaptation →
// detection, then bumps the session on an accepted step.
func (c *Counter) process(r accel.Reading) {
	c.mu.Lock()
	c.window.Push(r)
	smoothed := signal.Smoothed(c.window)
	if c.window.Full() {
		mean, stddev := signal.MeanStdDev(c.window)
		c.profile.Adapt(mean, stddev)
	}
	stepped := c.det.Process(smoothed, r.Timestamp, &c.profile)
	c.mu.Unlock()

	if stepped {
		snap := c.store.IncrementStep()
		c.registry.notify(snap)
	}
}

// Diagnostics is a debugging snapshot of the pipeline internals. It is
// not part of the detection algorithm.
type Diagnostics struct {
	Platform         string  `json:"platform"`
	Profile          string  `json:"profile"`
	BufferFill       int     `json:"buffer_fill"`
	BufferCapacity   int     `json:"buffer_capacity"`
	StepThreshold    float64 `json:"step_threshold"`
	PeakThreshold    float64 `json:"peak_threshold"`
	ValleyThreshold  float64 `json:"valley_threshold"`
	WaitingForValley bool    `json:"waiting_for_valley"`
	LastPeak         float64 `json:"last_peak"`
	DroppedReadings  uint64  `json:"dropped_readings"`
}

// Diagnostics reports the current pipeline state.
func (c *Counter) Diagnostics() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Diagnostics{
		Platform:        c.platform.String(),
		Profile:         c.profileName,
		DroppedReadings: c.dropped.Load(),
	}
	if c.window != nil {
		d.BufferFill = c.window.Len()
		d.BufferCapacity = c.window.Cap()
	}
	d.StepThreshold = c.profile.StepThreshold
	d.PeakThreshold = c.profile.PeakThreshold
	d.ValleyThreshold = c.profile.ValleyThreshold
	if c.det != nil {
		d.WaitingForValley = c.det.WaitingForValley()
		d.LastPeak = c.det.LastPeak()
	}
	return d
}
