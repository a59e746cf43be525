package engine

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/step_counter/internal/accel"
	"github.com/relabs-tech/step_counter/internal/session"
)

// fakeSource is a scriptable adapter for facade tests.
type fakeSource struct {
	permErr  error
	startErr error

	mu   sync.Mutex
	push accel.PushFunc
}

func (f *fakeSource) Name() string             { return "fake" }
func (f *fakeSource) RequestPermission() error { return f.permErr }

func (f *fakeSource) Start(push accel.PushFunc) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.push = push
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	f.push = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) emit(r accel.Reading) {
	f.mu.Lock()
	push := f.push
	f.mu.Unlock()
	if push != nil {
		push(r)
	}
}

// emitLevels pushes one reading per magnitude, all on the Z axis,
// spaced 100ms apart starting at base.
func (f *fakeSource) emitLevels(base time.Time, magnitudes []float64) {
	for i, m := range magnitudes {
		f.emit(accel.Reading{Z: m, Timestamp: base.Add(time.Duration(i) * 100 * time.Millisecond)})
	}
}

func waitForSteps(t *testing.T, c *Counter, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.StepData().Steps == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d steps, got %d", want, c.StepData().Steps)
}

func TestInitializeWithoutSensor(t *testing.T) {
	c := New(Options{Platform: NoSensor})

	if c.Initialize() {
		t.Fatal("Initialize must return false without a sensor")
	}
	rec := c.StepData()
	if rec.DeviceSupported {
		t.Fatal("device_supported must be false without a sensor")
	}
	if rec.SensorType != session.SensorNone {
		t.Fatalf("expected sensor type none, got %q", rec.SensorType)
	}
	if c.StartCounting() {
		t.Fatal("StartCounting must return false after failed Initialize")
	}
}

func TestInitializePermissionDenied(t *testing.T) {
	src := &fakeSource{permErr: accel.ErrPermissionDenied}
	c := New(Options{Platform: BrowserMotion, Source: src})

	if c.Initialize() {
		t.Fatal("Initialize must return false when permission is denied")
	}
	rec := c.StepData()
	if rec.HasPermission {
		t.Fatal("has_permission must be false after denial")
	}
	if !rec.DeviceSupported {
		t.Fatal("a denial is not the same as an unsupported device")
	}
	if c.StartCounting() {
		t.Fatal("StartCounting must return false without permission")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	src := &fakeSource{}
	c := New(Options{Platform: Simulator, Source: src})

	if !c.Initialize() {
		t.Fatal("Initialize failed")
	}
	rec := c.StepData()
	if !rec.HasPermission || !rec.DeviceSupported || rec.SensorType != session.SensorAccelerometer {
		t.Fatalf("unexpected record after initialize: %+v", rec)
	}

	if !c.StartCounting() {
		t.Fatal("StartCounting failed")
	}
	if !c.StepData().IsActive {
		t.Fatal("is_active must be true while counting")
	}
	if !c.StartCounting() {
		t.Fatal("StartCounting must be idempotent while active")
	}

	c.StopCounting()
	if c.StepData().IsActive {
		t.Fatal("is_active must be false after stop")
	}

	// After stop the adapter callback is deregistered: readings go
	// nowhere and the count cannot move.
	before := c.StepData().Steps
	src.emitLevels(time.Now(), []float64{9, 9, 9, 12, 12, 12, 9, 9, 9})
	time.Sleep(20 * time.Millisecond)
	if got := c.StepData().Steps; got != before {
		t.Fatalf("reading processed after stop: %d -> %d", before, got)
	}

	c.StopCounting() // idempotent
}

func TestCountsOscillationsEndToEnd(t *testing.T) {
	src := &fakeSource{}
	c := New(Options{Platform: BrowserMotion, Source: src, Profile: "browser-ios"})

	if !c.Initialize() || !c.StartCounting() {
		t.Fatal("engine failed to start")
	}
	defer c.StopCounting()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	// Two gait cycles: rest → swing → rest → swing → rest. With a 3-wide
	// smoothing window, three samples per level pin the smoothed value.
	src.emitLevels(base, []float64{
		9, 9, 9, 11, 11, 11, 9, 9, 9,
		11, 11, 11, 9, 9, 9,
	})

	waitForSteps(t, c, 2)
}

func TestDebounceAcrossPipeline(t *testing.T) {
	src := &fakeSource{}
	c := New(Options{Platform: BrowserMotion, Source: src, Profile: "browser-ios"})

	if !c.Initialize() || !c.StartCounting() {
		t.Fatal("engine failed to start")
	}
	defer c.StopCounting()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	// One qualifying oscillation, then an identical one squeezed into
	// 40ms: the second valley lands inside the 300ms debounce window.
	src.emitLevels(base, []float64{9, 9, 9, 11, 11, 11, 9, 9, 9})
	waitForSteps(t, c, 1)

	stepT := base.Add(8 * 100 * time.Millisecond)
	for i, m := range []float64{11, 11, 11, 9, 9, 9} {
		src.emit(accel.Reading{Z: m, Timestamp: stepT.Add(time.Duration(i+1) * 5 * time.Millisecond)})
	}
	time.Sleep(50 * time.Millisecond)
	if got := c.StepData().Steps; got != 1 {
		t.Fatalf("debounce failed: expected 1 step, got %d", got)
	}
}

func TestResetClearsCountAndDetector(t *testing.T) {
	src := &fakeSource{}
	c := New(Options{Platform: BrowserMotion, Source: src, Profile: "browser-ios"})

	if !c.Initialize() || !c.StartCounting() {
		t.Fatal("engine failed to start")
	}
	defer c.StopCounting()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	src.emitLevels(base, []float64{9, 9, 9, 11, 11, 11, 9, 9, 9})
	waitForSteps(t, c, 1)

	// Park the detector mid-cycle, waiting for a valley.
	src.emitLevels(base.Add(time.Second), []float64{11, 11, 11})
	deadline := time.Now().Add(2 * time.Second)
	for !c.Diagnostics().WaitingForValley {
		if time.Now().After(deadline) {
			t.Fatal("detector never armed")
		}
		time.Sleep(2 * time.Millisecond)
	}

	c.ResetStepCount()
	if got := c.StepData().Steps; got != 0 {
		t.Fatalf("expected 0 steps after reset, got %d", got)
	}
	if c.Diagnostics().WaitingForValley {
		t.Fatal("reset must clear the waiting-for-valley state")
	}
}

func TestDayRolloverAtInitialize(t *testing.T) {
	storage := session.NewMemoryStorage()

	old := session.Record{
		Steps:        500,
		SessionStart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	data, _ := json.Marshal(old)
	_ = storage.Save("stepcounter:session:device-1", data)

	c := New(Options{
		Platform: Simulator,
		Source:   &fakeSource{},
		Storage:  storage,
		DeviceID: "device-1",
		Now:      func() time.Time { return time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC) },
	})

	if !c.Initialize() {
		t.Fatal("Initialize failed")
	}
	if got := c.StepData().Steps; got != 0 {
		t.Fatalf("expected 0 steps after rollover, got %d", got)
	}
}

func TestListenerIsolationOnStepEvents(t *testing.T) {
	src := &fakeSource{}
	c := New(Options{Platform: BrowserMotion, Source: src, Profile: "browser-ios"})

	var got []uint64
	var mu sync.Mutex
	c.Subscribe(func(session.Record) { panic("dashboard bug") })
	c.Subscribe(func(rec session.Record) {
		mu.Lock()
		got = append(got, rec.Steps)
		mu.Unlock()
	})

	if !c.Initialize() || !c.StartCounting() {
		t.Fatal("engine failed to start")
	}
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	src.emitLevels(base, []float64{9, 9, 9, 11, 11, 11, 9, 9, 9})
	waitForSteps(t, c, 1)
	c.StopCounting()

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatal("surviving listener received no notifications")
	}
	// Counter survived the panicking subscriber.
	if c.StepData().Steps != 1 {
		t.Fatalf("engine state corrupted by listener panic: %d steps", c.StepData().Steps)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	c := New(Options{Platform: Simulator, Source: &fakeSource{}})

	var calls int
	var mu sync.Mutex
	token := c.Subscribe(func(session.Record) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	if !c.Initialize() || !c.StartCounting() {
		t.Fatal("engine failed to start")
	}
	c.Unsubscribe(token)
	c.StopCounting()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly the start notification, got %d", calls)
	}
}
