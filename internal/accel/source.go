package accel

import "errors"

// PushFunc receives one reading from a source. Implementations must not
// retain the func after Stop returns.
type PushFunc func(Reading)

// Source is anything that can deliver accelerometer readings over time:
// a real IMU, a serial-attached microcontroller, a browser forwarding
// DeviceMotion events, or a simulator.
type Source interface {
	// Name identifies the platform class, e.g. "native", "simulator".
	Name() string

	// RequestPermission performs whatever permission negotiation the
	// platform requires. Sources without a permission concept return nil.
	RequestPermission() error

	// Start registers the push callback and begins delivering readings.
	Start(push PushFunc) error

	// Stop deregisters the callback. After Stop returns, push is never
	// called again.
	Stop() error
}

var (
	// ErrPermissionDenied means the user declined motion access.
	ErrPermissionDenied = errors.New("motion permission denied")

	// ErrDeviceUnsupported means no usable motion sensor exists on this
	// platform.
	ErrDeviceUnsupported = errors.New("no usable motion sensor")
)
