package session

import "time"

// SensorType identifies what kind of sensor backs the current session.
type SensorType string

const (
	SensorAccelerometer SensorType = "accelerometer"
	SensorNone          SensorType = "none"
)

// Record is the per-day step counting state, persisted after every
// mutation. One record exists per device per calendar day; day rollover
// replaces it with a fresh zero-count record at load time.
type Record struct {
	Steps           uint64     `json:"steps"`
	SessionStart    time.Time  `json:"session_start"`
	LastUpdate      time.Time  `json:"last_update"`
	IsActive        bool       `json:"is_active"`
	HasPermission   bool       `json:"has_permission"`
	DeviceSupported bool       `json:"device_supported"`
	SensorType      SensorType `json:"sensor_type"`
}
