package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/step_counter/internal/accel"
	"github.com/relabs-tech/step_counter/internal/config"
	"github.com/relabs-tech/step_counter/internal/engine"
	"github.com/relabs-tech/step_counter/internal/sensors"
	"github.com/relabs-tech/step_counter/internal/session"
)

// buildStorage constructs the session storage backend named in the
// configuration.
func buildStorage(cfg *config.Config) (session.Storage, error) {
	switch cfg.StorageBackend {
	case "file":
		return session.NewFileStorage(cfg.StorageDir)
	case "redis":
		return session.NewRedisStorage(cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// buildSource constructs the reading source for the configured mode.
// Browser mode is served by the web command, which owns the WebSocket
// endpoint; it is not a valid producer source.
func buildSource(cfg *config.Config) (accel.Source, engine.Platform, error) {
	interval := time.Duration(cfg.SampleInterval) * time.Millisecond

	switch cfg.SourceMode {
	case "native":
		src, err := sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, interval)
		if err != nil {
			return nil, engine.NoSensor, err
		}
		return src, engine.NativeSensor, nil
	case "serial":
		src, err := sensors.NewSerialSource(cfg.SerialPort, uint(cfg.SerialBaudRate))
		if err != nil {
			return nil, engine.NoSensor, err
		}
		return src, engine.SerialSensor, nil
	case "sim":
		return sensors.NewSimSource(interval), engine.Simulator, nil
	case "browser":
		return nil, engine.NoSensor, fmt.Errorf("browser source is served by the web command")
	default:
		return nil, engine.NoSensor, fmt.Errorf("unknown source mode %q", cfg.SourceMode)
	}
}
