package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration values. Load returns one
// instance that mains inject into the components that need it; there is
// no package-level configuration state.
type Config struct {
	// Engine
	SourceMode         string // "native", "serial", "browser", "sim"
	DeviceID           string
	CalibrationProfile string // optional override of the platform default

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicSession   string
	TopicStepEvent string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer range: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte

	// Serial sensor
	SerialPort     string
	SerialBaudRate int

	// Storage
	StorageBackend string // "file" or "redis"
	StorageDir     string
	RedisAddr      string

	// Timing
	SampleInterval int // milliseconds, native/sim sources
	LogInterval    int // milliseconds, producer status line
	PermissionWait int // milliseconds, browser permission handshake

	// Web Server
	WebServerPort int
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{
		TopicSession:   "steps/session",
		TopicStepEvent: "steps/event",
		SampleInterval: 50,
		LogInterval:    5000,
		PermissionWait: 60000,
		WebServerPort:  8080,
	}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Engine
	case "SOURCE_MODE":
		c.SourceMode = value
	case "DEVICE_ID":
		c.DeviceID = value
	case "CALIBRATION_PROFILE":
		c.CalibrationProfile = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_SESSION":
		c.TopicSession = value
	case "TOPIC_STEP_EVENT":
		c.TopicStepEvent = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)

	// Serial sensor
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// Storage
	case "STORAGE_BACKEND":
		c.StorageBackend = value
	case "STORAGE_DIR":
		c.StorageDir = value
	case "REDIS_ADDR":
		c.RedisAddr = value

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_INTERVAL %q: %w", value, err)
		}
		c.LogInterval = interval
	case "PERMISSION_WAIT":
		wait, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PERMISSION_WAIT %q: %w", value, err)
		}
		c.PermissionWait = wait

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	switch c.SourceMode {
	case "native":
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SOURCE_MODE=native")
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for SOURCE_MODE=native")
		}
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SOURCE_MODE=serial")
		}
		if c.SerialBaudRate == 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE is required for SOURCE_MODE=serial")
		}
	case "browser", "sim":
		// nothing extra
	case "":
		return fmt.Errorf("SOURCE_MODE is required")
	default:
		return fmt.Errorf("SOURCE_MODE must be native, serial, browser or sim, got %q", c.SourceMode)
	}

	if c.DeviceID == "" {
		return fmt.Errorf("DEVICE_ID is required")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}

	switch c.StorageBackend {
	case "file":
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for STORAGE_BACKEND=file")
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for STORAGE_BACKEND=redis")
		}
	case "":
		return fmt.Errorf("STORAGE_BACKEND is required")
	default:
		return fmt.Errorf("STORAGE_BACKEND must be file or redis, got %q", c.StorageBackend)
	}

	return nil
}
