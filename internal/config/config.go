// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// Filter
	Filter            string // "madgwick" or "mahony"
	SampleFrequencyHz float64
	MadgwickBeta      float64
	MahonyTwoKp       float64
	MahonyTwoKi       float64
	UseMagnetometer   bool

	// Sample and reference sources
	SampleSource string // "mpu9250", "sim" or "replay"
	ReplayFile   string
	Reference    string // "none", "accel", "gps" or "sim"

	// IMU Hardware
	IMULeftSPIDevice  string
	IMULeftCSPin      string
	IMURightEnabled   bool
	IMURightSPIDevice string
	IMURightCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Simulator
	SimRateX     float64 // body rates, rad/s
	SimRateY     float64
	SimRateZ     float64
	SimGyroNoise float64 // standard deviation, rad/s
	SimAccNoise  float64 // standard deviation, g
	SimMagNoise  float64 // standard deviation, µT
	SimSeed      int64

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicOrientationLeft  string
	TopicOrientationRight string
	TopicIMULeft          string
	TopicIMURight         string
	TopicGPS              string

	// GPS
	GPSSerialPort    string
	GPSBaudRate      int
	GPSMinSpeedKnots float64

	// Timing
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex, write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Filter:            "madgwick",
		SampleFrequencyHz: 100,
		MadgwickBeta:      0.1,
		MahonyTwoKp:       2.0 * 0.5,
		MahonyTwoKi:       2.0 * 0.0,
		UseMagnetometer:   true,

		SampleSource: "sim",
		Reference:    "none",

		IMULeftSPIDevice: "/dev/spidev6.0",
		IMULeftCSPin:     "18",

		SimSeed: 1,

		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "fused-producer",
		MQTTClientIDGPS:      "fused-gps-producer",
		MQTTClientIDConsole:  "fused-console",
		MQTTClientIDWeb:      "fused-web",
		MQTTClientIDDisplay:  "fused-display",

		TopicOrientationLeft:  "fused/orientation/left",
		TopicOrientationRight: "fused/orientation/right",
		TopicIMULeft:          "fused/imu/left",
		TopicIMURight:         "fused/imu/right",
		TopicGPS:              "fused/gps",

		GPSSerialPort:    "/dev/serial0",
		GPSBaudRate:      9600,
		GPSMinSpeedKnots: 2,

		ConsoleLogInterval:    1000,
		WebServerPort:         8080,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default(). Empty lines and lines
// starting with '#' are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Filter
	case "FILTER":
		c.Filter = strings.ToLower(value)
	case "SAMPLE_FREQUENCY_HZ":
		c.SampleFrequencyHz, err = parseFloat(key, value)
	case "MADGWICK_BETA":
		c.MadgwickBeta, err = parseFloat(key, value)
	case "MAHONY_TWO_KP":
		c.MahonyTwoKp, err = parseFloat(key, value)
	case "MAHONY_TWO_KI":
		c.MahonyTwoKi, err = parseFloat(key, value)
	case "USE_MAGNETOMETER":
		c.UseMagnetometer, err = parseBool(key, value)

	// Sources
	case "SAMPLE_SOURCE":
		c.SampleSource = strings.ToLower(value)
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REFERENCE":
		c.Reference = strings.ToLower(value)

	// IMU Hardware
	case "IMU_LEFT_SPI_DEVICE":
		c.IMULeftSPIDevice = value
	case "IMU_LEFT_CS_PIN":
		c.IMULeftCSPin = value
	case "IMU_RIGHT_ENABLED":
		c.IMURightEnabled, err = parseBool(key, value)
	case "IMU_RIGHT_SPI_DEVICE":
		c.IMURightSPIDevice = value
	case "IMU_RIGHT_CS_PIN":
		c.IMURightCSPin = value

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Simulator
	case "SIM_RATE_X":
		c.SimRateX, err = parseFloat(key, value)
	case "SIM_RATE_Y":
		c.SimRateY, err = parseFloat(key, value)
	case "SIM_RATE_Z":
		c.SimRateZ, err = parseFloat(key, value)
	case "SIM_GYRO_NOISE":
		c.SimGyroNoise, err = parseFloat(key, value)
	case "SIM_ACC_NOISE":
		c.SimAccNoise, err = parseFloat(key, value)
	case "SIM_MAG_NOISE":
		c.SimMagNoise, err = parseFloat(key, value)
	case "SIM_SEED":
		c.SimSeed, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid SIM_SEED %q: %w", value, err)
		}

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ORIENTATION_LEFT":
		c.TopicOrientationLeft = value
	case "TOPIC_ORIENTATION_RIGHT":
		c.TopicOrientationRight = value
	case "TOPIC_IMU_LEFT":
		c.TopicIMULeft = value
	case "TOPIC_IMU_RIGHT":
		c.TopicIMURight = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)
	case "GPS_MIN_SPEED_KNOTS":
		c.GPSMinSpeedKnots, err = parseFloat(key, value)

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks that required fields are set and enumerations are known.
func (c *Config) validate() error {
	switch c.Filter {
	case "madgwick", "mahony":
	default:
		return fmt.Errorf("FILTER must be madgwick or mahony, got %q", c.Filter)
	}
	if !(c.SampleFrequencyHz > 0) {
		return fmt.Errorf("SAMPLE_FREQUENCY_HZ must be positive, got %v", c.SampleFrequencyHz)
	}
	if time.Duration(float64(time.Second)/c.SampleFrequencyHz) <= 0 {
		return fmt.Errorf("SAMPLE_FREQUENCY_HZ %v gives a sample period below 1ns", c.SampleFrequencyHz)
	}
	switch c.SampleSource {
	case "mpu9250", "sim":
	case "replay":
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required when SAMPLE_SOURCE=replay")
		}
	default:
		return fmt.Errorf("SAMPLE_SOURCE must be mpu9250, sim or replay, got %q", c.SampleSource)
	}
	switch c.Reference {
	case "none", "accel", "gps":
	case "sim":
		if c.SampleSource != "sim" {
			return fmt.Errorf("REFERENCE=sim requires SAMPLE_SOURCE=sim")
		}
	default:
		return fmt.Errorf("REFERENCE must be none, accel, gps or sim, got %q", c.Reference)
	}
	if c.SampleSource == "mpu9250" && c.IMURightEnabled && c.IMURightSPIDevice == "" {
		return fmt.Errorf("IMU_RIGHT_SPI_DEVICE is required when IMU_RIGHT_ENABLED=true")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", c.ConsoleLogInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
