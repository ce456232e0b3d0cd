package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "fetchbot.json"

// Config holds the robot configuration
type Config struct {
	Link      LinkConfig      `json:"link"`
	Arm       ArmConfig       `json:"arm"`
	Autopilot AutopilotConfig `json:"autopilot"`
	Remote    RemoteConfig    `json:"remote"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// LinkConfig holds the serial link to the motor/sensor controller
type LinkConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate,omitempty"`
}

// ArmConfig holds configuration for the arm servo
type ArmConfig struct {
	Port        string           `json:"port"`
	Calibration MotorCalibration `json:"calibration"`
	// CalibrationFile is read when Calibration is empty, e.g. the output
	// of "fetchbot calibrate".
	CalibrationFile string `json:"calibration_file,omitempty"`
}

// IsCalibrated returns true if the arm has a usable travel range
func (a *ArmConfig) IsCalibrated() bool {
	return a.Calibration.ID > 0 && a.Calibration.RangeMax != a.Calibration.RangeMin
}

// AutopilotConfig holds autopilot tuning
type AutopilotConfig struct {
	Dodge             string  `json:"dodge,omitempty"`
	Hz                int     `json:"hz,omitempty"`
	ObstacleThreshold float64 `json:"obstacle_threshold,omitempty"`
	FilterWindow      int     `json:"filter_window,omitempty"`
}

// RemoteConfig holds the manual dispatch loop settings
type RemoteConfig struct {
	// Source is "ir" for the remote on the controller board or "ws" for the
	// websocket controller served by telemetry.
	Source string `json:"source,omitempty"`
	Hz     int    `json:"hz,omitempty"`
}

// TelemetryConfig holds telemetry endpoints. Empty values disable them.
type TelemetryConfig struct {
	Listen     string `json:"listen,omitempty"`
	MQTTBroker string `json:"mqtt_broker,omitempty"`
	MQTTTopic  string `json:"mqtt_topic,omitempty"`
	MQTTClient string `json:"mqtt_client_id,omitempty"`
	LogFile    string `json:"log_file,omitempty"`
}

// Defaults returns a config with every optional value filled in.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Link.BaudRate == 0 {
		c.Link.BaudRate = 115_200
	}
	if c.Autopilot.Dodge == "" {
		c.Autopilot.Dodge = Left.String()
	}
	if c.Autopilot.Hz <= 0 {
		c.Autopilot.Hz = 50
	}
	if c.Autopilot.ObstacleThreshold <= 0 {
		c.Autopilot.ObstacleThreshold = 7
	}
	if c.Autopilot.FilterWindow <= 0 {
		c.Autopilot.FilterWindow = 5
	}
	if c.Remote.Source == "" {
		c.Remote.Source = "ir"
	}
	if c.Remote.Hz <= 0 {
		c.Remote.Hz = 20
	}
	if c.Telemetry.MQTTTopic == "" {
		c.Telemetry.MQTTTopic = "fetchbot/events"
	}
	if c.Telemetry.MQTTClient == "" {
		c.Telemetry.MQTTClient = "fetchbot"
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if _, err := ParseSide(c.Autopilot.Dodge); err != nil {
		return fmt.Errorf("autopilot.dodge: %w", err)
	}
	switch c.Remote.Source {
	case "ir", "ws":
	default:
		return fmt.Errorf("remote.source: unknown source %q", c.Remote.Source)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if cfg.Arm.CalibrationFile != "" && cfg.Arm.Calibration.ID == 0 {
		cal, err := LoadCalibration(cfg.Arm.CalibrationFile)
		if err != nil {
			return nil, err
		}
		cfg.Arm.Calibration = cal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
