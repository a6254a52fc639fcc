// Package config loads monitor configuration from the environment.
// A .env file in the working directory is honoured when present.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// Config holds every tunable of the monitor.
type Config struct {
	// Decision rule
	EARThreshold float64 `envconfig:"EAR_THRESH" default:"0.28"`
	EARFrames    int     `envconfig:"EAR_FRAMES" default:"40"`

	// Camera
	CameraIndex  int `envconfig:"CAMERA_INDEX" default:"0"`
	CameraWidth  int `envconfig:"CAMERA_WIDTH" default:"640"`
	CameraHeight int `envconfig:"CAMERA_HEIGHT" default:"480"`

	// Perception models
	FaceModel      string  `envconfig:"FACE_MODEL" default:"models/face_detection_yunet.onnx"`
	FaceConfidence float64 `envconfig:"FACE_CONFIDENCE" default:"0.6"`
	LandmarkModel  string  `envconfig:"LANDMARK_MODEL" default:"models/face_landmarks_68.onnx"`
	LandmarkInput  int     `envconfig:"LANDMARK_INPUT" default:"112"`

	// Alert
	SoundFile   string `envconfig:"SOUND_FILE" default:"sound.wav"`
	SoundPlayer string `envconfig:"SOUND_PLAYER" default:"aplay"`

	// Event log
	DBPath string `envconfig:"DB_PATH" default:"Records.db"`

	// Dashboard
	HTTPPort    int  `envconfig:"HTTP_PORT" default:"8080"`
	StreamVideo bool `envconfig:"STREAM_VIDEO" default:"true"`

	// Optional MQTT fan-out; disabled when MQTTBroker is empty
	MQTTBroker   string `envconfig:"MQTT_BROKER"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID" default:"drowsy-monitor"`
	MQTTUsername string `envconfig:"MQTT_USERNAME"`
	MQTTPassword string `envconfig:"MQTT_PASSWORD"`
	MQTTTopic    string `envconfig:"MQTT_TOPIC" default:"drowsy/events"`

	// Logging
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"GO_ENV" default:"development"`
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return &cfg, nil
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	problems := c.Drowsiness().Validate()

	if c.CameraIndex < 0 {
		problems = append(problems, "CAMERA_INDEX must be >= 0")
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		problems = append(problems, "CAMERA_WIDTH and CAMERA_HEIGHT must be positive")
	}
	if c.FaceConfidence <= 0 || c.FaceConfidence > 1 {
		problems = append(problems, "FACE_CONFIDENCE must be in (0, 1]")
	}
	if c.LandmarkInput <= 0 {
		problems = append(problems, "LANDMARK_INPUT must be positive")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		problems = append(problems, "HTTP_PORT must be between 1 and 65535")
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH must not be empty")
	}
	if c.MQTTEnabled() && c.MQTTTopic == "" {
		problems = append(problems, "MQTT_TOPIC must not be empty when MQTT_BROKER is set")
	}
	return problems
}

// Drowsiness returns the decision-rule parameters.
func (c *Config) Drowsiness() drowsiness.Config {
	return drowsiness.Config{
		Threshold: c.EARThreshold,
		Frames:    c.EARFrames,
	}
}

// MQTTEnabled reports whether Drowsy events are published to a broker.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ListenAddr returns the dashboard listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
