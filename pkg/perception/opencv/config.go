// Package opencv implements perception.Source on top of gocv: a V4L/AVFoundation
// camera, YuNet face boxes and a 68-point landmark regressor.
package opencv

import "os"

// Config holds camera and model settings.
type Config struct {
	// === Camera ===
	CameraIndex int `json:"camera_index"`
	Width       int `json:"width"`   // requested capture width, camera may ignore it
	Height      int `json:"height"`  // requested capture height
	Quality     int `json:"quality"` // JPEG quality 1-100

	// === Face detection ===
	FaceModel      string  `json:"face_model"`      // YuNet ONNX
	FaceConfidence float64 `json:"face_confidence"` // score threshold 0-1

	// === Landmarks ===
	// LandmarkModel is a 68-point (iBUG layout) regressor taking a square RGB
	// crop and emitting 136 coordinates normalized to the crop.
	LandmarkModel string `json:"landmark_model"`
	LandmarkInput int    `json:"landmark_input"` // crop side in pixels

	// StreamVideo enables the annotated JPEG on each frame.
	StreamVideo bool `json:"stream_video"`
}

// DefaultConfig returns settings for a laptop webcam.
func DefaultConfig() Config {
	return Config{
		CameraIndex:    0,
		Width:          640,
		Height:         480,
		Quality:        80,
		FaceModel:      "models/face_detection_yunet.onnx",
		FaceConfidence: 0.6,
		LandmarkModel:  "models/face_landmarks_68.onnx",
		LandmarkInput:  112,
		StreamVideo:    true,
	}
}

// Validate checks ranges and model presence.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.CameraIndex < 0 {
		errors = append(errors, "camera_index must be >= 0")
	}
	if c.Width < 160 || c.Height < 120 {
		errors = append(errors, "resolution must be at least 160x120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.FaceConfidence <= 0 || c.FaceConfidence > 1 {
		errors = append(errors, "face_confidence must be in (0, 1]")
	}
	if c.LandmarkInput < 32 {
		errors = append(errors, "landmark_input must be >= 32")
	}
	if _, err := os.Stat(c.FaceModel); err != nil {
		errors = append(errors, "face model not found: "+c.FaceModel)
	}
	if _, err := os.Stat(c.LandmarkModel); err != nil {
		errors = append(errors, "landmark model not found: "+c.LandmarkModel)
	}

	return errors
}
