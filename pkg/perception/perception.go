// Package perception defines what the detection loop needs from a camera
// and face-landmark pipeline, independent of the vision backend.
package perception

import (
	"errors"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/eye"
)

// ErrAcquisition wraps camera open and read failures.
var ErrAcquisition = errors.New("perception: frame acquisition failed")

// Rect is a face bounding box in pixels.
type Rect struct {
	X, Y, W, H float64
}

// Area returns the box area.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Center returns the center point of the box.
func (r Rect) Center() (x, y float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Face is one detected face with its eye contours.
type Face struct {
	Box        Rect
	Confidence float64 // 0-1
	Eyes       eye.Pair
}

// Frame is the perception output for one camera read.
type Frame struct {
	Index      int64
	CapturedAt time.Time
	Faces      []Face
	// JPEG is the annotated frame for display; nil when streaming is off.
	JPEG []byte
}

// Source yields frames until the camera fails or is closed.
type Source interface {
	// Next blocks for the next frame. Errors wrap ErrAcquisition when the
	// camera returned nothing.
	Next() (*Frame, error)

	// Close releases the camera and models.
	Close() error
}

// Opener creates a Source for a new monitoring session.
type Opener func() (Source, error)

// Primary picks the face that drives the state machine.
// Score is confidence*0.7 + (area/maxArea)*0.3; faces are never averaged.
func Primary(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}
	if len(faces) == 1 {
		return &faces[0]
	}

	maxArea := 0.0
	for _, f := range faces {
		if f.Box.Area() > maxArea {
			maxArea = f.Box.Area()
		}
	}

	bestScore := -1.0
	var best *Face
	for i := range faces {
		areaScore := 0.0
		if maxArea > 0 {
			areaScore = faces[i].Box.Area() / maxArea
		}
		score := faces[i].Confidence*0.7 + areaScore*0.3
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}
	return best
}
