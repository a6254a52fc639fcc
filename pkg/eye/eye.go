// Package eye computes eye-openness ratios from six-point eye contours.
//
// Landmark order follows the 68-point iBUG convention for a single eye:
// 0 and 3 are the horizontal corners, 1/5 and 2/4 are the vertical pairs.
package eye

import (
	"errors"
	"math"
)

// ShapeSize is the number of landmarks describing one eye.
const ShapeSize = 6

var (
	// ErrDegenerateGeometry is returned when the eye corners coincide.
	ErrDegenerateGeometry = errors.New("eye: degenerate geometry (zero horizontal width)")

	// ErrInvalidShape is returned when a contour does not have exactly six points.
	ErrInvalidShape = errors.New("eye: contour must have exactly 6 points")

	// ErrNoEyes is returned when neither eye of a pair yields a usable ratio.
	ErrNoEyes = errors.New("eye: no usable eye in pair")
)

// Point is a 2-D landmark in image pixel coordinates.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Shape is an ordered six-point eye contour.
type Shape [ShapeSize]Point

// ShapeFrom copies a landmark slice into a Shape.
func ShapeFrom(pts []Point) (Shape, error) {
	var s Shape
	if len(pts) != ShapeSize {
		return s, ErrInvalidShape
	}
	copy(s[:], pts)
	return s, nil
}

// Openness returns (|p1-p5| + |p2-p4|) / (2 * |p0-p3|).
// Lower values mean a more closed eye.
func Openness(s Shape) (float64, error) {
	horizontal := Dist(s[0], s[3])
	if horizontal == 0 || math.IsNaN(horizontal) {
		return 0, ErrDegenerateGeometry
	}
	v1 := Dist(s[1], s[5])
	v2 := Dist(s[2], s[4])
	return (v1 + v2) / (2 * horizontal), nil
}

// Pair holds the landmark contours of both eyes of one face.
// A nil or empty side means that eye was not extracted.
type Pair struct {
	Left  []Point `json:"left,omitempty"`
	Right []Point `json:"right,omitempty"`
}

// Ratio returns the per-frame openness reading for the face.
//
// Both eyes usable: their ratios are averaged. One eye usable (the other
// missing, malformed or degenerate): that eye's ratio is used alone.
// Neither usable: the error of the last side tried is returned, wrapped in
// ErrNoEyes, and the caller skips the frame.
func (p Pair) Ratio() (float64, error) {
	var (
		sum     float64
		n       int
		lastErr error
	)
	for _, pts := range [][]Point{p.Left, p.Right} {
		if len(pts) == 0 {
			continue
		}
		s, err := ShapeFrom(pts)
		if err != nil {
			lastErr = err
			continue
		}
		r, err := Openness(s)
		if err != nil {
			lastErr = err
			continue
		}
		sum += r
		n++
	}
	if n == 0 {
		if lastErr != nil {
			return 0, errors.Join(ErrNoEyes, lastErr)
		}
		return 0, ErrNoEyes
	}
	return sum / float64(n), nil
}
