package opencv

import (
	"fmt"
	"image"
	"math"

	"github.com/teslashibe/go-drowsy/pkg/eye"
)

// iBUG 68-point layout, subject's perspective.
const (
	landmarkCount = 68
	rightEyeStart = 36
	leftEyeStart  = 42
	eyePoints     = 6
)

// pointsFromOutput maps normalized regressor output back to frame pixels.
// Coordinates are interleaved x,y relative to the crop.
func pointsFromOutput(vals []float32, crop image.Rectangle) ([]eye.Point, error) {
	if len(vals) < landmarkCount*2 {
		return nil, fmt.Errorf("landmark output has %d values, want %d", len(vals), landmarkCount*2)
	}
	w := float64(crop.Dx())
	h := float64(crop.Dy())
	pts := make([]eye.Point, landmarkCount)
	for i := range pts {
		pts[i] = eye.Point{
			X: float64(crop.Min.X) + float64(vals[2*i])*w,
			Y: float64(crop.Min.Y) + float64(vals[2*i+1])*h,
		}
	}
	return pts, nil
}

// eyesFromLandmarks slices both 6-point eye contours out of a 68-point set.
func eyesFromLandmarks(pts []eye.Point) eye.Pair {
	if len(pts) < landmarkCount {
		return eye.Pair{}
	}
	return eye.Pair{
		Left:  append([]eye.Point(nil), pts[leftEyeStart:leftEyeStart+eyePoints]...),
		Right: append([]eye.Point(nil), pts[rightEyeStart:rightEyeStart+eyePoints]...),
	}
}

// squareCrop expands a face box to a square with margin, clamped to bounds.
// Landmark regressors are trained on loosely cropped square faces.
func squareCrop(box image.Rectangle, bounds image.Rectangle, margin float64) image.Rectangle {
	side := box.Dx()
	if box.Dy() > side {
		side = box.Dy()
	}
	side = int(math.Round(float64(side) * (1 + margin)))
	cx := box.Min.X + box.Dx()/2
	cy := box.Min.Y + box.Dy()/2
	r := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
	return r.Intersect(bounds)
}
