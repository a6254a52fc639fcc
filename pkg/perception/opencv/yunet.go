package opencv

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/perception"
)

// faceDetector wraps OpenCV's FaceDetectorYN.
type faceDetector struct {
	detector gocv.FaceDetectorYN
}

func newFaceDetector(cfg Config) (*faceDetector, error) {
	if _, err := os.Stat(cfg.FaceModel); os.IsNotExist(err) {
		return nil, fmt.Errorf("face model not found: %s", cfg.FaceModel)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.FaceModel,
		"",
		image.Pt(cfg.Width, cfg.Height), // updated per frame
		float32(cfg.FaceConfidence),
		0.3,  // NMS
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)
	return &faceDetector{detector: detector}, nil
}

type detection struct {
	box   image.Rectangle
	score float64
}

// detect returns face boxes in pixel coordinates.
func (d *faceDetector) detect(img gocv.Mat) []detection {
	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	var out []detection
	for r := 0; r < faces.Rows(); r++ {
		// 0-3 box, 4-13 five keypoints, 14 score
		x := int(faces.GetFloatAt(r, 0))
		y := int(faces.GetFloatAt(r, 1))
		w := int(faces.GetFloatAt(r, 2))
		h := int(faces.GetFloatAt(r, 3))
		box := image.Rect(x, y, x+w, y+h).Intersect(bounds)
		if box.Empty() {
			continue
		}
		out = append(out, detection{box: box, score: float64(faces.GetFloatAt(r, 14))})
	}
	return out
}

func (d *faceDetector) close() {
	d.detector.Close()
}

func toRect(r image.Rectangle) perception.Rect {
	return perception.Rect{
		X: float64(r.Min.X),
		Y: float64(r.Min.Y),
		W: float64(r.Dx()),
		H: float64(r.Dy()),
	}
}
