package opencv

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/pkg/eye"
)

const cropMargin = 0.2

// landmarkNet runs the 68-point ONNX regressor on face crops.
type landmarkNet struct {
	net   gocv.Net
	input int
}

func newLandmarkNet(cfg Config) (*landmarkNet, error) {
	if _, err := os.Stat(cfg.LandmarkModel); os.IsNotExist(err) {
		return nil, fmt.Errorf("landmark model not found: %s", cfg.LandmarkModel)
	}
	net := gocv.ReadNetFromONNX(cfg.LandmarkModel)
	if net.Empty() {
		return nil, fmt.Errorf("load landmark model %s", cfg.LandmarkModel)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	return &landmarkNet{net: net, input: cfg.LandmarkInput}, nil
}

// eyes regresses landmarks for one face box and returns both eye contours.
func (l *landmarkNet) eyes(img gocv.Mat, box image.Rectangle) (eye.Pair, error) {
	crop := squareCrop(box, image.Rect(0, 0, img.Cols(), img.Rows()), cropMargin)
	if crop.Empty() {
		return eye.Pair{}, fmt.Errorf("empty face crop")
	}

	region := img.Region(crop)
	defer region.Close()

	blob := gocv.BlobFromImage(region, 1.0/255.0, image.Pt(l.input, l.input), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	l.net.SetInput(blob, "")
	out := l.net.Forward("")
	defer out.Close()

	vals, err := out.DataPtrFloat32()
	if err != nil {
		return eye.Pair{}, fmt.Errorf("read landmark output: %w", err)
	}
	pts, err := pointsFromOutput(vals, crop)
	if err != nil {
		return eye.Pair{}, err
	}
	return eyesFromLandmarks(pts), nil
}

func (l *landmarkNet) close() {
	l.net.Close()
}
