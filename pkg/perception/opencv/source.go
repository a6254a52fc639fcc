package opencv

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/eye"
	"github.com/teslashibe/go-drowsy/pkg/perception"
)

var (
	eyeColor = color.RGBA{G: 255, A: 255}
	boxColor = color.RGBA{R: 255, G: 165, A: 255}
)

// Source reads frames from a local camera and runs face and eye perception.
type Source struct {
	cfg    Config
	cap    *gocv.VideoCapture
	faces  *faceDetector
	marks  *landmarkNet
	frame  gocv.Mat
	index  int64
	mu     sync.Mutex
	closed bool
}

var _ perception.Source = (*Source)(nil)

// Open loads the models and opens the camera.
// Camera failures wrap perception.ErrAcquisition.
func Open(cfg Config) (*Source, error) {
	faces, err := newFaceDetector(cfg)
	if err != nil {
		return nil, err
	}
	marks, err := newLandmarkNet(cfg)
	if err != nil {
		faces.close()
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(cfg.CameraIndex)
	if err != nil || !vc.IsOpened() {
		if vc != nil {
			vc.Close()
		}
		faces.close()
		marks.close()
		return nil, fmt.Errorf("%w: open camera %d: %v", perception.ErrAcquisition, cfg.CameraIndex, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	log.Info("camera opened",
		"index", cfg.CameraIndex,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight))

	return &Source{
		cfg:   cfg,
		cap:   vc,
		faces: faces,
		marks: marks,
		frame: gocv.NewMat(),
	}, nil
}

// Opener returns a perception.Opener that opens a fresh Source per session.
func Opener(cfg Config) perception.Opener {
	return func() (perception.Source, error) {
		return Open(cfg)
	}
}

// Next reads one frame and returns every detected face with its eyes.
func (s *Source) Next() (*perception.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: source closed", perception.ErrAcquisition)
	}
	if ok := s.cap.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, fmt.Errorf("%w: camera returned no frame", perception.ErrAcquisition)
	}
	s.index++

	out := &perception.Frame{
		Index:      s.index,
		CapturedAt: time.Now(),
	}

	for _, d := range s.faces.detect(s.frame) {
		face := perception.Face{Box: toRect(d.box), Confidence: d.score}
		pair, err := s.marks.eyes(s.frame, d.box)
		if err != nil {
			log.Debug("landmarks failed", "frame", s.index, "error", err)
		} else {
			face.Eyes = pair
		}
		out.Faces = append(out.Faces, face)

		if s.cfg.StreamVideo {
			gocv.Rectangle(&s.frame, d.box, boxColor, 1)
			drawContour(&s.frame, face.Eyes.Left)
			drawContour(&s.frame, face.Eyes.Right)
		}
	}

	if s.cfg.StreamVideo {
		jpeg, err := encodeJPEG(s.frame, s.cfg.Quality)
		if err != nil {
			log.Warn("jpeg encode failed", "frame", s.index, "error", err)
		} else {
			out.JPEG = jpeg
		}
	}

	return out, nil
}

// Close releases the camera and both models. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.faces.close()
	s.marks.close()
	errs := []error{s.cap.Close(), s.frame.Close()}
	log.Info("camera released", "frames", s.index)
	return errors.Join(errs...)
}

func drawContour(img *gocv.Mat, pts []eye.Point) {
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		gocv.Line(img,
			image.Pt(int(a.X), int(a.Y)),
			image.Pt(int(b.X), int(b.Y)),
			eyeColor, 1)
	}
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
