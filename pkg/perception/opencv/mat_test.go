package opencv

import "gocv.io/x/gocv"

func blankMat(w, h int) gocv.Mat {
	return gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
}
