package thumbnail

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GocvResizer scales images with OpenCV into a fixed box, ignoring aspect ratio.
type GocvResizer struct{}

func NewGocvResizer() *GocvResizer {
	return &GocvResizer{}
}

func (GocvResizer) Resize(data []byte, width, height int) ([]byte, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image: empty result")
	}

	resized := gocv.NewMat()
	defer resized.Close()

	if err := gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationArea); err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, resized)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	defer buf.Close()

	thumb := make([]byte, len(buf.GetBytes()))
	copy(thumb, buf.GetBytes())
	return thumb, nil
}
