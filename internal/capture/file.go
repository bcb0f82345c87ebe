package capture

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// ErrUnsupportedFormat is returned for image paths OpenCV is not asked to
// handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImageFile reports whether path names a still image by extension.
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// LoadImage reads a still image as a BGR Mat. The caller owns the Mat.
func LoadImage(path string) (gocv.Mat, error) {
	if !IsImageFile(path) {
		return gocv.NewMat(), fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("failed to load image: %s", path)
	}
	return mat, nil
}

// SaveImage writes mat in the format named by the path's extension.
func SaveImage(path string, mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("cannot save empty image: %w", ErrEmptyFrame)
	}
	if !IsImageFile(path) {
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to save image: %s", path)
	}
	return nil
}

// VideoFrameCount returns the frame count a video file reports, or 0 when
// the container does not say.
func VideoFrameCount(path string) int {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return 0
	}
	defer vc.Close()
	n := int(vc.Get(gocv.VideoCaptureFrameCount))
	if n < 0 {
		return 0
	}
	return n
}

// NewVideoWriter opens an MP4 writer for colour frames of the given size.
func NewVideoWriter(path string, fps, width, height int) (*gocv.VideoWriter, error) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	w, err := gocv.VideoWriterFile(path, "mp4v", float64(fps), width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("open video writer %s: codec unavailable", path)
	}
	return w, nil
}
