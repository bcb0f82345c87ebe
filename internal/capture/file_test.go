package capture

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"/tmp/shot.png", true},
		{"scan.tiff", true},
		{"clip.mp4", false},
		{"clip.mov", false},
		{"noext", false},
		{"dir.png/file", false},
	}
	for _, tt := range tests {
		if got := IsImageFile(tt.path); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadImage_Unsupported(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mat, err := LoadImage("clip.mp4")
	defer mat.Close()
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("LoadImage() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSaveLoadImage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := solidMat(24, 32, 0, 255, 0)
	defer src.Close()

	path := filepath.Join(t.TempDir(), "green.png")
	if err := SaveImage(path, src); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	got, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	defer got.Close()

	if got.Rows() != 24 || got.Cols() != 32 {
		t.Errorf("loaded size = %dx%d, want 32x24", got.Cols(), got.Rows())
	}
	v := got.GetVecbAt(12, 16)
	if v[0] != 0 || v[1] != 255 || v[2] != 0 {
		t.Errorf("pixel = %v, want BGR (0,255,0)", v)
	}

	if err := SaveImage(filepath.Join(t.TempDir(), "out.mp4"), src); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("SaveImage(.mp4) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestVideoFrameCount_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}
	if n := VideoFrameCount(filepath.Join(t.TempDir(), "missing.mp4")); n != 0 {
		t.Errorf("VideoFrameCount(missing) = %d, want 0", n)
	}
}
