package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame1 := solidMat(480, 640, 0, 0, 255)
	defer frame1.Close()
	frame2 := solidMat(480, 640, 0, 255, 0)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, nil, &frame2}, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("ReadFrame() before Open error = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	f1, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f1.Close()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("nil entry error = %v, want ErrEmptyFrame", err)
	}

	f2, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f2.Close()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("error after all frames consumed = %v, want ErrEndOfStream", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := solidMat(480, 640, 0, 0, 0)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
	if cam.Opens() != 1 {
		t.Errorf("Opens() = %d, want 1", cam.Opens())
	}
}

func TestMockCamera_SetFPS(t *testing.T) {
	cam := NewMockCamera(nil, false)
	cam.SetFPS(12)
	cam.SetFPS(0)
	if got := cam.FPS(); got != 12 {
		t.Errorf("FPS() = %d, want 12", got)
	}
}
