package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestDecodeImage_Empty(t *testing.T) {
	if _, err := DecodeImage(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestDecodeImage_Garbage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	if _, err := DecodeImage([]byte("not an image")); err == nil {
		t.Error("expected error for non-image bytes")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer src.Close()
	src.SetTo(gocv.NewScalar(40, 120, 200, 0))

	data, err := EncodeJPEG(&src)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}

	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	defer img.Close()

	if img.Rows() != 120 || img.Cols() != 160 {
		t.Errorf("decoded size = %dx%d, want 160x120", img.Cols(), img.Rows())
	}
}

func TestEncodeJPEG_Nil(t *testing.T) {
	if _, err := EncodeJPEG(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}
