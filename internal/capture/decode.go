package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when uploaded bytes do not decode to an image.
var ErrEmptyImage = errors.New("image is empty or could not be decoded")

// DecodeImage decodes JPEG or PNG bytes into a BGR Mat.
// The caller must close the returned Mat.
func DecodeImage(data []byte) (*gocv.Mat, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyImage, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyImage
	}

	return &mat, nil
}

// EncodeJPEG encodes a Mat as JPEG bytes.
func EncodeJPEG(img *gocv.Mat) ([]byte, error) {
	if img == nil || img.Empty() {
		return nil, ErrEmptyImage
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
