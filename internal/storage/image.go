package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted upload, 2048 KiB.
const MaxImageSize = 2048 * 1024

// ImageDir is the bucket directory holding task images.
const ImageDir = "images"

var (
	// ErrImageTooLarge is returned for uploads above MaxImageSize.
	ErrImageTooLarge = errors.New("image exceeds maximum size")

	// ErrUnsupportedImage is returned when the upload is not a jpeg or png.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var allowedImageExts = map[string]bool{"jpg": true, "jpeg": true, "png": true}

var allowedImageTypes = map[string]bool{"image/jpeg": true, "image/png": true}

// Image is an upload whose content has been sniffed and accepted.
type Image struct {
	Data        []byte
	ContentType string
	// Ext is the canonical extension of the detected type, without a dot.
	Ext string
}

// Size returns the length of the image in bytes.
func (i *Image) Size() int64 {
	return int64(len(i.Data))
}

// Reader returns a fresh reader over the image content.
func (i *Image) Reader() io.Reader {
	return bytes.NewReader(i.Data)
}

// ReadImage reads at most MaxImageSize bytes from r and accepts the content
// only when both the client file name and the sniffed type are jpeg or png.
func ReadImage(filename string, r io.Reader) (*Image, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedImageExts[ext] {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedImage, ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	mt := mimetype.Detect(data)
	if !allowedImageTypes[mt.String()] {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mt.String())
	}

	return &Image{
		Data:        data,
		ContentType: mt.String(),
		Ext:         strings.TrimPrefix(mt.Extension(), "."),
	}, nil
}
