// Package exifdata extracts a best-effort capture timestamp from uploaded
// image bytes.
package exifdata

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureTime returns the EXIF DateTimeOriginal of the image, or fallback if
// the image carries no usable EXIF data. Extraction failure is never an error:
// many phone uploads are stripped or re-encoded.
func CaptureTime(data []byte, fallback time.Time) time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return fallback
	}
	t, err := x.DateTime()
	if err != nil {
		return fallback
	}
	return t
}
