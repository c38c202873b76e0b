package punch

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/apricityDigital/attendease-backend/internal/face"
)

const (
	// cropPadding widens each detected face box by this fraction of its
	// width/height on every side before cropping.
	cropPadding = 0.25

	// cropSize is the square edge the padded crop is re-encoded at before
	// it is sent to the face gallery.
	cropSize = 600

	jpegQuality = 90
)

// NormalizeImage decodes the uploaded bytes, applies the EXIF orientation so
// the pixel buffer is upright, and returns both the decoded image and a
// re-encoded JPEG. Phone cameras routinely store rotated pixels with an
// orientation tag the face service does not honour.
func NormalizeImage(data []byte) (image.Image, []byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}

	img = applyOrientation(img, exifOrientation(data))

	out, err := encodeJPEG(img)
	if err != nil {
		return nil, nil, err
	}
	return img, out, nil
}

// exifOrientation reads the EXIF orientation tag, defaulting to 1 (upright)
// when the metadata is absent or unreadable.
func exifOrientation(data []byte) int {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// CropFace cuts a padded square around a detected face and re-encodes it at
// the gallery search size. The box arrives as fractions of the frame.
func CropFace(img image.Image, box face.BoundingBox) ([]byte, error) {
	bounds := img.Bounds()
	frameW := float64(bounds.Dx())
	frameH := float64(bounds.Dy())

	w := box.Width * frameW
	h := box.Height * frameH
	left := box.Left*frameW - w*cropPadding
	top := box.Top*frameH - h*cropPadding
	right := box.Left*frameW + w*(1+cropPadding)
	bottom := box.Top*frameH + h*(1+cropPadding)

	rect := image.Rect(
		clampInt(int(left), 0, bounds.Dx()),
		clampInt(int(top), 0, bounds.Dy()),
		clampInt(int(right), 0, bounds.Dx()),
		clampInt(int(bottom), 0, bounds.Dy()),
	)
	if rect.Empty() {
		return nil, fmt.Errorf("face box %v collapses to an empty crop", box)
	}

	crop := imaging.Crop(img, rect.Add(bounds.Min))
	crop = imaging.Resize(crop, cropSize, cropSize, imaging.Lanczos)
	return encodeJPEG(crop)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
