package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"server/internal/domain"
)

// Reason classifies why an upload was rejected before any network transfer.
type Reason string

const (
	ReasonWrongType Reason = "wrong_type"
	ReasonTooLarge  Reason = "too_large"
)

// ValidationError reports a rejected upload together with the reason class,
// so handlers can surface the right user-facing message.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
}

// Validate rejects payloads whose declared media type is not an image type
// or whose size exceeds the configured ceiling. maxBytes is a configuration
// parameter; the general upload path uses 10MB and the catalog path 32MB.
func Validate(declaredMIME string, size int64, maxBytes int64) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(declaredMIME)), "image/") {
		return &ValidationError{
			Reason:  ReasonWrongType,
			Message: "please select an image file",
		}
	}
	if maxBytes > 0 && size > maxBytes {
		return &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("image must be smaller than %dMB", maxBytes/(1024*1024)),
		}
	}
	return nil
}

// SniffFormat inspects magic bytes and returns the detected image format, or
// "" when the payload does not start with a known image signature. Declared
// media types lie often enough that the bytes get the final say.
func SniffFormat(data []byte) string {
	for format, sig := range imageSignatures {
		if len(data) >= len(sig) && bytes.Equal(data[:len(sig)], sig) {
			return format
		}
	}
	return ""
}

// ValidateBytes runs Validate against the real payload, using the sniffed
// format when the signature is recognized.
func ValidateBytes(data []byte, declaredMIME string, maxBytes int64) error {
	mime := declaredMIME
	if format := SniffFormat(data); format != "" {
		mime = "image/" + format
	}
	return Validate(mime, int64(len(data)), maxBytes)
}

// Resize scales the image down so neither dimension exceeds its bound,
// preserving aspect ratio, and re-encodes as JPEG at the given quality
// (1-100). Images already within bounds are re-encoded without scaling;
// upscaling never happens. Output is deterministic for identical inputs.
func Resize(data []byte, maxWidth, maxHeight, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	targetW, targetH := fitWithin(width, height, maxWidth, maxHeight)
	return encodeScaled(src, targetW, targetH, quality)
}

// FitProviderLimit guards against the inference provider's hard dimension
// ceiling. Payloads already within the limit pass through unchanged; larger
// ones are rescaled preserving aspect ratio and re-encoded. Proactively
// shrinking here avoids a wasted round trip ending in an opaque size error.
func FitProviderLimit(data []byte, maxDimension, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return data, nil
	}

	targetW, targetH := fitWithin(width, height, maxDimension, maxDimension)
	return encodeScaled(src, targetW, targetH, quality)
}

func fitWithin(width, height, maxW, maxH int) (int, int) {
	if width <= maxW && height <= maxH {
		return width, height
	}
	scale := float64(maxW) / float64(width)
	if s := float64(maxH) / float64(height); s < scale {
		scale = s
	}
	w := int(float64(width)*scale + 0.5)
	h := int(float64(height)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w > maxW {
		w = maxW
	}
	if h > maxH {
		h = maxH
	}
	return w, h
}

func encodeScaled(src image.Image, width, height, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	out := src
	if src.Bounds().Dx() != width || src.Bounds().Dy() != height {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		out = dst
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
