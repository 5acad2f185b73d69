package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"knowthepast/pkg/model"
)

const jpegQuality = 85

// Normalize decodes an image payload, scales it to fit within maxW x maxH and re-encodes it as JPEG.
// Payloads that cannot be decoded are returned unchanged.
func Normalize(img model.Image, maxW, maxH int) model.Image {
	out, err := normalize(img.Data, maxW, maxH)
	if err != nil {
		return img
	}
	return model.Image{Data: out, MIMEType: "image/jpeg"}
}

func normalize(data []byte, maxW, maxH int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	scaled := scaleToFit(src, maxW, maxH)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleToFit scales the image to fit within maxW x maxH, preserving aspect ratio.
// Does not upscale. A non-positive bound disables scaling on that axis.
func scaleToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	ratio := 1.0
	if maxW > 0 && w > maxW {
		ratio = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if rh := float64(maxH) / float64(h); rh < ratio {
			ratio = rh
		}
	}
	if ratio >= 1.0 {
		return img
	}

	newW := max(1, int(float64(w)*ratio))
	newH := max(1, int(float64(h)*ratio))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
