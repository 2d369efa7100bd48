package media

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

var supportedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsSupportedImage reports whether a claim attachment can be sent to the
// AI providers.
func IsSupportedImage(mimeType string) bool {
	return supportedMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// PrepareImage bounds a claim image before it goes to a provider: images
// larger than maxEdge on either side are downscaled, and webp/gif inputs
// are re-encoded as JPEG since not every provider accepts them. When the
// image cannot be decoded the original bytes pass through untouched so a
// decode quirk never blocks verification.
func PrepareImage(data []byte, mimeType string, maxEdge int) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		logrus.WithError(err).Warn("[MEDIA] Could not decode image, passing through")
		return data, mimeType, nil
	}

	bounds := img.Bounds()
	needsResize := maxEdge > 0 && (bounds.Dx() > maxEdge || bounds.Dy() > maxEdge)
	needsReencode := mimeType == "image/webp" || mimeType == "image/gif"
	if !needsResize && !needsReencode {
		return data, mimeType, nil
	}

	if needsResize {
		if bounds.Dx() >= bounds.Dy() {
			img = imaging.Resize(img, maxEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxEdge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	format := imaging.JPEG
	outMime := "image/jpeg"
	if mimeType == "image/png" {
		format = imaging.PNG
		outMime = "image/png"
	}
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"original_bytes": len(data),
		"prepared_bytes": buf.Len(),
		"mime_type":      outMime,
	}).Debug("[MEDIA] Image prepared for verification")

	return buf.Bytes(), outMime, nil
}
