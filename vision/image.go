package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	// JPEG re-encode quality, balancing upload time against recognition accuracy
	DefaultImageQuality = 75

	// Max dimension in pixels; 720p keeps bounding boxes accurate enough
	DefaultImageMaxSize = 1280
)

// PrepareJPEG validates, downscales and re-encodes a frame for upload to the
// vision model. Frames larger than maxSize on either axis are scaled down
// preserving aspect ratio.
func PrepareJPEG(imageContent []byte, quality, maxSize int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultImageQuality
	}
	if maxSize <= 0 {
		maxSize = DefaultImageMaxSize
	}

	mtype := mimetype.Detect(imageContent)
	if !isImageMIMEType(mtype.String()) {
		log.WithField("mime_type", mtype.String()).Error("Unsupported frame type")
		return nil, fmt.Errorf("unsupported frame type: %s", mtype.String())
	}

	img, err := imaging.Decode(bytes.NewReader(imageContent), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error decoding frame: %w", err)
	}

	bounds := img.Bounds()
	log.WithFields(logrus.Fields{
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	}).Debug("Frame dimensions")

	if bounds.Dx() > maxSize || bounds.Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI formats JPEG bytes as a base64 data URI for OpenAI-style image parts
func DataURI(jpegBytes []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes)
}

func isImageMIMEType(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/webp", "image/bmp", "image/tiff":
		return true
	}
	return false
}
