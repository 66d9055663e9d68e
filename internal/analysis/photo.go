package analysis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotImage is returned when an upload is not an image.
	ErrNotImage = errors.New("analysis: upload is not an image")
	// ErrPhotoTooLarge is returned when an upload exceeds the size limit.
	ErrPhotoTooLarge = errors.New("analysis: photo exceeds size limit")
	// ErrEmptyPhoto is returned for zero-byte uploads.
	ErrEmptyPhoto = errors.New("analysis: photo is empty")
)

// DataURL encodes data the way a browser FileReader.readAsDataURL does, so the
// server hashes exactly the string the page would have hashed.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ReadPhoto reads an uploaded image and returns its data URL. declaredType is
// the multipart Content-Type; when blank the type is sniffed from the bytes.
func ReadPhoto(r io.Reader, declaredType string, limit int64) (string, error) {
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("analysis: read photo: %w", err)
	}
	if int64(len(data)) > limit {
		return "", ErrPhotoTooLarge
	}
	if len(data) == 0 {
		return "", ErrEmptyPhoto
	}

	contentType := strings.TrimSpace(declaredType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	return DataURL(contentType, data), nil
}

// ValidateDataURL checks that a client-supplied data URL carries an image.
func ValidateDataURL(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return ErrNotImage
	}
	return nil
}
