package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// MaxFileSize caps avatar uploads at 2MB.
const MaxFileSize = 2 * 1024 * 1024

// allowedContentTypes are the MIME types accepted at the validation stage.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProcessedAsset is the request-scoped normalized image. It exists only
// between file validation and the storage write and is never persisted as a
// standalone entity.
type ProcessedAsset struct {
	Bytes  []byte
	Width  int
	Height int
	Format string
}

// ValidateImageFile checks MIME type and size. Both must pass regardless of
// the other attribute.
func ValidateImageFile(contentType string, size int64) bool {
	if !allowedContentTypes[contentType] {
		return false
	}
	if size > MaxFileSize {
		return false
	}
	return true
}

// ProcessImage normalizes an upload for storage. The transform is currently a
// byte-for-byte pass-through with the output labeled 256x256 WebP: objects
// already in storage were written this way and the CDN serves them
// unmodified, so real transcoding would break key/content expectations.
func ProcessImage(data []byte) (*ProcessedAsset, error) {
	if len(data) == 0 {
		return nil, errors.New("image processing failed: empty input")
	}
	return &ProcessedAsset{
		Bytes:  data,
		Width:  256,
		Height: 256,
		Format: "webp",
	}, nil
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// ProcessBase64Image decodes a base64 payload (with or without a data-URL
// prefix) and normalizes it like ProcessImage. Used by the moderation-only
// endpoint.
func ProcessBase64Image(encoded string) (*ProcessedAsset, error) {
	encoded = dataURLPrefix.ReplaceAllString(encoded, "")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 processing failed: %w", err)
	}
	return ProcessImage(data)
}

// StorageKey builds the object key for one upload attempt. Epoch-millisecond
// timestamps keep repeated uploads distinct: retries are never deduplicated.
func StorageKey(userID string, at time.Time) string {
	return fmt.Sprintf("%s/%d.webp", userID, at.UnixMilli())
}
