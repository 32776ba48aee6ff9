package assets

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Uploader turns an inline image payload into a durable reference URL. The
// rest of the system stores that URL opaquely.
type Uploader interface {
	Upload(dataURL string) (string, error)
}

// MaxUploadBytes bounds decoded image payloads.
const MaxUploadBytes = 5 * 1024 * 1024

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskStore materializes data-URL images as files under a local directory,
// served statically under /uploads.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the backing directory, for static file serving.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Upload decodes a "data:image/...;base64," payload to a file and returns
// its public URL path.
func (s *DiskStore) Upload(dataURL string) (string, error) {
	payload, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", fmt.Errorf("not a data URL")
	}

	meta, encoded, ok := strings.Cut(payload, ";base64,")
	if !ok {
		return "", fmt.Errorf("unsupported data URL encoding")
	}

	ext, ok := extensions[meta]
	if !ok {
		return "", fmt.Errorf("unsupported image type: %s", meta)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("image exceeds %d bytes", MaxUploadBytes)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return path.Join("/uploads", name), nil
}
