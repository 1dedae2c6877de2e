// ABOUTME: Filesystem store for generated images and the URL scheme that serves them.
// ABOUTME: Maps between public image URLs and files under the output directory.
package steps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultURLPrefix is where the HTTP server mounts the image directory.
const DefaultURLPrefix = "/static/images"

// StoredImage locates a saved image on disk and on the web.
type StoredImage struct {
	Filename string
	Path     string
	URL      string
}

// ImageStore writes images into a directory served under a URL prefix.
type ImageStore struct {
	dir       string
	urlPrefix string
}

// NewImageStore creates the output directory if needed.
func NewImageStore(dir, urlPrefix string) (*ImageStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("image output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	urlPrefix = "/" + strings.Trim(urlPrefix, "/")
	return &ImageStore{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir returns the output directory.
func (s *ImageStore) Dir() string { return s.dir }

// URLPrefix returns the URL path prefix, with a leading and no trailing slash.
func (s *ImageStore) URLPrefix() string { return s.urlPrefix }

// Save writes data under a fresh random name with the given extension.
func (s *ImageStore) Save(data []byte, ext string) (StoredImage, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return StoredImage{}, fmt.Errorf("write image: %w", err)
	}
	return StoredImage{Filename: name, Path: path, URL: s.urlPrefix + "/" + name}, nil
}

// PathForURL maps an image URL under the store's prefix to its file path.
// It reports false for other URLs and for names that would escape the directory.
func (s *ImageStore) PathForURL(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}

// URLForPath returns the public URL for a file in the store.
func (s *ImageStore) URLForPath(path string) string {
	return s.urlPrefix + "/" + filepath.Base(path)
}
