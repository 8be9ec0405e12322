package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrObjectTooLarge means the upload body exceeded the per-object limit.
var ErrObjectTooLarge = errors.New("storage: object exceeds size limit")

// maxObjectSize caps a single image upload. Images are compressed client
// side before upload, so anything larger is a misbehaving client.
const maxObjectSize = 10 * 1024 * 1024

// DiskStore persists verified uploads under a base directory and serves
// them back through the static file route.
type DiskStore struct {
	baseDir string
}

// NewDiskStore creates a DiskStore rooted at baseDir.
func NewDiskStore(baseDir string) *DiskStore {
	return &DiskStore{baseDir: baseDir}
}

// Save writes the object bytes to objectPath under the base directory and
// returns the public URL. The path must stay inside the base directory.
func (d *DiskStore) Save(objectPath string, r io.Reader) (string, error) {
	clean := filepath.Clean(objectPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("storage: path escapes base dir: %s", objectPath)
	}

	dst := filepath.Join(d.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	defer out.Close()

	lr := &io.LimitedReader{R: r, N: maxObjectSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if written > maxObjectSize {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", ErrObjectTooLarge
	}

	return "/static/uploads/" + filepath.ToSlash(clean), nil
}

// Remove deletes the stored object if present.
func (d *DiskStore) Remove(objectPath string) error {
	clean := filepath.Clean(objectPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil
	}
	err := os.Remove(filepath.Join(d.baseDir, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
