package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// LocalStore keeps objects on disk below a root directory. The HTTP server
// serves the root at publicURL.
type LocalStore struct {
	root      string
	publicURL string
}

func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", abs, err)
	}
	log.Infof("[Storage] Initialized local store at %s", abs)
	return &LocalStore{root: abs, publicURL: publicURL}, nil
}

// Root is the absolute directory objects are written to.
func (l *LocalStore) Root() string {
	return l.root
}

func (l *LocalStore) Put(ctx context.Context, in PutInput) (StoredObject, error) {
	fullPath, err := l.path(in.Key)
	if err != nil {
		return StoredObject{}, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return StoredObject{}, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Write to a temp file first so a failed copy never leaves a partial object
	// under the final key.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to create file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: in.Body})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return StoredObject{}, fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	if in.Size >= 0 && written != in.Size {
		_ = os.Remove(tmpName)
		return StoredObject{}, fmt.Errorf("short write for %s: %d of %d bytes", in.Key, written, in.Size)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return StoredObject{}, fmt.Errorf("failed to move file into place %s: %w", fullPath, err)
	}

	log.Infof("[Storage] Saved %s (%d bytes)", in.Key, written)
	return StoredObject{URL: joinURL(l.publicURL, in.Key), Key: in.Key, Size: written}, nil
}

// Delete treats a missing file as already deleted.
func (l *LocalStore) Delete(ctx context.Context, key string) error {
	fullPath, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	log.Infof("[Storage] Deleted %s", key)
	return nil
}

func (l *LocalStore) path(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	full := filepath.Join(l.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return full, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
