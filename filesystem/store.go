// Package filesystem provides a file system payload store for hashdrop.
// It supports atomic writes using temp files and SHA256 content digests.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sagarc03/hashdrop"
)

// Store provides file system payload storage.
type Store struct {
	root *os.Root
}

// NewPayloadStore creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewPayloadStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens a payload for reading. Returns hashdrop.ErrNotFound if no object
// exists at the key.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, hashdrop.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open payload: %w", err)
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under the given key using a temp file and
// rename. It creates intermediate directories as needed and returns a
// PutResult containing the number of bytes written and the SHA256 digest.
// The operation respects context cancellation.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (hashdrop.PutResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return hashdrop.PutResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return hashdrop.PutResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	bytesWritten, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return hashdrop.PutResult{}, fmt.Errorf("could not copy payload contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return hashdrop.PutResult{}, fmt.Errorf("could not sync written payload: %w", err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return hashdrop.PutResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return hashdrop.PutResult{}, fmt.Errorf("failed to rename payload: %w", renameErr)
	}

	digest := hex.EncodeToString(h.Sum(nil))
	success = true

	return hashdrop.PutResult{BytesWritten: bytesWritten, Digest: digest}, nil
}

// Delete removes a payload. Returns hashdrop.ErrNotFound if no object exists
// at the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return hashdrop.ErrNotFound
		}
		return fmt.Errorf("could not delete payload: %w", err)
	}
	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
