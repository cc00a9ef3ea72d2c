package filesystem_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/hashdrop"
	"github.com/sagarc03/hashdrop/filesystem"
	"github.com/stretchr/testify/assert"
)

func TestStore_Get_Success(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	content := []byte("test content")
	err = os.WriteFile(filepath.Join(tempDir, "test.txt"), content, 0o644)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx := context.Background()
	result, err := store.Get(ctx, "test.txt")

	assert.NoError(t, err)
	assert.NotNil(t, result)

	readContent, err := io.ReadAll(result)
	assert.NoError(t, err)
	assert.Equal(t, content, readContent)

	err = result.Close()
	assert.NoError(t, err)
}

func TestStore_Get_ContextCanceled(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := store.Get(ctx, "test.txt")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, context.Canceled, err)
}

func TestStore_Get_NotFound(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx := context.Background()
	result, err := store.Get(ctx, "nonexistent.txt")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, hashdrop.ErrNotFound)
}

func TestStore_Put_Success(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	content := bytes.NewReader([]byte("test content"))
	ctx := context.Background()

	result, err := store.Put(ctx, "test.txt", content)

	assert.NoError(t, err)
	assert.Equal(t, int64(12), result.BytesWritten)
	assert.NotEmpty(t, result.Digest)
	assert.Equal(t, 64, len(result.Digest)) // SHA256 hex length

	writtenFile := filepath.Join(tempDir, "test.txt")
	data, err := os.ReadFile(writtenFile)
	assert.NoError(t, err)
	assert.Equal(t, []byte("test content"), data)
}

func TestStore_Put_WithSubdirectory(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	content := bytes.NewReader([]byte("nested content"))
	ctx := context.Background()

	result, err := store.Put(ctx, "alice/ab12cd34/test.txt", content)

	assert.NoError(t, err)
	assert.Equal(t, int64(14), result.BytesWritten)
	assert.NotEmpty(t, result.Digest)

	writtenFile := filepath.Join(tempDir, "alice", "ab12cd34", "test.txt")
	data, err := os.ReadFile(writtenFile)
	assert.NoError(t, err)
	assert.Equal(t, []byte("nested content"), data)
}

func TestStore_Put_ContextCanceledBefore(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	content := bytes.NewReader([]byte("test"))
	result, err := store.Put(ctx, "test.txt", content)

	assert.Error(t, err)
	assert.Equal(t, int64(0), result.BytesWritten)
	assert.Empty(t, result.Digest)
	assert.Equal(t, context.Canceled, err)
}

func TestStore_Put_ContextCanceledDuringCopy(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx, cancel := context.WithCancel(context.Background())

	slowReader := &slowReader{
		data:   []byte("test content"),
		cancel: cancel,
	}

	result, err := store.Put(ctx, "test.txt", slowReader)

	assert.Error(t, err)
	assert.Equal(t, int64(0), result.BytesWritten)
	assert.Empty(t, result.Digest)
	assert.ErrorIs(t, err, context.Canceled)
}

type slowReader struct {
	data   []byte
	pos    int
	cancel context.CancelFunc
}

func (r *slowReader) Read(p []byte) (n int, err error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	r.cancel()
	n = copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestStore_Put_NoStrayTempFileAfterFailure(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx, cancel := context.WithCancel(context.Background())

	_, err = store.Put(ctx, "test.txt", &slowReader{data: []byte("x"), cancel: cancel})
	assert.Error(t, err)

	entries, err := os.ReadDir(tempDir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Delete_Success(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	err = os.WriteFile(filepath.Join(tempDir, "test.txt"), []byte("content"), 0o644)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx := context.Background()
	err = store.Delete(ctx, "test.txt")

	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(tempDir, "test.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Delete_ContextCanceled(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Delete(ctx, "test.txt")

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestStore_Delete_NotFound(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	ctx := context.Background()
	err = store.Delete(ctx, "nonexistent.txt")

	assert.Error(t, err)
	assert.ErrorIs(t, err, hashdrop.ErrNotFound)
}

func TestStore_Put_DigestConsistency(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	content := []byte("test content for digest")
	ctx := context.Background()

	result1, err := store.Put(ctx, "file1.txt", bytes.NewReader(content))
	assert.NoError(t, err)

	result2, err := store.Put(ctx, "file2.txt", bytes.NewReader(content))
	assert.NoError(t, err)

	assert.Equal(t, result1.Digest, result2.Digest, "Same content should produce same digest")
}

func TestStore_Put_LargeFile(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)

	largeContent := bytes.Repeat([]byte("a"), 1024*1024)
	ctx := context.Background()

	result, err := store.Put(ctx, "large.bin", bytes.NewReader(largeContent))

	assert.NoError(t, err)
	assert.Equal(t, int64(1024*1024), result.BytesWritten)
	assert.NotEmpty(t, result.Digest)

	writtenFile := filepath.Join(tempDir, "large.bin")
	info, err := os.Stat(writtenFile)
	assert.NoError(t, err)
	assert.Equal(t, int64(1024*1024), info.Size())
}

func TestStore_Integration_PutReadDelete(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)
	ctx := context.Background()

	content := []byte("integration test content")

	result, err := store.Put(ctx, "anon/ab12cd34/test.txt", bytes.NewReader(content))
	assert.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.BytesWritten)
	assert.NotEmpty(t, result.Digest)

	reader, err := store.Get(ctx, "anon/ab12cd34/test.txt")
	assert.NoError(t, err)
	readContent, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Equal(t, content, readContent)
	err = reader.Close()
	assert.NoError(t, err)

	err = store.Delete(ctx, "anon/ab12cd34/test.txt")
	assert.NoError(t, err)

	_, err = store.Get(ctx, "anon/ab12cd34/test.txt")
	assert.ErrorIs(t, err, hashdrop.ErrNotFound)
}

func TestStore_ConcurrentPuts(t *testing.T) {
	tempDir := t.TempDir()
	osDir, err := os.OpenRoot(tempDir)
	assert.NoError(t, err)

	store := filesystem.NewPayloadStore(osDir)
	ctx := context.Background()

	done := make(chan bool, 10)
	for i := range 10 {
		go func(n int) {
			content := fmt.Appendf(nil, "content-%d", n)
			path := fmt.Sprintf("file-%d.txt", n)
			_, err := store.Put(ctx, path, bytes.NewReader(content))
			assert.NoError(t, err)
			done <- true
		}(i)
	}

	for range 10 {
		<-done
	}

	entries, err := os.ReadDir(tempDir)
	assert.NoError(t, err)
	assert.Len(t, entries, 10)
}
