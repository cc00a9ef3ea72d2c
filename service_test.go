package hashdrop

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sagarc03/hashdrop/auth"
)

type mockMappingRepo struct {
	mock.Mock
}

func (m *mockMappingRepo) Insert(ctx context.Context, res Resource) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *mockMappingRepo) Get(ctx context.Context, hash string) (Resource, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(Resource), args.Error(1)
}

func (m *mockMappingRepo) Delete(ctx context.Context, hash string) error {
	args := m.Called(ctx, hash)
	return args.Error(0)
}

func (m *mockMappingRepo) ListByOwner(ctx context.Context, q ListQuery) ([]Resource, int, error) {
	args := m.Called(ctx, q)
	var items []Resource
	if v := args.Get(0); v != nil {
		items = v.([]Resource)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *mockMappingRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]Resource, error) {
	args := m.Called(ctx, before, limit)
	var items []Resource
	if v := args.Get(0); v != nil {
		items = v.([]Resource)
	}
	return items, args.Error(1)
}

type mockPayloadStore struct {
	mock.Mock
}

func (m *mockPayloadStore) Put(ctx context.Context, key string, content io.Reader) (PutResult, error) {
	args := m.Called(ctx, key, content)
	return args.Get(0).(PutResult), args.Error(1)
}

func (m *mockPayloadStore) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, key)
	var rc io.ReadSeekCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadSeekCloser)
	}
	return rc, args.Error(1)
}

func (m *mockPayloadStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type stubReadSeekCloser struct {
	*strings.Reader
}

func (stubReadSeekCloser) Close() error { return nil }

// testClock returns successive instants one second apart so retried hash
// generation never repeats a timestamp.
func testClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(time.Second)
		return now
	}
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo MappingRepo, store PayloadStore, now func() time.Time) *Service {
	t.Helper()
	if now == nil {
		now = func() time.Time { return testEpoch }
	}
	svc, err := NewService(repo, store, ServiceConfig{Now: now})
	assert.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("rejects invalid ttl policy", func(t *testing.T) {
		_, err := NewService(&mockMappingRepo{}, &mockPayloadStore{}, ServiceConfig{
			TTL: TTLPolicy{AnonFile: -time.Hour, AnonURL: time.Hour, AuthFile: time.Hour, AuthURL: time.Hour},
		})
		assert.Error(t, err)
	})

	t.Run("zero policy falls back to defaults", func(t *testing.T) {
		svc, err := NewService(&mockMappingRepo{}, &mockPayloadStore{}, ServiceConfig{})
		assert.NoError(t, err)
		assert.Equal(t, DefaultTTLPolicy(), svc.ttl)
	})
}

func TestServiceCreateURL(t *testing.T) {
	t.Run("anonymous requester gets anonymous window", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		res, err := svc.CreateURL(context.Background(), "https://example.com/page", "", auth.Anonymous())

		assert.NoError(t, err)
		assert.Equal(t, KindURL, res.Kind)
		assert.Equal(t, AnonymousOwner, res.OwnerID)
		assert.Equal(t, "https://example.com/page", res.PayloadRef)
		assert.Equal(t, DefaultDescription, res.Description)
		assert.True(t, IsValidHash(res.Hash))
		assert.Equal(t, testEpoch, res.CreatedAt)
		assert.Equal(t, testEpoch.Add(7*24*time.Hour), res.ExpiresAt)
		repo.AssertExpectations(t)
	})

	t.Run("authenticated requester gets longer window", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		res, err := svc.CreateURL(context.Background(), "https://example.com", "team wiki", auth.Authenticated("alice"))

		assert.NoError(t, err)
		assert.Equal(t, "alice", res.OwnerID)
		assert.Equal(t, "team wiki", res.Description)
		assert.Equal(t, testEpoch.Add(30*24*time.Hour), res.ExpiresAt)
	})

	t.Run("invalid token resolves to anonymous ownership", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		res, err := svc.CreateURL(context.Background(), "https://example.com", "", auth.Invalid())

		assert.NoError(t, err)
		assert.Equal(t, AnonymousOwner, res.OwnerID)
		assert.Equal(t, testEpoch.Add(7*24*time.Hour), res.ExpiresAt)
	})

	t.Run("rejects invalid urls", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		for _, rawURL := range []string{"", "not-a-url", "ftp://example.com/file", "https://", "//example.com"} {
			_, err := svc.CreateURL(context.Background(), rawURL, "", auth.Anonymous())
			assert.ErrorIs(t, err, ErrInvalidInput, "url %q", rawURL)
		}
	})

	t.Run("retries with fresh timestamp on collision", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(ErrCollision).Once()
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()

		svc := newTestService(t, repo, &mockPayloadStore{}, testClock(testEpoch))

		res, err := svc.CreateURL(context.Background(), "https://example.com", "", auth.Anonymous())

		assert.NoError(t, err)
		// Second attempt used the next clock tick.
		assert.Equal(t, testEpoch.Add(time.Second), res.CreatedAt)
		repo.AssertNumberOfCalls(t, "Insert", 2)
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(ErrCollision)

		svc := newTestService(t, repo, &mockPayloadStore{}, testClock(testEpoch))

		_, err := svc.CreateURL(context.Background(), "https://example.com", "", auth.Anonymous())

		assert.ErrorIs(t, err, ErrCollisionExhausted)
		repo.AssertNumberOfCalls(t, "Insert", 5)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, err := svc.CreateURL(ctx, "https://example.com", "", auth.Anonymous())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestServiceCreateFileResource(t *testing.T) {
	in := CreateFile{Name: "report.pdf", ContentType: "application/pdf", Description: "q2 report"}

	t.Run("inserts mapping then writes payload", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}

		var inserted Resource
		repo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			inserted = args.Get(1).(Resource)
		}).Return(nil)
		store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(PutResult{BytesWritten: 7}, nil)

		svc := newTestService(t, repo, store, nil)

		res, err := svc.CreateFileResource(context.Background(), in, strings.NewReader("content"), auth.Authenticated("alice"))

		assert.NoError(t, err)
		assert.Equal(t, KindFile, res.Kind)
		assert.Equal(t, "alice", res.OwnerID)
		assert.Equal(t, "alice/"+res.Hash+"/report.pdf", res.PayloadRef)
		assert.Equal(t, "application/pdf", res.ContentType)
		assert.Equal(t, testEpoch.Add(7*24*time.Hour), res.ExpiresAt)
		assert.Equal(t, inserted, res)
		store.AssertCalled(t, "Put", mock.Anything, res.PayloadRef, mock.Anything)
	})

	t.Run("anonymous upload gets one day", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
		store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(PutResult{}, nil)

		svc := newTestService(t, repo, store, nil)

		res, err := svc.CreateFileResource(context.Background(), in, strings.NewReader("content"), auth.Anonymous())

		assert.NoError(t, err)
		assert.Equal(t, AnonymousOwner, res.OwnerID)
		assert.Equal(t, testEpoch.Add(24*time.Hour), res.ExpiresAt)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, err := svc.CreateFileResource(context.Background(), in, strings.NewReader(""), auth.Anonymous())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects missing content type", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, err := svc.CreateFileResource(context.Background(), CreateFile{Name: "a.txt"}, strings.NewReader("x"), auth.Anonymous())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects path-like file names", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		for _, name := range []string{"", "..", "dir/file.txt", "..\\escape", "nul\x00byte"} {
			_, err := svc.CreateFileResource(context.Background(), CreateFile{Name: name, ContentType: "text/plain"}, strings.NewReader("x"), auth.Anonymous())
			assert.ErrorIs(t, err, ErrInvalidInput, "name %q", name)
		}
	})

	t.Run("removes mapping when payload write fails", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
		repo.On("Delete", mock.Anything, mock.Anything).Return(nil)
		store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(PutResult{}, errors.New("disk full"))

		svc := newTestService(t, repo, store, nil)

		_, err := svc.CreateFileResource(context.Background(), in, strings.NewReader("content"), auth.Anonymous())

		assert.ErrorContains(t, err, "disk full")
		repo.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("reports failed cleanup after failed write", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
		repo.On("Delete", mock.Anything, mock.Anything).Return(errors.New("db down"))
		store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(PutResult{}, errors.New("disk full"))

		svc := newTestService(t, repo, store, nil)

		_, err := svc.CreateFileResource(context.Background(), in, strings.NewReader("content"), auth.Anonymous())

		assert.ErrorContains(t, err, "disk full")
		assert.ErrorContains(t, err, "db down")
	})
}

func TestServiceGetURL(t *testing.T) {
	live := Resource{
		Hash:       "ab12cd34",
		Kind:       KindURL,
		OwnerID:    "alice",
		PayloadRef: "https://example.com",
		CreatedAt:  testEpoch.Add(-time.Hour),
		ExpiresAt:  testEpoch.Add(time.Hour),
	}

	t.Run("resolves live url", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(live, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		res, owner, err := svc.GetURL(context.Background(), "ab12cd34", auth.Anonymous())

		assert.NoError(t, err)
		assert.Equal(t, "https://example.com", res.PayloadRef)
		assert.False(t, owner)
	})

	t.Run("owner flag set for the creator", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(live, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		_, owner, err := svc.GetURL(context.Background(), "ab12cd34", auth.Authenticated("alice"))
		assert.NoError(t, err)
		assert.True(t, owner)

		_, owner, err = svc.GetURL(context.Background(), "ab12cd34", auth.Authenticated("bob"))
		assert.NoError(t, err)
		assert.False(t, owner)
	})

	t.Run("expired row is gone", func(t *testing.T) {
		expired := live
		expired.ExpiresAt = testEpoch.Add(-time.Minute)

		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(expired, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		_, _, err := svc.GetURL(context.Background(), "ab12cd34", auth.Anonymous())
		assert.ErrorIs(t, err, ErrGone)
	})

	t.Run("file hash does not resolve as url", func(t *testing.T) {
		fileRes := live
		fileRes.Kind = KindFile

		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(fileRes, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		_, _, err := svc.GetURL(context.Background(), "ab12cd34", auth.Anonymous())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed hash", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, _, err := svc.GetURL(context.Background(), "../../etc", auth.Anonymous())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown hash", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(Resource{}, ErrNotFound)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		_, _, err := svc.GetURL(context.Background(), "ab12cd34", auth.Anonymous())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestServiceGetFile(t *testing.T) {
	fileRes := Resource{
		Hash:        "ab12cd34",
		Kind:        KindFile,
		OwnerID:     "alice",
		PayloadRef:  "alice/ab12cd34/report.pdf",
		ContentType: "application/pdf",
		CreatedAt:   testEpoch.Add(-time.Hour),
		ExpiresAt:   testEpoch.Add(time.Hour),
	}

	t.Run("streams payload", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(fileRes, nil)
		store.On("Get", mock.Anything, fileRes.PayloadRef).Return(stubReadSeekCloser{strings.NewReader("content")}, nil)

		svc := newTestService(t, repo, store, nil)

		res, content, owner, err := svc.GetFile(context.Background(), "ab12cd34", auth.Authenticated("alice"))

		assert.NoError(t, err)
		assert.True(t, owner)
		assert.Equal(t, "application/pdf", res.ContentType)

		data, readErr := io.ReadAll(content)
		assert.NoError(t, readErr)
		assert.Equal(t, "content", string(data))
		assert.NoError(t, content.Close())
	})

	t.Run("missing payload object", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(fileRes, nil)
		store.On("Get", mock.Anything, fileRes.PayloadRef).Return(nil, ErrNotFound)

		svc := newTestService(t, repo, store, nil)

		_, _, _, err := svc.GetFile(context.Background(), "ab12cd34", auth.Anonymous())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestServiceStat(t *testing.T) {
	urlRes := Resource{
		Hash:       "ab12cd34",
		Kind:       KindURL,
		OwnerID:    "alice",
		PayloadRef: "https://example.com",
		ExpiresAt:  testEpoch.Add(time.Hour),
	}

	t.Run("reports the kind of a live resource", func(t *testing.T) {
		fileRes := urlRes
		fileRes.Kind = KindFile

		for _, res := range []Resource{urlRes, fileRes} {
			repo := &mockMappingRepo{}
			repo.On("Get", mock.Anything, "ab12cd34").Return(res, nil)

			svc := newTestService(t, repo, &mockPayloadStore{}, nil)

			kind, err := svc.Stat(context.Background(), "ab12cd34")
			assert.NoError(t, err)
			assert.Equal(t, res.Kind, kind)
		}
	})

	t.Run("expired resource reads as absent", func(t *testing.T) {
		expired := urlRes
		expired.ExpiresAt = testEpoch.Add(-time.Minute)

		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(expired, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		_, err := svc.Stat(context.Background(), "ab12cd34")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown hash", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(Resource{}, ErrNotFound)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		_, err := svc.Stat(context.Background(), "ab12cd34")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed hash", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, err := svc.Stat(context.Background(), "../../etc")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestServiceDelete(t *testing.T) {
	urlRes := Resource{
		Hash:       "ab12cd34",
		Kind:       KindURL,
		OwnerID:    "alice",
		PayloadRef: "https://example.com",
		ExpiresAt:  testEpoch.Add(time.Hour),
	}
	fileRes := Resource{
		Hash:       "ef56ab78",
		Kind:       KindFile,
		OwnerID:    AnonymousOwner,
		PayloadRef: "anon/ef56ab78/notes.txt",
		ExpiresAt:  testEpoch.Add(time.Hour),
	}

	t.Run("owner deletes own resource", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(urlRes, nil)
		repo.On("Delete", mock.Anything, "ab12cd34").Return(nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		err := svc.Delete(context.Background(), "ab12cd34", auth.Authenticated("alice"))
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(urlRes, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		assert.ErrorIs(t, svc.Delete(context.Background(), "ab12cd34", auth.Authenticated("bob")), ErrForbidden)
		assert.ErrorIs(t, svc.Delete(context.Background(), "ab12cd34", auth.Anonymous()), ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("anyone deletes anonymous-owned resources", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Get", mock.Anything, "ef56ab78").Return(fileRes, nil)
		repo.On("Delete", mock.Anything, "ef56ab78").Return(nil)
		store.On("Delete", mock.Anything, fileRes.PayloadRef).Return(nil)

		svc := newTestService(t, repo, store, nil)

		err := svc.Delete(context.Background(), "ef56ab78", auth.Anonymous())
		assert.NoError(t, err)
		store.AssertCalled(t, "Delete", mock.Anything, fileRes.PayloadRef)
	})

	t.Run("expired resource reads as absent", func(t *testing.T) {
		expired := urlRes
		expired.ExpiresAt = testEpoch.Add(-time.Minute)

		repo := &mockMappingRepo{}
		repo.On("Get", mock.Anything, "ab12cd34").Return(expired, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		err := svc.Delete(context.Background(), "ab12cd34", auth.Authenticated("alice"))
		assert.ErrorIs(t, err, ErrNotFound)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing payload object is not an error", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Get", mock.Anything, "ef56ab78").Return(fileRes, nil)
		repo.On("Delete", mock.Anything, "ef56ab78").Return(nil)
		store.On("Delete", mock.Anything, fileRes.PayloadRef).Return(ErrNotFound)

		svc := newTestService(t, repo, store, nil)

		assert.NoError(t, svc.Delete(context.Background(), "ef56ab78", auth.Anonymous()))
	})

	t.Run("failed payload release after row delete", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}
		repo.On("Get", mock.Anything, "ef56ab78").Return(fileRes, nil)
		repo.On("Delete", mock.Anything, "ef56ab78").Return(nil)
		store.On("Delete", mock.Anything, fileRes.PayloadRef).Return(errors.New("io error"))

		svc := newTestService(t, repo, store, nil)

		err := svc.Delete(context.Background(), "ef56ab78", auth.Anonymous())
		assert.ErrorIs(t, err, ErrPartialDelete)
	})

	t.Run("malformed hash", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		err := svc.Delete(context.Background(), "nope", auth.Anonymous())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestServiceList(t *testing.T) {
	t.Run("requires verified identity", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, err := svc.List(context.Background(), 1, 20, auth.Anonymous())
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = svc.List(context.Background(), 1, 20, auth.Invalid())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects bad pagination", func(t *testing.T) {
		svc := newTestService(t, &mockMappingRepo{}, &mockPayloadStore{}, nil)

		_, err := svc.List(context.Background(), 0, 20, auth.Authenticated("alice"))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("returns one page with totals", func(t *testing.T) {
		items := []Resource{
			{Hash: "ab12cd34", Kind: KindURL, OwnerID: "alice"},
			{Hash: "ef56ab78", Kind: KindFile, OwnerID: "alice"},
		}

		repo := &mockMappingRepo{}
		repo.On("ListByOwner", mock.Anything, ListQuery{OwnerID: "alice", Page: 2, PageSize: 2}).Return(items, 5, nil)

		svc := newTestService(t, repo, &mockPayloadStore{}, nil)

		result, err := svc.List(context.Background(), 2, 2, auth.Authenticated("alice"))

		assert.NoError(t, err)
		assert.Equal(t, items, result.Items)
		assert.Equal(t, 5, result.Total)
		assert.Equal(t, 2, result.Page)
		assert.Equal(t, 3, result.TotalPages)
	})
}

func TestServiceReap(t *testing.T) {
	expiredFile := Resource{Hash: "ab12cd34", Kind: KindFile, PayloadRef: "anon/ab12cd34/a.txt"}
	expiredURL := Resource{Hash: "ef56ab78", Kind: KindURL, PayloadRef: "https://example.com"}

	t.Run("removes expired rows and payloads in batches", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}

		repo.On("ListExpired", mock.Anything, mock.Anything, 2).Return([]Resource{expiredFile, expiredURL}, nil).Once()
		repo.On("ListExpired", mock.Anything, mock.Anything, 2).Return(nil, nil).Once()
		repo.On("Delete", mock.Anything, "ab12cd34").Return(nil)
		repo.On("Delete", mock.Anything, "ef56ab78").Return(nil)
		store.On("Delete", mock.Anything, expiredFile.PayloadRef).Return(nil)

		svc := newTestService(t, repo, store, nil)

		reaped, err := svc.Reap(context.Background(), 2)

		assert.NoError(t, err)
		assert.Equal(t, 2, reaped)
		store.AssertNumberOfCalls(t, "Delete", 1)
		repo.AssertExpectations(t)
	})

	t.Run("tolerates payload already gone", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}

		repo.On("ListExpired", mock.Anything, mock.Anything, 100).Return([]Resource{expiredFile}, nil).Once()
		repo.On("ListExpired", mock.Anything, mock.Anything, 100).Return(nil, nil).Once()
		repo.On("Delete", mock.Anything, "ab12cd34").Return(nil)
		store.On("Delete", mock.Anything, expiredFile.PayloadRef).Return(ErrNotFound)

		svc := newTestService(t, repo, store, nil)

		reaped, err := svc.Reap(context.Background(), 0)

		assert.NoError(t, err)
		assert.Equal(t, 1, reaped)
	})

	t.Run("stops on payload release failure", func(t *testing.T) {
		repo := &mockMappingRepo{}
		store := &mockPayloadStore{}

		repo.On("ListExpired", mock.Anything, mock.Anything, 100).Return([]Resource{expiredFile}, nil)
		store.On("Delete", mock.Anything, expiredFile.PayloadRef).Return(errors.New("io error"))

		svc := newTestService(t, repo, store, nil)

		_, err := svc.Reap(context.Background(), 100)
		assert.ErrorContains(t, err, "release payload")
	})
}
