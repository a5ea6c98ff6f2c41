package relocation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/jonathan/competition-radar/internal/types"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if m.failPut {
		return errors.New("bucket unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memStore) PublicURL(key string) string {
	return JoinPublicURL("https://storage.example.com/posters/", key)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fastOptions() Options {
	return Options{
		BatchSize:      2,
		BatchPause:     time.Millisecond,
		RequestTimeout: time.Second,
		Retry:          retry.Policy{BaseDelay: time.Millisecond, Multiplier: 2, MaxAttempts: 3, Jitter: 0.5},
	}
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1735689600123)

	assert.Equal(t, "1735689600123-lomba-esai-nasional-2025.jpg",
		ObjectKey(now, types.CandidateItem{Title: "Lomba Esai Nasional 2025!"}))
	assert.Equal(t, "1735689600123-instagram.jpg",
		ObjectKey(now, types.CandidateItem{Title: "  ", Origin: types.OriginInstagram}))
	assert.Equal(t, "1735689600123-poster.jpg",
		ObjectKey(now, types.CandidateItem{Title: "???"}))

	long := ObjectKey(now, types.CandidateItem{Title: "Kompetisi Sains Nasional Tingkat SMA Se-Indonesia Tahun Ajaran 2025 2026 Gelombang Kedua"})
	slug := long[len("1735689600123-") : len(long)-len(".jpg")]
	assert.LessOrEqual(t, len(slug), maxKeySlug)
	assert.Regexp(t, `^[a-z0-9-]+$`, slug)
}

func TestRelocate_SuccessAndFallbacks(t *testing.T) {
	var flaky atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		case "/flaky.jpg":
			if flaky.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("jpg-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := newMemStore()
	r := New(store, fastOptions(), quiet())
	r.now = func() time.Time { return time.UnixMilli(1000) }

	items := []types.CandidateItem{
		{Title: "Lomba A", MediaURL: server.URL + "/ok.png"},
		{Title: "Lomba B", MediaURL: server.URL + "/flaky.jpg"},
		{Title: "Lomba C", MediaURL: server.URL + "/missing.jpg"},
		{Title: "Lomba D", MediaURL: "not a url"},
	}

	out := r.Relocate(context.Background(), items)
	require.Len(t, out, 4)

	assert.True(t, out[0].Relocated)
	assert.Equal(t, "https://storage.example.com/posters/1000-lomba-a.jpg", out[0].PosterURL)
	assert.Equal(t, "image/png", store.types["1000-lomba-a.jpg"])

	assert.True(t, out[1].Relocated, "5xx is retried")
	assert.Equal(t, "https://storage.example.com/posters/1001-lomba-b.jpg", out[1].PosterURL)

	assert.False(t, out[2].Relocated)
	assert.Equal(t, server.URL+"/missing.jpg", out[2].PosterURL, "original url preserved")
	var relErr *RelocationError
	assert.ErrorAs(t, out[2].Err, &relErr)

	assert.False(t, out[3].Relocated)
	assert.Equal(t, "not a url", out[3].PosterURL)
}

func TestRelocate_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	out := New(newMemStore(), fastOptions(), quiet()).Relocate(context.Background(),
		[]types.CandidateItem{{MediaURL: server.URL + "/gone.jpg"}})

	assert.False(t, out[0].Relocated)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRelocate_UploadFailureKeepsOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("img"))
	}))
	defer server.Close()

	store := newMemStore()
	store.failPut = true

	out := New(store, fastOptions(), quiet()).Relocate(context.Background(),
		[]types.CandidateItem{{MediaURL: server.URL + "/a.jpg"}})

	assert.False(t, out[0].Relocated)
	assert.Equal(t, server.URL+"/a.jpg", out[0].PosterURL)
	require.Error(t, out[0].Err)
}

func TestRelocate_BatchesBoundConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte("img"))
	}))
	defer server.Close()

	var items []types.CandidateItem
	for i := 0; i < 5; i++ {
		items = append(items, types.CandidateItem{MediaURL: server.URL + "/x.jpg"})
	}

	out := New(newMemStore(), fastOptions(), quiet()).Relocate(context.Background(), items)

	assert.Len(t, out, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
