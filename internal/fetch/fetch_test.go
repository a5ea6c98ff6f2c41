package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Lomba</h1></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Lomba</h1>")
	assert.Equal(t, result.HTML, string(result.Body))
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestURL_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-valid-url", "ftp://example.com/a.jpg", ""} {
		_, err := URL(context.Background(), raw, nil)
		require.Error(t, err)

		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
		assert.False(t, retry.IsRetryable(err))
	}
}

func TestURL_HTTPErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			result, err := URL(context.Background(), server.URL, nil)
			require.Error(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Equal(t, tt.retryable, retry.IsRetryable(err))
		})
	}
}

func TestURL_ConnectionRefusedIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := URL(context.Background(), addr, nil)
	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestURL_CustomHeaders(t *testing.T) {
	var gotUA, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Headers = map[string]string{"Authorization": "Bearer token"}
	_, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "Bearer token", gotAuth)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"absolute kept", "https://infolomba.id", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"relative with slash", "https://infolomba.id/", "/uploads/a.jpg", "https://infolomba.id/uploads/a.jpg"},
		{"relative without slash", "https://infolomba.id", "uploads/a.jpg", "https://infolomba.id/uploads/a.jpg"},
		{"protocol relative", "https://infolomba.id", "//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"empty", "https://infolomba.id", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.base, tt.ref))
		})
	}
}

func TestSiteRoot(t *testing.T) {
	assert.Equal(t, "https://site.id", SiteRoot("https://site.id/lomba?page=1"))
	assert.Equal(t, "http://site.id:8080", SiteRoot("http://site.id:8080/a/b#top"))
	assert.Equal(t, "https://site.id", SiteRoot("https://site.id"))
	assert.Equal(t, "not a url", SiteRoot("not a url"))
}

func TestExtractMainText_WithMainElement(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Lomba Esai Nasional</h1>
				<p>Terbuka untuk siswa SMA.</p>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "Lomba Esai Nasional")
	assert.Contains(t, text, "Terbuka untuk siswa SMA.")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Footer")
}

func TestExtractMainText_PlatformSelectors(t *testing.T) {
	html := `
	<html><body>
		<div class="event-sidebar">Daftar sekarang</div>
		<div class="event-description">
			<p>Deadline 31-12-2025</p>
			<div class="social-share">Share</div>
		</div>
	</body></html>`

	text, err := ExtractMainText(html,
		PlatformContentSelectors(PlatformInfoLomba),
		PlatformNoiseSelectors(PlatformInfoLomba)...)
	require.NoError(t, err)
	assert.Equal(t, "Deadline 31-12-2025", text)
}

func TestExtractMainText_FallbackToBody(t *testing.T) {
	html := `<html><body><div>Just body</div></body></html>`

	text, err := ExtractMainText(html, []string{".missing"})
	require.NoError(t, err)
	assert.Equal(t, "Just body", text)
}

func TestCleanWhitespace(t *testing.T) {
	assert.Equal(t, "a\nb", CleanWhitespace("  a  \n\n   \n b "))
}
