package docreader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, contentType, body string, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestReadHTML(t *testing.T) {
	page := `<!doctype html><html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><nav>Home | About</nav><h1>Diffusion&nbsp;Models</h1>
<p>Noise   is &amp; added.</p><footer>copyright</footer></body></html>`
	url := serve(t, "text/html; charset=utf-8", page, http.StatusOK)

	text, err := New(Config{MaxBytes: 1024}).Read(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Diffusion Models\nNoise is & added.", text)
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "copyright")
}

func TestReadPlainTextTruncates(t *testing.T) {
	url := serve(t, "text/plain", strings.Repeat("a", 100), http.StatusOK)

	text, err := New(Config{MaxBytes: 10}).Read(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 10)+truncatedMarker, text)
}

func TestReadHTTPError(t *testing.T) {
	url := serve(t, "text/plain", "gone", http.StatusNotFound)

	_, err := New(Config{}).Read(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch http 404")
}

func TestReadUnsupportedFormat(t *testing.T) {
	url := serve(t, "image/png", "\x89PNG\r\n\x1a\n\x00\x00", http.StatusOK)

	_, err := New(Config{}).Read(context.Background(), url)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadMalformedPDF(t *testing.T) {
	url := serve(t, "application/pdf", "%PDF-1.4\nthis is not really a pdf", http.StatusOK)

	_, err := New(Config{}).Read(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read pdf")
}

func TestReadTooLarge(t *testing.T) {
	url := serve(t, "text/plain", strings.Repeat("x", 64), http.StatusOK)

	_, err := New(Config{MaxDownloadBytes: 16}).Read(context.Background(), url)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadRejectsBadLocators(t *testing.T) {
	r := New(Config{})
	for _, loc := range []string{"", "   ", "file:///etc/passwd", "not a url", "ftp://example.com/x.pdf"} {
		_, err := r.Read(context.Background(), loc)
		assert.Error(t, err, loc)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	got := truncate("héllo", 2)
	assert.Equal(t, "h"+truncatedMarker, got)
	assert.Equal(t, "short", truncate("short", 0))
}
