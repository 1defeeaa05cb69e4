// Package docreader downloads a document and returns its plain text.
package docreader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const truncatedMarker = "\n[TRUNCATED]"

var (
	// ErrUnsupportedFormat is returned for documents that are not PDF, HTML or text.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrTooLarge is returned when the download exceeds the configured limit.
	ErrTooLarge = errors.New("document too large")
)

// Config binds the READER_* environment.
type Config struct {
	MaxBytes         int           `envconfig:"READER_MAX_BYTES" default:"32768"`
	MaxDownloadBytes int64         `envconfig:"READER_MAX_DOWNLOAD_BYTES" default:"52428800"`
	Timeout          time.Duration `envconfig:"READER_TIMEOUT" default:"30s"`
}

// Reader fetches documents over HTTP.
type Reader struct {
	client      *http.Client
	maxBytes    int
	maxDownload int64
}

// New creates a reader from cfg.
func New(cfg Config) *Reader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxDownload := cfg.MaxDownloadBytes
	if maxDownload <= 0 {
		maxDownload = 50 << 20
	}
	return &Reader{
		client:      &http.Client{Timeout: timeout},
		maxBytes:    cfg.MaxBytes,
		maxDownload: maxDownload,
	}
}

// Read downloads locator and extracts its text. Output longer than the
// configured limit is cut and marked as truncated.
func (r *Reader) Read(ctx context.Context, locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return "", errors.New("document locator is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("document locator %q is not an http(s) URL", trimmed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ai-researcher/1.0)")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxDownload+1))
	if err != nil {
		return "", err
	}
	if int64(len(body)) > r.maxDownload {
		return "", ErrTooLarge
	}

	text, err := extract(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	return truncate(text, r.maxBytes), nil
}

func extract(body []byte, contentType string) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case bytes.HasPrefix(body, []byte("%PDF")) || mediaType == "application/pdf":
		return extractPDF(body)
	case mediaType == "text/html" || mediaType == "application/xhtml+xml" || looksLikeHTML(body):
		return stripHTML(string(body)), nil
	case strings.HasPrefix(mediaType, "text/") || (mediaType == "" && utf8.Valid(body)):
		return strings.TrimSpace(string(body)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}
}

// extractPDF reads every page's text. The pdf package panics on some malformed
// inputs, so panics are turned into errors.
func extractPDF(body []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return normalizeSpace(string(raw)), nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(len(body), 512)])
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html"))
}

var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reChrome     = regexp.MustCompile(`(?is)<(nav|header|footer)[^>]*>.*?</(nav|header|footer)>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// stripHTML drops scripts, styles and page chrome, then every remaining tag.
func stripHTML(s string) string {
	s = reScript.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reChrome.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return normalizeSpace(s)
}

func normalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// truncate cuts s to at most limit bytes on a rune boundary. A non-positive
// limit disables truncation.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedMarker
}
