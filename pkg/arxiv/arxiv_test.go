package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2501.00001v1</id>
    <published>2025-01-01T00:00:00Z</published>
    <title>Score-Based
      Diffusion Models</title>
    <summary>  We study diffusion
 models.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2501.00001v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2501.00001v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2501.00002v2</id>
    <published>not-a-date</published>
    <title>Latent Diffusion</title>
    <summary>Another one.</summary>
  </entry>
</feed>`

func TestSearchParsesFeed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MaxResults: 3})
	papers, err := c.Search(context.Background(), "  diffusion   models ")
	require.NoError(t, err)

	assert.Equal(t, "all:diffusion AND all:models", gotQuery)
	require.Len(t, papers, 2)

	first := papers[0]
	assert.Equal(t, "2501.00001v1", first.ID)
	assert.Equal(t, "Score-Based Diffusion Models", first.Title)
	assert.Equal(t, "We study diffusion models.", first.Summary)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, first.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2501.00001v1", first.PDFURL)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), first.Published)

	second := papers[1]
	assert.Equal(t, "https://arxiv.org/pdf/2501.00002v2", second.PDFURL)
	assert.True(t, second.Published.IsZero())
}

func TestSearchEmptyTopic(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0"})
	_, err := c.Search(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), "graphs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arxiv http 503")
}

func TestSearchRespectsMinInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MinInterval: time.Hour})
	_, err := c.Search(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "second")
	assert.Error(t, err)
}
