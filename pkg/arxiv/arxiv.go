// Package arxiv queries the arXiv Atom API for paper metadata.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "ai-researcher/1.0 (+https://arxiv.org/help/api)"

// Config binds the ARXIV_* environment.
type Config struct {
	BaseURL     string        `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`
	MaxResults  int           `envconfig:"ARXIV_MAX_RESULTS" default:"5"`
	MinInterval time.Duration `envconfig:"ARXIV_MIN_INTERVAL" default:"3s"`
	Timeout     time.Duration `envconfig:"ARXIV_TIMEOUT" default:"20s"`
}

// Paper is the metadata of one search hit.
type Paper struct {
	ID        string
	Title     string
	Summary   string
	Authors   []string
	PDFURL    string
	Published time.Time
}

// Client searches arXiv. Requests are spaced by the configured minimum interval
// as the API terms ask.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
	limiter    *rate.Limiter
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		maxResults: maxResults,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Search returns the newest papers matching the keywords in topic.
func (c *Client) Search(ctx context.Context, topic string) ([]Paper, error) {
	words := strings.Fields(topic)
	if len(words) == 0 {
		return nil, errors.New("search topic is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("arxiv rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("search_query", "all:"+strings.Join(words, " AND all:"))
	q.Set("start", "0")
	q.Set("max_results", fmt.Sprint(c.maxResults))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}
	return f.papers(), nil
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"link"`
}

func (f feed) papers() []Paper {
	papers := make([]Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		p := Paper{
			ID:      strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(e.ID), "http://arxiv.org/abs/"), "https://arxiv.org/abs/"),
			Title:   collapse(e.Title),
			Summary: collapse(e.Summary),
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
			p.Published = t
		}
		for _, a := range e.Authors {
			if name := collapse(a.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		for _, l := range e.Links {
			if l.Title == "pdf" || l.Type == "application/pdf" {
				p.PDFURL = l.Href
				break
			}
		}
		if p.PDFURL == "" && p.ID != "" {
			p.PDFURL = "https://arxiv.org/pdf/" + p.ID
		}
		papers = append(papers, p)
	}
	return papers
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
