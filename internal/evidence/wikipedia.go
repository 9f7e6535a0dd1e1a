package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/model"
)

// Retriever looks up the best-matching document for a query and fetches its summary
type Retriever interface {
	FindBestTitle(ctx context.Context, query string) (string, bool, error)
	FetchSummary(ctx context.Context, title string) (*model.Evidence, error)
}

// ClientConfig configures a WikipediaClient
type ClientConfig struct {
	SearchURL  string // MediaWiki action API endpoint
	SummaryURL string // REST page/summary prefix, ending in "/"
	UserAgent  string
	MaxRetries int // retries on HTTP 429
}

// WikipediaClient queries the MediaWiki search API and the REST summary endpoint
type WikipediaClient struct {
	httpClient *http.Client
	config     ClientConfig
}

// NewWikipediaClient creates a client. httpClient carries timeout, proxy and throttling.
func NewWikipediaClient(httpClient *http.Client, config ClientConfig) *WikipediaClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if config.SummaryURL != "" && !strings.HasSuffix(config.SummaryURL, "/") {
		config.SummaryURL += "/"
	}
	return &WikipediaClient{httpClient: httpClient, config: config}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type summaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// FindBestTitle returns the top-ranked search hit's title, or found=false when there are no hits
func (c *WikipediaClient) FindBestTitle(ctx context.Context, query string) (string, bool, error) {
	const op = "wikipedia search"

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
		"format":   {"json"},
	}

	resp, err := c.get(ctx, op, c.config.SearchURL+"?"+params.Encode())
	if err != nil {
		return "", false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false, apperr.NewHTTPStatus(op, resp.StatusCode, snippet(resp.Body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", false, apperr.NewTransport(op, fmt.Errorf("decode response: %w", err))
	}

	if len(sr.Query.Search) == 0 || sr.Query.Search[0].Title == "" {
		return "", false, nil
	}
	return sr.Query.Search[0].Title, true, nil
}

// FetchSummary fetches the REST summary for title. A 404 returns (nil, nil).
func (c *WikipediaClient) FetchSummary(ctx context.Context, title string) (*model.Evidence, error) {
	const op = "wikipedia summary"

	slug := strings.ReplaceAll(title, " ", "_")
	resp, err := c.get(ctx, op, c.config.SummaryURL+url.PathEscape(slug))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewHTTPStatus(op, resp.StatusCode, snippet(resp.Body))
	}

	var sr summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, apperr.NewTransport(op, fmt.Errorf("decode response: %w", err))
	}

	pageURL := sr.ContentURLs.Desktop.Page
	if pageURL == "" {
		pageURL = c.fallbackPageURL(slug)
	}

	text := sr.Extract
	if text == "" && sr.ExtractHTML != "" {
		text = htmlToText(sr.ExtractHTML)
	}

	return &model.Evidence{URL: pageURL, Text: text}, nil
}

// fallbackPageURL builds https://<host>/wiki/<slug> from the summary endpoint's host
func (c *WikipediaClient) fallbackPageURL(slug string) string {
	host := "en.wikipedia.org"
	scheme := "https"
	if parsed, err := url.Parse(c.config.SummaryURL); err == nil && parsed.Host != "" {
		host = parsed.Host
		scheme = parsed.Scheme
	}
	return fmt.Sprintf("%s://%s/wiki/%s", scheme, host, slug)
}

// get issues a GET with the JSON Accept header, retrying on 429
func (c *WikipediaClient) get(ctx context.Context, op, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.NewTransport(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := DoWithRetry(ctx, c.httpClient, req, c.config.MaxRetries)
	if err != nil {
		return nil, apperr.NewTransport(op, err)
	}
	return resp, nil
}

// snippet reads a short prefix of an error body for diagnostics
func snippet(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, 200))
	return strings.TrimSpace(string(b))
}

// BuildQuery joins the trimmed question and answer with a single space.
// Retrieval quality depends on answer phrasing; the query is not rewritten.
func BuildQuery(question, answer string) string {
	return strings.TrimSpace(strings.TrimSpace(question) + " " + strings.TrimSpace(answer))
}
