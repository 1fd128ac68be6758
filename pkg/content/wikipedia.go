package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLanguage  = "en"
	defaultUserAgent = "WikiGuide/1.0"
	maxResponseBytes = 4 << 20
)

// WikipediaConfig configures WikipediaSource.
type WikipediaConfig struct {
	Language  string
	UserAgent string
	// Endpoint overrides https://{Language}.wikipedia.org/w/api.php.
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

// WikipediaSource looks up plain-text article extracts through the MediaWiki Action API.
type WikipediaSource struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewWikipediaSource returns a source for the configured language.
func NewWikipediaSource(cfg WikipediaConfig) *WikipediaSource {
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = defaultLanguage
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WikipediaSource{endpoint: endpoint, userAgent: ua, client: client}
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Invalid bool   `json:"invalid"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Lookup fetches the article titled query. Missing and invalid titles are
// reported as Content{Exists: false} without an error.
func (w *WikipediaSource) Lookup(ctx context.Context, query string) (Content, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return Content{}, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("prop", "extracts|info")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Content{}, fmt.Errorf("build wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return Content{}, fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	var body queryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return Content{}, fmt.Errorf("decode wikipedia response: %w", err)
	}
	if body.Error != nil {
		return Content{}, fmt.Errorf("wikipedia api error %s: %s", body.Error.Code, body.Error.Info)
	}
	if len(body.Query.Pages) == 0 {
		return Content{Exists: false, Title: query}, nil
	}

	page := body.Query.Pages[0]
	if page.Missing || page.Invalid || strings.TrimSpace(page.Extract) == "" {
		return Content{Exists: false, Title: query}, nil
	}
	return Content{
		Exists: true,
		Title:  page.Title,
		Text:   strings.TrimSpace(page.Extract),
		URL:    page.FullURL,
	}, nil
}
