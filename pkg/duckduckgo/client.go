// Package duckduckgo provides clients for the DuckDuckGo HTML results
// endpoint and the Instant Answer JSON API.
package duckduckgo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Client defines the DuckDuckGo search operations.
type Client interface {
	// SearchHTML scrapes the HTML results endpoint (html.duckduckgo.com).
	// maxResults caps the returned slice; 0 means no cap.
	SearchHTML(ctx context.Context, query string, maxResults int) ([]Result, error)
	// SearchInstant queries the Instant Answer JSON API (api.duckduckgo.com).
	SearchInstant(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Result is a single search hit.
type Result struct {
	Title string
	URL   string
}

// Option configures the DuckDuckGo client.
type Option func(*httpClient)

// WithHTMLBaseURL sets a custom HTML endpoint base URL (for testing).
func WithHTMLBaseURL(url string) Option {
	return func(c *httpClient) {
		c.htmlBaseURL = url
	}
}

// WithAPIBaseURL sets a custom Instant Answer API base URL (for testing).
func WithAPIBaseURL(url string) Option {
	return func(c *httpClient) {
		c.apiBaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	htmlBaseURL string
	apiBaseURL  string
	userAgent   string
	http        *http.Client
}

// NewClient creates a new DuckDuckGo client. No API key is required; both
// endpoints are public.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		htmlBaseURL: "https://html.duckduckgo.com",
		apiBaseURL:  "https://api.duckduckgo.com",
		userAgent:   "Mozilla/5.0 (compatible; OutreachBot/1.0)",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchHTML(ctx context.Context, query string, maxResults int) ([]Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.htmlBaseURL+"/html/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: html search request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("duckduckgo: html search status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: parse html results")
	}

	var results []Result
	seen := make(map[string]bool)
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" || seen[target] {
			return true
		}
		seen[target] = true
		results = append(results, Result{
			Title: strings.TrimSpace(sel.Text()),
			URL:   target,
		})
		return maxResults <= 0 || len(results) < maxResults
	})

	return results, nil
}

// resolveRedirect unwraps the result links served by the HTML endpoint.
// Modern responses wrap targets in //duckduckgo.com/l/?uddg=<encoded>;
// links that stay on duckduckgo.com with no payload are navigation chrome.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Host, "duckduckgo.com") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		tu, err := url.Parse(target)
		if err != nil || strings.Contains(tu.Host, "duckduckgo.com") {
			return ""
		}
		href = target
		u = tu
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}

// apiResponse covers the Instant Answer fields the searcher reads. Results
// carries organic hits; RelatedTopics carries topic summaries where entries
// with a Name are category containers rather than hits.
type apiResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Results       []apiTopic `json:"Results"`
	RelatedTopics []apiTopic `json:"RelatedTopics"`
}

type apiTopic struct {
	Name     string `json:"Name"`
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

func (c *httpClient) SearchInstant(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: instant answer request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("duckduckgo: instant answer status %d: %s", resp.StatusCode, string(body))
	}

	var data apiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, eris.Wrap(err, "duckduckgo: unmarshal response")
	}

	topics := data.Results
	if len(topics) == 0 {
		for _, t := range data.RelatedTopics {
			if t.Name == "" {
				topics = append(topics, t)
			}
		}
	}

	var results []Result
	for _, t := range topics {
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
		if t.FirstURL == "" {
			continue
		}
		title := t.Text
		if title == "" {
			title = data.Heading
		}
		results = append(results, Result{Title: title, URL: t.FirstURL})
	}

	if len(results) == 0 && data.AbstractURL != "" {
		title := data.Heading
		if title == "" {
			title = data.AbstractText
		}
		results = append(results, Result{Title: title, URL: data.AbstractURL})
	}

	return results, nil
}
