// Package search provides best-effort web context via the DuckDuckGo
// Instant Answer API (no key required). Faults never reach the caller: any
// error yields an empty context block.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	searchTimeout   = 15 * time.Second
	snippetLimit    = 200 // runes per result body
	userAgentString = "Vivekabot/0.1"
)

// DuckDuckGo searches the web for fresh context snippets.
type DuckDuckGo struct {
	apiBase    string
	maxResults int
	client     *http.Client
	logger     *slog.Logger
}

type Config struct {
	APIBase    string
	MaxResults int
	Logger     *slog.Logger
}

func New(cfg Config) *DuckDuckGo {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.duckduckgo.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &DuckDuckGo{
		apiBase:    cfg.APIBase,
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: searchTimeout},
		logger:     cfg.Logger,
	}
}

// Search returns a formatted context block for the query, or "" when the
// lookup fails or yields nothing.
func (d *DuckDuckGo) Search(ctx context.Context, query string) string {
	d.logger.Info("searching", "query", query)

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		d.apiBase, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		d.logger.Error("search: new request failed", "err", err)
		return ""
	}
	req.Header.Set("User-Agent", userAgentString)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("search: request failed", "err", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Error("search: unexpected status", "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Error("search: read response failed", "err", err)
		return ""
	}

	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		d.logger.Error("search: parse response failed", "err", err)
		return ""
	}

	results := d.collect(ddg)
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n=== NETWORK DATA ===\n")
	for _, r := range results {
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (d *DuckDuckGo) collect(ddg ddgResponse) []string {
	var results []string

	if ddg.Abstract != "" {
		results = append(results, "• "+ddg.Heading+": "+truncate(ddg.Abstract)+"...")
	}
	if ddg.Answer != "" {
		results = append(results, "• Answer: "+truncate(ddg.Answer)+"...")
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= d.maxResults {
			break
		}
		if topic.Text != "" {
			results = append(results, "• "+truncate(topic.Text)+"...")
		}
	}
	if len(results) > d.maxResults {
		results = results[:d.maxResults]
	}
	return results
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit])
	}
	return s
}

type ddgResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}
