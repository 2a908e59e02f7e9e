package providers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"contentpilot/types"
)

// WordPressConfig holds the site and application password credentials
type WordPressConfig struct {
	BaseURL     string
	Username    string
	AppPassword string
	Timeout     time.Duration
}

// WordPress publishes posts through the WordPress REST API
type WordPress struct {
	cfg  WordPressConfig
	http *HTTPClient
}

type wpPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt,omitempty"`
	Status  string `json:"status"`
}

type wpPostResponse struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// NewWordPress creates a publisher for the site at cfg.BaseURL
func NewWordPress(cfg WordPressConfig) *WordPress {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WordPress{cfg: cfg, http: NewHTTPClient(cfg.Timeout, 0)}
}

// Configured reports whether the site and credentials are set
func (w *WordPress) Configured() bool {
	return w != nil && w.cfg.BaseURL != "" && w.cfg.Username != "" && w.cfg.AppPassword != ""
}

func (w *WordPress) Publish(ctx context.Context, req types.PublishRequest) (*types.PublishResult, error) {
	if !w.Configured() {
		return nil, errors.New("wordpress publisher misconfigured")
	}

	content := req.Content
	if req.FeaturedImageURL != "" {
		content = fmt.Sprintf(`<figure class="wp-block-image"><img src="%s" alt="%s"/></figure>`,
			html.EscapeString(req.FeaturedImageURL), html.EscapeString(req.Title)) + "\n" + content
	}
	status := req.Status
	if status != "publish" {
		status = "draft"
	}

	var resp wpPostResponse
	err := w.http.PostJSON(ctx, w.cfg.BaseURL+"/wp-json/wp/v2/posts",
		map[string]string{"Authorization": "Basic " + basicAuth(w.cfg.Username, w.cfg.AppPassword)},
		wpPost{Title: req.Title, Content: content, Excerpt: req.Excerpt, Status: status},
		&resp)
	if err != nil {
		return nil, fmt.Errorf("wordpress publish: %w", err)
	}
	if resp.ID == 0 {
		return nil, errors.New("wordpress returned no post id")
	}
	return &types.PublishResult{PostID: strconv.Itoa(resp.ID), URL: resp.Link}, nil
}
