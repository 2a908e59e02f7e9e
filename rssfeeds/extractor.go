package rssfeeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const (
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second
)

// ExtractAll fetches and extracts the readable text of every source using a
// worker pool. Failures are recorded on the source.
func ExtractAll(ctx context.Context, sources []*Source, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	jobs := make(chan *Source)
	var wg sync.WaitGroup

	workers := WorkerCount
	if len(sources) < workers {
		workers = len(sources)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for source := range jobs {
				if err := extract(ctx, source); err != nil {
					source.ExtractionError = err.Error()
					logger.Debug("Extraction failed",
						zap.Int("worker", workerID),
						zap.String("url", source.URL),
						zap.Error(err))
				}
			}
		}(i)
	}

queue:
	for _, source := range sources {
		select {
		case jobs <- source:
		case <-ctx.Done():
			break queue
		}
	}
	close(jobs)
	wg.Wait()
}

// extract fetches one source and fills its text fields. The request is
// bound to ctx and to extractorTimeout.
func extract(ctx context.Context, source *Source) error {
	if source.URL == "" {
		return fmt.Errorf("source URL is empty")
	}
	pageURL, err := url.ParseRequestURI(source.URL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, extractorTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return fmt.Errorf("page is not HTML: %q", ct)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}

	source.Text = article.TextContent
	source.Excerpt = article.Excerpt
	if source.Title == "" {
		source.Title = article.Title
	}
	return nil
}
