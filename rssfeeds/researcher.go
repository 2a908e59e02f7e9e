// Package rssfeeds researches topics from news feeds: a feed search finds
// recent coverage and the linked pages are extracted into plain text.
package rssfeeds

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"contentpilot/shared/htmltext"
	"contentpilot/types"
)

// Config configures a Researcher
type Config struct {
	// SearchURL is a feed URL template with one %s for the query
	SearchURL string
	// Feeds are preset names or URLs scanned for entries matching the topic
	Feeds []string
	// MaxSources caps how many sources are extracted per topic
	MaxSources int
	// Extract fetches full articles; when false only feed summaries are used
	Extract bool
}

// Researcher builds research payloads from feed search results
type Researcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewResearcher creates a feed researcher
func NewResearcher(cfg Config, logger *zap.Logger) *Researcher {
	if cfg.SearchURL == "" && len(cfg.Feeds) == 0 {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{cfg: cfg, logger: logger}
}

// Research gathers sources for topic and condenses them into a payload
func (r *Researcher) Research(ctx context.Context, topic string, hints []string) (*types.ResearchPayload, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("research topic is empty")
	}

	sources, err := r.collect(ctx, topic, hints)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources found for %q", topic)
	}

	if r.cfg.Extract {
		ExtractAll(ctx, sources, r.logger)
	}

	payload := condense(sources)
	payload.RelatedQueries = relatedQueries(topic, hints)

	r.logger.Info("Feed research complete",
		zap.String("topic", topic),
		zap.Int("sources", len(sources)))
	return payload, nil
}

// collect merges search results with matching entries of the configured
// feeds, dropping duplicate links.
func (r *Researcher) collect(ctx context.Context, topic string, hints []string) ([]*Source, error) {
	seen := make(map[string]bool)
	var out []*Source
	add := func(s *Source) {
		if s.URL == "" || seen[s.URL] || len(out) >= r.cfg.MaxSources {
			return
		}
		seen[s.URL] = true
		out = append(out, s)
	}

	var lastErr error
	if r.cfg.SearchURL != "" {
		query := strings.Join(append([]string{topic}, hints...), " ")
		found, err := FetchFeed(ctx, SearchURL(r.cfg.SearchURL, query), r.cfg.MaxSources)
		if err != nil {
			lastErr = err
			r.logger.Warn("Feed search failed", zap.String("topic", topic), zap.Error(err))
		}
		for _, s := range found {
			add(s)
		}
	}

	terms := matchTerms(topic, hints)
	for _, feed := range r.cfg.Feeds {
		if len(out) >= r.cfg.MaxSources {
			break
		}
		entries, err := FetchFeed(ctx, ResolveFeedURL(feed), 0)
		if err != nil {
			lastErr = err
			r.logger.Warn("Feed fetch failed", zap.String("feed", feed), zap.Error(err))
			continue
		}
		for _, s := range entries {
			if matches(s, terms) {
				add(s)
			}
		}
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

var sentenceSplit = regexp.MustCompile(`[.!?]\s+`)

var hasNumber = regexp.MustCompile(`\d`)

// condense turns sources into a research payload
func condense(sources []*Source) *types.ResearchPayload {
	payload := &types.ResearchPayload{}
	var summary []string

	for _, s := range sources {
		payload.Sources = append(payload.Sources, s.URL)
		if s.Title != "" {
			payload.KeyPoints = append(payload.KeyPoints, s.Title)
		}

		text := s.Text
		if text == "" {
			text = htmltext.PlainText(s.Summary)
		}
		if excerpt := firstNonEmpty(s.Excerpt, firstSentences(text, 2)); excerpt != "" {
			summary = append(summary, excerpt)
		}

		for _, sentence := range sentenceSplit.Split(text, -1) {
			if len(payload.Statistics) >= 5 {
				break
			}
			sentence = strings.TrimSpace(sentence)
			if hasNumber.MatchString(sentence) && len(sentence) > 20 && len(sentence) < 300 {
				payload.Statistics = append(payload.Statistics, sentence)
			}
		}
	}

	payload.Summary = strings.Join(summary, " ")
	return payload
}

func firstSentences(text string, n int) string {
	parts := sentenceSplit.Split(strings.TrimSpace(text), n+1)
	if len(parts) > n {
		parts = parts[:n]
	}
	out := strings.TrimSpace(strings.Join(parts, ". "))
	if out != "" && !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func matchTerms(topic string, hints []string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len(w) > 3 {
			terms = append(terms, w)
		}
	}
	for _, h := range hints {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			terms = append(terms, h)
		}
	}
	return terms
}

func matches(s *Source, terms []string) bool {
	haystack := strings.ToLower(s.Title + " " + s.Summary + " " + strings.Join(s.Categories, " "))
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func relatedQueries(topic string, hints []string) []string {
	var out []string
	for _, h := range hints {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, topic+" "+h)
		}
	}
	return out
}
