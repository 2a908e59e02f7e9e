package rssfeeds

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultSearchURL is a Google News RSS search; %s receives the escaped query
const DefaultSearchURL = "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en"

// FeedPresets maps friendly names to RSS feed URLs
var FeedPresets = map[string]string{
	"cna": "https://www.channelnewsasia.com/api/v1/rss-outbound-feed?_format=xml",
	"st":  "https://www.straitstimes.com/news/singapore/rss.xml",
	"hn":  "https://hnrss.org/newest",
	"tr":  "https://www.technologyreview.com/feed/",
}

// ResolveFeedURL resolves a preset name to its URL.
// Anything that is not a preset is returned as-is.
func ResolveFeedURL(feedInput string) string {
	if u, exists := FeedPresets[strings.ToLower(strings.TrimSpace(feedInput))]; exists {
		return u
	}
	return feedInput
}

// SearchURL fills a search template with the query
func SearchURL(template, query string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, url.QueryEscape(query))
}
