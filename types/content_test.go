package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentItemClone(t *testing.T) {
	scheduled := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	item := &ContentItem{
		ID:           "item",
		Keywords:     []string{"solar"},
		ScheduledFor: &scheduled,
		ResearchData: &ResearchPayload{
			Summary:        "summary",
			KeyPoints:      []string{"prices fell"},
			Statistics:     []string{"48% growth"},
			Sources:        []string{"https://example.com"},
			RelatedQueries: []string{"home batteries"},
		},
		GeneratedContent: &Draft{
			Title:    "Draft",
			Headings: []string{"Intro"},
			FAQ:      []FAQEntry{{Question: "Q?", Answer: "A."}},
		},
	}

	clone := item.Clone()
	require.Equal(t, item, clone)

	clone.Keywords[0] = "wind"
	*clone.ScheduledFor = scheduled.Add(time.Hour)
	clone.ResearchData.KeyPoints[0] = "changed"
	clone.ResearchData.Statistics[0] = "changed"
	clone.ResearchData.Sources[0] = "changed"
	clone.ResearchData.RelatedQueries[0] = "changed"
	clone.GeneratedContent.Headings[0] = "changed"
	clone.GeneratedContent.FAQ[0].Answer = "changed"

	assert.Equal(t, []string{"solar"}, item.Keywords)
	assert.Equal(t, scheduled, *item.ScheduledFor)
	assert.Equal(t, []string{"prices fell"}, item.ResearchData.KeyPoints)
	assert.Equal(t, []string{"48% growth"}, item.ResearchData.Statistics)
	assert.Equal(t, []string{"https://example.com"}, item.ResearchData.Sources)
	assert.Equal(t, []string{"home batteries"}, item.ResearchData.RelatedQueries)
	assert.Equal(t, []string{"Intro"}, item.GeneratedContent.Headings)
	assert.Equal(t, "A.", item.GeneratedContent.FAQ[0].Answer)

	var empty *ContentItem
	assert.Nil(t, empty.Clone())
	assert.Nil(t, (&ContentItem{}).Clone().ResearchData)
}
