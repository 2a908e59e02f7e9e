package htmltext

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

const sampleArticle = `<h2>Why rooftop solar</h2><p>Panels pay back in about seven years.</p>
<script>track()</script><h3>Costs</h3><p>Prices fell again.</p>`

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Why rooftop solar Panels pay back in about seven years. Costs Prices fell again.", PlainText(sampleArticle))

	t.Run("ScriptsAndQuotedBrackets", func(t *testing.T) {
		fragment := `<p title="a > b">Batteries <b>ship</b> bundled.</p><script>if (a > b) { track() }</script><style>p > b {}</style>`
		assert.Equal(t, "Batteries ship bundled.", PlainText(fragment))
	})
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 14, WordCount(sampleArticle))
	assert.Equal(t, 0, WordCount(""))
}

func TestHeadings(t *testing.T) {
	assert.Equal(t, []string{"Why rooftop solar", "Costs"}, Headings(sampleArticle))
	assert.Empty(t, Headings("<p>no headings</p>"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", Excerpt("<p>short text</p>", 50))
	assert.Equal(t, "Why rooftop solar…", Excerpt(sampleArticle, 20))

	t.Run("MultiByteWord", func(t *testing.T) {
		got := Excerpt("<p>"+strings.Repeat("é", 200)+"</p>", 155)
		assert.True(t, utf8.ValidString(got))
		body := strings.TrimSuffix(got, "…")
		assert.Equal(t, strings.Repeat("é", 77), body)
	})
}
