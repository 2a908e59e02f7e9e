package providers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"contentpilot/shared/htmltext"
	"contentpilot/types"
)

const writerSystemPrompt = `You are a senior content writer. Answer only with a JSON object with the keys
"title", "meta_description", "content" (HTML using h2/h3 headings and p paragraphs)
and "faq" (array of {"question","answer"}).`

// DefaultCohereModel is used when no model is configured
const DefaultCohereModel = "command-r-plus"

// CohereWriter drafts articles with the Cohere chat API
type CohereWriter struct {
	client *cohereclient.Client
	model  string
}

var _ Writer = (*CohereWriter)(nil)

// NewCohereWriter creates a writer for the given API key and model
func NewCohereWriter(apiKey, model string) *CohereWriter {
	if model == "" {
		model = DefaultCohereModel
	}
	// Force HTTP/1.1 to avoid HTTP/2 stream resets on long generations
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereWriter{client: client, model: model}
}

func (w *CohereWriter) Write(ctx context.Context, req types.WriteRequest) (*types.Draft, error) {
	model := w.model
	preamble := writerSystemPrompt
	resp, err := w.client.Chat(ctx, &cohere.ChatRequest{
		Message:  writePrompt(req),
		Model:    &model,
		Preamble: &preamble,
	})
	if err != nil {
		return nil, fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, errors.New("cohere chat returned empty response")
	}
	return parseDraft(resp.Text, req), nil
}

// ChatWriter drafts articles with an OpenAI-compatible chat model
type ChatWriter struct {
	chat *ChatClient
}

var _ Writer = (*ChatWriter)(nil)

// NewChatWriter wraps a chat client
func NewChatWriter(chat *ChatClient) *ChatWriter {
	return &ChatWriter{chat: chat}
}

func (w *ChatWriter) Write(ctx context.Context, req types.WriteRequest) (*types.Draft, error) {
	reply, err := w.chat.Complete(ctx, writerSystemPrompt, writePrompt(req))
	if err != nil {
		return nil, err
	}
	return parseDraft(reply, req), nil
}

func writePrompt(req types.WriteRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a blog article titled %q.\n", req.Title)
	if req.TargetWordCount > 0 {
		fmt.Fprintf(&b, "Length: about %d words.\n", req.TargetWordCount)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", req.Tone)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s.\n", strings.Join(req.Keywords, ", "))
	}
	if r := req.Research; r != nil {
		fmt.Fprintf(&b, "\nResearch summary:\n%s\n", r.Summary)
		for _, p := range r.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		for _, s := range r.Statistics {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}

// parseDraft turns a model reply into a Draft. Replies that are not JSON are
// taken as the article body.
func parseDraft(reply string, req types.WriteRequest) *types.Draft {
	var out struct {
		Title           string           `json:"title"`
		MetaDescription string           `json:"meta_description"`
		Content         string           `json:"content"`
		FAQ             []types.FAQEntry `json:"faq"`
	}
	if err := decodeEmbeddedJSON(reply, &out); err != nil || strings.TrimSpace(out.Content) == "" {
		out.Title = ""
		out.MetaDescription = ""
		out.FAQ = nil
		out.Content = reply
	}

	draft := &types.Draft{
		Title:           strings.TrimSpace(out.Title),
		Content:         strings.TrimSpace(out.Content),
		MetaDescription: strings.TrimSpace(out.MetaDescription),
		FAQ:             out.FAQ,
	}
	if draft.Title == "" {
		draft.Title = req.Title
	}
	if draft.MetaDescription == "" {
		draft.MetaDescription = htmltext.Excerpt(draft.Content, 155)
	}
	draft.Headings = htmltext.Headings(draft.Content)
	draft.WordCount = htmltext.WordCount(draft.Content)
	return draft
}
