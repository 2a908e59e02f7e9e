package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contentpilot/types"
)

const researchSystemPrompt = `You are a research assistant. Answer only with a JSON object with the keys
"summary" (string), "key_points", "statistics", "sources" and "related_queries" (arrays of strings).`

// ChatResearcher researches a topic with an OpenAI-compatible chat model
type ChatResearcher struct {
	chat *ChatClient
}

var _ Researcher = (*ChatResearcher)(nil)

// NewChatResearcher wraps a chat client
func NewChatResearcher(chat *ChatClient) *ChatResearcher {
	return &ChatResearcher{chat: chat}
}

func (r *ChatResearcher) Research(ctx context.Context, topic string, hints []string) (*types.ResearchPayload, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("research topic is empty")
	}

	prompt := fmt.Sprintf("Research the topic %q for a blog article.", topic)
	if len(hints) > 0 {
		prompt += " Focus on: " + strings.Join(hints, ", ") + "."
	}

	reply, err := r.chat.Complete(ctx, researchSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var payload types.ResearchPayload
	if err := decodeEmbeddedJSON(reply, &payload); err != nil {
		// Unstructured answers are still usable as a summary
		payload = types.ResearchPayload{Summary: reply}
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, errors.New("research response has no summary")
	}
	return &payload, nil
}
