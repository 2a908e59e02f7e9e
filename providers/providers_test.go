package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/resilience"
	"contentpilot/shared/kafka"
	"contentpilot/types"
)

// chatServer answers every completion request with reply
func chatServer(t *testing.T, reply string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestChat(endpoint string) *ChatClient {
	return NewChatClient(ChatConfig{Endpoint: endpoint, APIKey: "test-key", Model: "gpt-test", Timeout: 5 * time.Second})
}

func TestChatClient_Complete(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, "  hello  ", &seen)

	reply, err := newTestChat(srv.URL).Complete(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	assert.Equal(t, "gpt-test", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.NotEmpty(t, seen.Messages[0].Content)
	assert.Equal(t, chatMessage{Role: "user", Content: "hi"}, seen.Messages[1])
}

func TestChatClient_Errors(t *testing.T) {
	t.Run("Misconfigured", func(t *testing.T) {
		_, err := NewChatClient(ChatConfig{Endpoint: "http://x"}).Complete(context.Background(), "", "hi")
		require.Error(t, err)
		assert.False(t, (*ChatClient)(nil).Configured())
	})

	t.Run("StatusError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestChat(srv.URL).Complete(context.Background(), "", "hi")
		var serr *StatusError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, http.StatusServiceUnavailable, serr.Code)
		assert.Equal(t, "overloaded", serr.Body)
		assert.True(t, serr.Retryable())
		assert.True(t, IsRetryable(err))
		assert.False(t, IsRetryable(fmt.Errorf("image generation: %w", &StatusError{Code: http.StatusBadRequest})))
		assert.False(t, IsRetryable(context.Canceled))
		assert.True(t, IsRetryable(errors.New("connection reset")))
	})

	t.Run("NoChoices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := newTestChat(srv.URL).Complete(context.Background(), "", "hi")
		require.Error(t, err)
	})
}

func TestHTTPClient_RateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 0.001)
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, nil, map[string]string{}, nil))

	// The single token is spent; the next call cannot get one before the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.PostJSON(ctx, srv.URL, nil, map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatResearcher(t *testing.T) {
	ctx := context.Background()

	t.Run("StructuredReply", func(t *testing.T) {
		var seen chatRequest
		srv := chatServer(t, "```json\n"+`{"summary":"Solar is booming.","key_points":["cheap"],"sources":["https://a"]}`+"\n```", &seen)

		payload, err := NewChatResearcher(newTestChat(srv.URL)).Research(ctx, "rooftop solar", []string{"costs"})
		require.NoError(t, err)
		assert.Equal(t, "Solar is booming.", payload.Summary)
		assert.Equal(t, []string{"cheap"}, payload.KeyPoints)
		assert.Equal(t, []string{"https://a"}, payload.Sources)
		assert.Contains(t, seen.Messages[1].Content, "Focus on: costs.")
	})

	t.Run("ProseReply", func(t *testing.T) {
		srv := chatServer(t, "Solar adoption keeps growing.", nil)
		payload, err := NewChatResearcher(newTestChat(srv.URL)).Research(ctx, "rooftop solar", nil)
		require.NoError(t, err)
		assert.Equal(t, "Solar adoption keeps growing.", payload.Summary)
	})

	t.Run("EmptySummary", func(t *testing.T) {
		srv := chatServer(t, `{"summary":""}`, nil)
		_, err := NewChatResearcher(newTestChat(srv.URL)).Research(ctx, "rooftop solar", nil)
		require.Error(t, err)
	})

	t.Run("EmptyTopic", func(t *testing.T) {
		_, err := NewChatResearcher(newTestChat("http://unused")).Research(ctx, " ", nil)
		require.Error(t, err)
	})
}

func TestChatWriter(t *testing.T) {
	srv := chatServer(t, `{"title":"Solar 2025","content":"<h2>Intro</h2><p>Panels everywhere.</p>"}`, nil)

	draft, err := NewChatWriter(newTestChat(srv.URL)).Write(context.Background(), types.WriteRequest{Title: "Rooftop solar"})
	require.NoError(t, err)
	assert.Equal(t, "Solar 2025", draft.Title)
	assert.Equal(t, []string{"Intro"}, draft.Headings)
	assert.Equal(t, 3, draft.WordCount)
}

func TestProviderAdapters(t *testing.T) {
	srv := chatServer(t, `{"summary":"ok"}`, nil)
	chat := newTestChat(srv.URL)

	rp := ResearchProvider("chat-research", 2, NewChatResearcher(chat))
	assert.Equal(t, resilience.ProviderDescriptor{Priority: 2, Name: "chat-research", Capability: CapabilityResearch}, rp.Descriptor())
	payload, err := rp.Call(context.Background(), types.ResearchRequest{Topic: "solar"})
	require.NoError(t, err)
	assert.Equal(t, "ok", payload.Summary)

	wp := WriterProvider("chat-writer", 1, NewChatWriter(chat))
	assert.Equal(t, CapabilityWriter, wp.Descriptor().Capability)
}

func TestImageClient_Generate(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	var seen imageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer srv.Close()

	c := NewImageClient(ImageConfig{Endpoint: srv.URL, APIKey: "k", Model: "img"})
	data, err := c.Generate(context.Background(), "A rooftop", "editorial")
	require.NoError(t, err)
	assert.Equal(t, png, data)
	assert.Equal(t, "A rooftop. Style: editorial.", seen.Prompt)
	assert.Equal(t, "1024x1024", seen.Size)
	assert.Equal(t, "b64_json", seen.ResponseFormat)

	_, err = NewImageClient(ImageConfig{}).Generate(context.Background(), "x", "")
	require.Error(t, err)
}

func TestWordPress_Publish(t *testing.T) {
	var seen wpPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "editor", user)
		assert.Equal(t, "app pass", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"link":"https://blog.example.com/solar"}`))
	}))
	defer srv.Close()

	wp := NewWordPress(WordPressConfig{BaseURL: srv.URL + "/", Username: "editor", AppPassword: "app pass"})
	require.True(t, wp.Configured())

	res, err := wp.Publish(context.Background(), types.PublishRequest{
		Title:            "Solar",
		Content:          "<p>Body</p>",
		Status:           "pending",
		FeaturedImageURL: "https://cdn.example.com/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, &types.PublishResult{PostID: "42", URL: "https://blog.example.com/solar"}, res)
	assert.Equal(t, "draft", seen.Status)
	assert.Contains(t, seen.Content, `<img src="https://cdn.example.com/a.png" alt="Solar"/>`)
	assert.Contains(t, seen.Content, "<p>Body</p>")

	_, err = NewWordPress(WordPressConfig{BaseURL: srv.URL}).Publish(context.Background(), types.PublishRequest{})
	require.Error(t, err)
}

func TestWordPress_NoPostID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	wp := NewWordPress(WordPressConfig{BaseURL: srv.URL, Username: "u", AppPassword: "p"})
	_, err := wp.Publish(context.Background(), types.PublishRequest{Title: "x", Status: "publish"})
	require.Error(t, err)
}

func TestTelegram_Send(t *testing.T) {
	var chatID, text, path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		path.Store(r.URL.Path)
		chatID.Store(r.PostForm.Get("chat_id"))
		text.Store(r.PostForm.Get("text"))
		if r.PostForm.Get("chat_id") == "blocked" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	tg := NewTelegram("bot-token")
	tg.baseURL = srv.URL

	require.NoError(t, tg.Send(context.Background(), "12345", "Article ready"))
	assert.Equal(t, "/botbot-token/sendMessage", path.Load())
	assert.Equal(t, "12345", chatID.Load())
	assert.Equal(t, "Article ready", text.Load())

	require.Error(t, tg.Send(context.Background(), "blocked", "x"))
	require.Error(t, NewTelegram("").Send(context.Background(), "12345", "x"))
}

func TestKafkaUsageMeter_Record(t *testing.T) {
	mock := mocks.NewAsyncProducer(t, nil)
	mock.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev types.UsageEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.JobID != "job-1" || ev.WordCount != 900 {
			return errors.New("unexpected event")
		}
		return nil
	})

	producer := kafka.NewProducerFromAsync(mock, "usage", nil)
	meter := NewKafkaUsageMeter(producer)
	require.NoError(t, meter.Record(context.Background(), types.UsageEvent{
		JobID: "job-1", OwnerID: "owner", Kind: "article_generated", WordCount: 900,
	}))
	require.NoError(t, producer.Close())
}
