package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type event struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

func TestTypedMessageHandler(t *testing.T) {
	var processed []string
	h := &TypedMessageHandler[event]{
		Validate: func(e *event) bool { return e.ID != "" },
		Process: func(_ context.Context, e *event) error {
			if e.Kind == "broken" {
				return errors.New("downstream unavailable")
			}
			processed = append(processed, e.ID)
			return nil
		},
		AlwaysMark: true,
		Logger:     zap.NewNop(),
	}
	ctx := context.Background()

	mark, err := h.HandleMessage(ctx, []byte(`{"id":"a","kind":"ok"}`))
	require.NoError(t, err)
	assert.True(t, mark)

	mark, err = h.HandleMessage(ctx, []byte(`not json`))
	require.NoError(t, err)
	assert.True(t, mark, "undecodable messages are skipped")

	mark, err = h.HandleMessage(ctx, []byte(`{"kind":"ok"}`))
	require.NoError(t, err)
	assert.True(t, mark, "invalid messages are skipped")

	mark, err = h.HandleMessage(ctx, []byte(`{"id":"b","kind":"broken"}`))
	assert.Error(t, err)
	assert.False(t, mark, "processing failures are redelivered")

	assert.Equal(t, []string{"a"}, processed)
}

func TestTypedMessageHandler_NoAlwaysMark(t *testing.T) {
	h := &TypedMessageHandler[event]{
		Validate: func(e *event) bool { return e.ID != "" },
		Process:  func(context.Context, *event) error { return nil },
	}
	mark, err := h.HandleMessage(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, mark)
}

func TestProducer_PublishJSON(t *testing.T) {
	mock := mocks.NewAsyncProducer(t, nil)
	mock.ExpectInputWithCheckerFunctionAndSucceed(func(value []byte) error {
		var e event
		if err := json.Unmarshal(value, &e); err != nil {
			return err
		}
		if e.ID != "job-1" {
			return errors.New("unexpected id " + e.ID)
		}
		return nil
	})

	p := NewProducerFromAsync(mock, "usage", zap.NewNop())
	require.NoError(t, p.PublishJSON(context.Background(), "owner", event{ID: "job-1", Kind: "article_generated"}))
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.PublishJSON(context.Background(), "owner", event{ID: "late"}), ErrProducerClosed)
}

func TestProducer_FailedDeliveryIsOnlyLogged(t *testing.T) {
	mock := mocks.NewAsyncProducer(t, nil)
	mock.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromAsync(mock, "usage", zap.NewNop())
	require.NoError(t, p.PublishJSON(context.Background(), "owner", event{ID: "x"}))
	assert.NoError(t, p.Close())
}
