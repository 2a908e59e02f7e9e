package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	desc  ProviderDescriptor
	out   string
	err   error
	calls int
}

func (s *stubProvider) Descriptor() ProviderDescriptor { return s.desc }

func (s *stubProvider) Call(ctx context.Context, req string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out + req, nil
}

func newStub(priority int, name, out string, err error) *stubProvider {
	return &stubProvider{desc: ProviderDescriptor{Priority: priority, Name: name, Capability: "write"}, out: out, err: err}
}

func TestCascade_FallsThroughToSecond(t *testing.T) {
	p0 := newStub(0, "primary", "", errors.New("primary down"))
	p1 := newStub(1, "secondary", "from-secondary:", nil)
	p2 := newStub(2, "tertiary", "from-tertiary:", nil)

	got, desc, err := Cascade(context.Background(), []Provider[string, string]{p0, p1, p2}, "x", CascadeOptions[string]{})

	require.NoError(t, err)
	assert.Equal(t, "from-secondary:x", got)
	assert.Equal(t, "secondary", desc.Name)
	assert.Equal(t, 1, p0.calls)
	assert.Equal(t, 1, p1.calls)
	assert.Equal(t, 0, p2.calls)
}

func TestCascade_RespectsPriorityNotSliceOrder(t *testing.T) {
	late := newStub(5, "late", "late:", nil)
	early := newStub(1, "early", "early:", nil)

	got, _, err := Cascade(context.Background(), []Provider[string, string]{late, early}, "x", CascadeOptions[string]{})
	require.NoError(t, err)
	assert.Equal(t, "early:x", got)
	assert.Equal(t, 0, late.calls)
}

func TestCascade_ShortResponseAdvances(t *testing.T) {
	short := newStub(0, "short", "", nil)
	long := newStub(1, "long", strings.Repeat("a", 20), nil)
	var skipped []string

	got, desc, err := Cascade(context.Background(), []Provider[string, string]{short, long}, "", CascadeOptions[string]{
		Accept:    MinLength(10, func(s string) string { return s }),
		OnFailure: func(d ProviderDescriptor, err error) { skipped = append(skipped, d.Name) },
	})

	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.Equal(t, "long", desc.Name)
	assert.Equal(t, []string{"short"}, skipped)
}

func TestCascade_ExhaustedNamesLastFailure(t *testing.T) {
	first := errors.New("first failure")
	last := errors.New("last failure")
	p0 := newStub(0, "a", "", first)
	p1 := newStub(1, "b", "", last)

	_, _, err := Cascade(context.Background(), []Provider[string, string]{p0, p1}, "x", CascadeOptions[string]{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "last failure")
	var cerr *CascadeError
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Failures, 2)
	assert.Equal(t, last, cerr.Last())
}

func TestCascade_NoStickyFailureMemory(t *testing.T) {
	p0 := newStub(0, "a", "", errors.New("down"))
	p1 := newStub(1, "b", "ok:", nil)
	providers := []Provider[string, string]{p0, p1}

	for i := 0; i < 3; i++ {
		_, _, err := Cascade(context.Background(), providers, "x", CascadeOptions[string]{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p0.calls, "every call starts at the first provider")
}

func TestCascade_Empty(t *testing.T) {
	_, _, err := Cascade(context.Background(), nil, "x", CascadeOptions[string]{})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestCascade_CallTimeout(t *testing.T) {
	hung := ProviderFunc[string, string]{
		Desc: ProviderDescriptor{Priority: 0, Name: "hung"},
		Fn: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	ok := ProviderFunc[string, string]{
		Desc: ProviderDescriptor{Priority: 1, Name: "ok"},
		Fn:   func(context.Context, string) (string, error) { return "done", nil },
	}

	got, desc, err := Cascade(context.Background(), []Provider[string, string]{hung, ok}, "x", CascadeOptions[string]{CallTimeout: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, "ok", desc.Name)
}
