package resilience

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ProviderDescriptor identifies one interchangeable backend in a cascade.
// Lower Priority values are tried first.
type ProviderDescriptor struct {
	Priority   int
	Name       string
	Capability string
}

// Provider is a backend a cascade can call
type Provider[Req, Res any] interface {
	Descriptor() ProviderDescriptor
	Call(ctx context.Context, req Req) (Res, error)
}

// ProviderFunc adapts a function into a Provider
type ProviderFunc[Req, Res any] struct {
	Desc ProviderDescriptor
	Fn   func(ctx context.Context, req Req) (Res, error)
}

func (p ProviderFunc[Req, Res]) Descriptor() ProviderDescriptor { return p.Desc }

func (p ProviderFunc[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	return p.Fn(ctx, req)
}

// CascadeOptions tunes a single Cascade call
type CascadeOptions[Res any] struct {
	// Accept rejects responses that are technically successful but unusable.
	// Nil accepts every non-error response.
	Accept func(Res) bool
	// CallTimeout bounds each provider call. Zero means only ctx applies.
	CallTimeout time.Duration
	// OnFailure observes each skipped provider
	OnFailure func(desc ProviderDescriptor, err error)
}

// Cascade calls providers in priority order and returns the first acceptable
// result along with the descriptor of the provider that produced it. There is
// no memory between calls: every invocation starts again at the first
// provider.
func Cascade[Req, Res any](ctx context.Context, providers []Provider[Req, Res], req Req, opts CascadeOptions[Res]) (Res, ProviderDescriptor, error) {
	var zero Res
	if len(providers) == 0 {
		return zero, ProviderDescriptor{}, ErrNoProviders
	}

	ordered := append([]Provider[Req, Res](nil), providers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Descriptor().Priority < ordered[j].Descriptor().Priority
	})

	cerr := &CascadeError{Capability: ordered[0].Descriptor().Capability}
	for _, p := range ordered {
		if err := ctx.Err(); err != nil {
			cerr.Failures = append(cerr.Failures, ProviderFailure{Provider: p.Descriptor().Name, Err: err})
			return zero, ProviderDescriptor{}, cerr
		}

		desc := p.Descriptor()
		res, err := callWithTimeout(ctx, p, req, opts.CallTimeout)
		if err == nil && opts.Accept != nil && !opts.Accept(res) {
			err = fmt.Errorf("%s: %w", desc.Name, ErrUnacceptable)
		}
		if err == nil {
			return res, desc, nil
		}

		cerr.Failures = append(cerr.Failures, ProviderFailure{Provider: desc.Name, Err: err})
		if opts.OnFailure != nil {
			opts.OnFailure(desc, err)
		}
	}
	return zero, ProviderDescriptor{}, cerr
}

func callWithTimeout[Req, Res any](ctx context.Context, p Provider[Req, Res], req Req, timeout time.Duration) (Res, error) {
	if timeout <= 0 {
		return p.Call(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Call(callCtx, req)
}

// MinLength builds an Accept predicate requiring text(r) to be at least n bytes
func MinLength[Res any](n int, text func(Res) string) func(Res) bool {
	return func(r Res) bool {
		return len(text(r)) >= n
	}
}
