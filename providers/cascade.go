package providers

import (
	"context"

	"contentpilot/resilience"
	"contentpilot/types"
)

const (
	CapabilityResearch = "research"
	CapabilityWriter   = "writer"
)

// Researcher gathers background material on a topic
type Researcher interface {
	Research(ctx context.Context, topic string, hints []string) (*types.ResearchPayload, error)
}

// Writer drafts an article
type Writer interface {
	Write(ctx context.Context, req types.WriteRequest) (*types.Draft, error)
}

// ResearchProvider places a Researcher in a research cascade
func ResearchProvider(name string, priority int, r Researcher) resilience.Provider[types.ResearchRequest, *types.ResearchPayload] {
	return resilience.ProviderFunc[types.ResearchRequest, *types.ResearchPayload]{
		Desc: resilience.ProviderDescriptor{Priority: priority, Name: name, Capability: CapabilityResearch},
		Fn: func(ctx context.Context, req types.ResearchRequest) (*types.ResearchPayload, error) {
			return r.Research(ctx, req.Topic, req.Keywords)
		},
	}
}

// WriterProvider places a Writer in a writer cascade
func WriterProvider(name string, priority int, w Writer) resilience.Provider[types.WriteRequest, *types.Draft] {
	return resilience.ProviderFunc[types.WriteRequest, *types.Draft]{
		Desc: resilience.ProviderDescriptor{Priority: priority, Name: name, Capability: CapabilityWriter},
		Fn:   w.Write,
	}
}
