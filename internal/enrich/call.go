package enrich

import (
	"fmt"

	"github.com/lorekeep/chronicle-api/internal/config"
)

// CallResolver maps enrichment kinds to their resolved call configuration.
// The scheduler consults it at dispatch time so a task always carries the
// latest configuration, not whatever was current at enqueue.
type CallResolver struct {
	byKind map[Kind]CallConfig
}

// NewCallResolver builds a resolver from the LLM and scheduler settings.
// Kinds listed in inContextKinds bypass the worker pool. Image results do not
// propagate through the reconciliation bridge; their bytes are kept on the
// task record for a separate storage path.
func NewCallResolver(llm config.LLMConfig, inContextKinds []string) *CallResolver {
	inContext := make(map[Kind]bool, len(inContextKinds))
	for _, k := range inContextKinds {
		inContext[Kind(k)] = true
	}

	return &CallResolver{
		byKind: map[Kind]CallConfig{
			KindText: {
				Model:     llm.TextModel,
				InContext: inContext[KindText],
				Propagate: true,
			},
			KindNarrative: {
				Model:     llm.TextModel,
				InContext: inContext[KindNarrative],
				Propagate: true,
			},
			KindImage: {
				Model:     llm.ImageModel,
				InContext: inContext[KindImage],
				Propagate: false,
			},
		},
	}
}

// Resolve returns the call configuration for the given kind.
func (r *CallResolver) Resolve(kind Kind) (CallConfig, error) {
	call, ok := r.byKind[kind]
	if !ok {
		return CallConfig{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return call, nil
}
