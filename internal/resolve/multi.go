package resolve

import (
	"context"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

// Multi chains resolvers: the first confident (non-nil) result wins.
// Provider errors advance the chain rather than failing the lookup.
type Multi struct {
	resolvers []Resolver
}

// NewMulti creates a chained resolver.
func NewMulti(resolvers ...Resolver) *Multi {
	return &Multi{resolvers: resolvers}
}

// Name joins the chained resolver names for provenance, e.g.
// "crossref+openalex".
func (m *Multi) Name() string {
	names := make([]string, len(m.resolvers))
	for i, r := range m.resolvers {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

// Resolve tries each resolver in order.
func (m *Multi) Resolve(ctx context.Context, ref model.LinkedSourceRef, opts Options) (*model.SourceDetails, error) {
	for _, r := range m.resolvers {
		details, err := r.Resolve(ctx, ref, opts)
		if err != nil {
			continue
		}
		if details != nil {
			return details, nil
		}
	}
	return nil, nil
}
