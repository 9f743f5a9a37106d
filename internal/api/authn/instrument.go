package authn

import (
	"context"

	"github.com/aussiebroadwan/docsauth/pkg/httpx"
	"github.com/aussiebroadwan/docsauth/pkg/metricsx"
)

type instrumented struct {
	next     httpx.TokenVerifier
	strategy string
	metrics  *metricsx.Metrics
}

// Instrument counts the outcome of every verification by v.
func Instrument(v httpx.TokenVerifier, strategy string, m *metricsx.Metrics) httpx.TokenVerifier {
	if m == nil {
		return v
	}
	return &instrumented{next: v, strategy: strategy, metrics: m}
}

func (i *instrumented) VerifyToken(ctx context.Context, token string) (*httpx.Principal, error) {
	p, err := i.next.VerifyToken(ctx, token)
	i.metrics.BearerChecked(i.strategy, err == nil)
	return p, err
}

func (i *instrumented) Ready(ctx context.Context) error {
	if r, ok := i.next.(Readiness); ok {
		return r.Ready(ctx)
	}
	return nil
}
