package verifier

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
)

// CallWrapper composes policy (typically the retry executor) around each
// individual provider call. The chain itself never retries: a provider
// that keeps failing is the wrapper's problem, moving on to the next
// provider is the chain's.
type CallWrapper func(ctx context.Context, provider string, call func(ctx context.Context) error) error

// Chain tries an ordered list of interchangeable providers until one
// succeeds. Order is fastest/cheapest first with the most capable model
// last as the quality fallback.
type Chain struct {
	providers []Provider
	wrap      CallWrapper
}

// ChainOption customizes a Chain.
type ChainOption func(*Chain)

// WithCallWrapper installs the per-call wrapper.
func WithCallWrapper(wrap CallWrapper) ChainOption {
	return func(c *Chain) {
		c.wrap = wrap
	}
}

// NewChain builds a fallback chain over providers, in order.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	chain := &Chain{
		providers: providers,
		wrap: func(ctx context.Context, _ string, call func(ctx context.Context) error) error {
			return call(ctx)
		},
	}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// Providers returns the configured provider names, in fallback order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Verify asks each provider in turn and returns the first verdict,
// tagged with the provider that produced it.
func (c *Chain) Verify(ctx context.Context, req Request) (domainVerification.Verdict, error) {
	var verdict domainVerification.Verdict
	err := c.attempt(ctx, "verify", func(ctx context.Context, p Provider) error {
		result, err := p.Verify(ctx, req)
		if err != nil {
			return err
		}
		result.Provider = p.Name()
		verdict = result
		return nil
	})
	return verdict, err
}

// GenerateTitle produces a short headline for a verified claim.
func (c *Chain) GenerateTitle(ctx context.Context, claim string) (string, error) {
	var title string
	err := c.attempt(ctx, "generate title", func(ctx context.Context, p Provider) error {
		result, err := p.GenerateTitle(ctx, claim)
		if err != nil {
			return err
		}
		title = result
		return nil
	})
	return title, err
}

// RankResults reorders search results by relevance to the query.
func (c *Chain) RankResults(ctx context.Context, query string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	var ranked []domainSearch.Result
	err := c.attempt(ctx, "rank results", func(ctx context.Context, p Provider) error {
		result, err := p.RankResults(ctx, query, results)
		if err != nil {
			return err
		}
		ranked = result
		return nil
	})
	return ranked, err
}

func (c *Chain) attempt(ctx context.Context, op string, call func(ctx context.Context, p Provider) error) error {
	if len(c.providers) == 0 {
		return &ChainError{Op: op, Attempts: 0, LastProvider: "none", LastErr: errors.New("no providers configured")}
	}

	var lastErr error
	var lastProvider string
	for _, provider := range c.providers {
		err := c.wrap(ctx, provider.Name(), func(ctx context.Context) error {
			return call(ctx, provider)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		lastProvider = provider.Name()
		logrus.WithError(err).WithFields(logrus.Fields{
			"provider": provider.Name(),
			"op":       op,
		}).Warn("[CHAIN] provider failed, falling back")
	}
	return &ChainError{
		Op:           op,
		Attempts:     len(c.providers),
		LastProvider: lastProvider,
		LastErr:      lastErr,
	}
}
