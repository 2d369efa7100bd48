package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
)

type stubProvider struct {
	name    string
	verdict domainVerification.Verdict
	err     error
	calls   int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Verify(_ context.Context, _ Request) (domainVerification.Verdict, error) {
	p.calls++
	return p.verdict, p.err
}

func (p *stubProvider) GenerateTitle(_ context.Context, _ string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "Stub Headline", nil
}

func (p *stubProvider) RankResults(_ context.Context, _ string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return results, nil
}

func okProvider(name string) *stubProvider {
	return &stubProvider{
		name: name,
		verdict: domainVerification.Verdict{
			Veracity:   domainVerification.VeracityTrue,
			Confidence: 90,
			Sources:    []domainVerification.Source{},
		},
	}
}

func failingProvider(name string, err error) *stubProvider {
	return &stubProvider{name: name, err: err}
}

func TestChainFirstProviderWins(t *testing.T) {
	first := okProvider("openai")
	second := okProvider("gemini")
	chain := NewChain([]Provider{first, second})

	verdict, err := chain.Verify(context.Background(), Request{Claim: "claim"})
	require.NoError(t, err)
	assert.Equal(t, "openai", verdict.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later providers are not consulted on success")
}

func TestChainFallsBackInOrder(t *testing.T) {
	first := failingProvider("openai", &NetworkError{Provider: "openai", Op: "verify", Err: errors.New("timeout")})
	second := failingProvider("gemini", &ProviderError{Provider: "gemini", Reason: "quota exceeded"})
	third := okProvider("openrouter")
	chain := NewChain([]Provider{first, second, third})

	verdict, err := chain.Verify(context.Background(), Request{Claim: "claim"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", verdict.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChainExhaustionAggregatesLastError(t *testing.T) {
	lastErr := &ProviderError{Provider: "gemini", Reason: "invalid api key"}
	chain := NewChain([]Provider{
		failingProvider("openai", &NetworkError{Provider: "openai", Op: "verify", Err: errors.New("connection reset")}),
		failingProvider("gemini", lastErr),
	})

	_, err := chain.Verify(context.Background(), Request{Claim: "claim"})
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, 2, chainErr.Attempts)
	assert.Equal(t, "gemini", chainErr.LastProvider)
	assert.Contains(t, chainErr.Error(), "invalid api key", "message embeds the last provider's error")
	assert.ErrorIs(t, err, lastErr)
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain(nil)

	_, err := chain.Verify(context.Background(), Request{Claim: "claim"})
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, 0, chainErr.Attempts)
}

func TestChainCallWrapperWrapsEachProvider(t *testing.T) {
	var wrapped []string
	wrapper := func(ctx context.Context, provider string, call func(ctx context.Context) error) error {
		wrapped = append(wrapped, provider)
		return call(ctx)
	}

	chain := NewChain([]Provider{
		failingProvider("openai", errors.New("boom")),
		okProvider("gemini"),
	}, WithCallWrapper(wrapper))

	_, err := chain.Verify(context.Background(), Request{Claim: "claim"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gemini"}, wrapped)
}

func TestChainWrapperErrorTriggersFallback(t *testing.T) {
	// A wrapper that gives up on the first provider entirely, as the retry
	// executor does after exhausting its budget.
	wrapper := func(ctx context.Context, provider string, call func(ctx context.Context) error) error {
		if provider == "openai" {
			return &NetworkError{Provider: provider, Op: "verify", Err: errors.New("retries exhausted")}
		}
		return call(ctx)
	}

	second := okProvider("gemini")
	chain := NewChain([]Provider{okProvider("openai"), second}, WithCallWrapper(wrapper))

	verdict, err := chain.Verify(context.Background(), Request{Claim: "claim"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", verdict.Provider)
}

func TestChainGenerateTitle(t *testing.T) {
	chain := NewChain([]Provider{
		failingProvider("openai", errors.New("boom")),
		okProvider("gemini"),
	})

	title, err := chain.GenerateTitle(context.Background(), "some claim")
	require.NoError(t, err)
	assert.Equal(t, "Stub Headline", title)
}

func TestChainProviders(t *testing.T) {
	chain := NewChain([]Provider{okProvider("openai"), okProvider("gemini")})
	assert.Equal(t, []string{"openai", "gemini"}, chain.Providers())
}

func TestResolveAlias(t *testing.T) {
	assert.Equal(t, "openai", ResolveAlias("gpt4"))
	assert.Equal(t, "openai", ResolveAlias("gpt4o"))
	assert.Equal(t, "gemini", ResolveAlias("gemini-pro"))
	assert.Equal(t, "openrouter", ResolveAlias("mixtral"))
	assert.Equal(t, "openai", ResolveAlias("openai"), "canonical names pass through")
	assert.Equal(t, "custom", ResolveAlias("custom"))
}
