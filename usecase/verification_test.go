package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainHistory "github.com/truthlens/truthlens/domains/history"
	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
	"github.com/truthlens/truthlens/pkg/cachestore"
	pkgError "github.com/truthlens/truthlens/pkg/error"
	"github.com/truthlens/truthlens/pkg/ratelimit"
	"github.com/truthlens/truthlens/verifier"
)

type fakeProvider struct {
	name  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Verify(ctx context.Context, _ verifier.Request) (domainVerification.Verdict, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return domainVerification.Verdict{}, ctx.Err()
		}
	}
	if p.err != nil {
		return domainVerification.Verdict{}, p.err
	}
	return domainVerification.Verdict{
		Veracity:    domainVerification.VeracityTrue,
		Confidence:  85,
		Explanation: "checks out",
		Sources:     []domainVerification.Source{{Name: "Reuters", URL: "https://reuters.com/a"}},
	}, nil
}

func (p *fakeProvider) GenerateTitle(context.Context, string) (string, error) {
	return "Claim Headline", nil
}

func (p *fakeProvider) RankResults(_ context.Context, _ string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	return results, nil
}

type fakeSearch struct {
	results []domainSearch.Result
	err     error
}

func (s *fakeSearch) Search(context.Context, string) ([]domainSearch.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domainHistory.Record
	saved   chan struct{}
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{saved: make(chan struct{}, 16)}
}

func (h *fakeHistory) SaveAsync(record domainHistory.Record) {
	h.mu.Lock()
	h.records = append(h.records, record)
	h.mu.Unlock()
	h.saved <- struct{}{}
}

func (h *fakeHistory) Save(_ context.Context, record domainHistory.Record) error {
	h.SaveAsync(record)
	return nil
}

func (h *fakeHistory) List(context.Context, int) ([]domainHistory.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domainHistory.Record{}, h.records...), nil
}

func (h *fakeHistory) GetBySlug(context.Context, string) (domainHistory.Record, error) {
	return domainHistory.Record{}, pkgError.NotFoundError("not found")
}

func (h *fakeHistory) Delete(context.Context, string) error { return nil }

type testEnv struct {
	service  domainVerification.IVerificationUsecase
	provider *fakeProvider
	backup   *fakeProvider
	history  *fakeHistory
	limiter  *ratelimit.Limiter
}

func newTestEnv(t *testing.T, primary, backup *fakeProvider) *testEnv {
	t.Helper()

	backend := cachestore.NewMemoryBackend()
	history := newFakeHistory()
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 10, Window: time.Minute, Message: "too many checks"})

	providers := []verifier.Provider{}
	if primary != nil {
		providers = append(providers, primary)
	}
	if backup != nil {
		providers = append(providers, backup)
	}

	service := NewVerificationService(VerificationDeps{
		Chain:   verifier.NewChain(providers),
		Search:  &fakeSearch{results: []domainSearch.Result{{Title: "Article", URL: "https://example.com", Snippet: "context"}}},
		History: history,
		TextCache: cachestore.New(backend, cachestore.Policy{
			Namespace: "text", TTL: time.Hour, MaxSize: 100,
		}),
		MediaCache: cachestore.New(backend, cachestore.Policy{
			Namespace: "media", TTL: time.Hour, MaxSize: 50,
		}),
		Limiter: limiter,
	})

	return &testEnv{service: service, provider: primary, backup: backup, history: history, limiter: limiter}
}

func TestVerifyEmptyClaimIsFatal(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)

	for _, claim := range []string{"", "   ", "\n\t"} {
		_, err := env.service.Verify(context.Background(), domainVerification.VerifyRequest{Claim: claim})
		var validationErr pkgError.ValidationError
		assert.True(t, errors.As(err, &validationErr), "claim %q must be rejected", claim)
	}
	assert.Equal(t, int32(0), env.provider.calls.Load())
}

func TestVerifyHappyPath(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)

	verdict, err := env.service.Verify(context.Background(), domainVerification.VerifyRequest{
		Claim: "the eiffel tower is in paris",
	})
	require.NoError(t, err)
	assert.Equal(t, domainVerification.VeracityTrue, verdict.Veracity)
	assert.Equal(t, 85, verdict.Confidence)
	assert.Equal(t, "openai", verdict.Provider)
	assert.False(t, verdict.Cached)
	assert.Equal(t, domainVerification.StatusVerified, env.service.Status())
}

func TestVerifySecondCallHitsCache(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)
	ctx := context.Background()
	request := domainVerification.VerifyRequest{Claim: "the eiffel tower is in paris"}

	_, err := env.service.Verify(ctx, request)
	require.NoError(t, err)

	verdict, err := env.service.Verify(ctx, request)
	require.NoError(t, err)
	assert.True(t, verdict.Cached)
	assert.Equal(t, int32(1), env.provider.calls.Load(), "cached claims do not reach providers")
}

func TestVerifyFallsBackToSecondProvider(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &verifier.NetworkError{Provider: "openai", Op: "verify", Err: errors.New("timeout")}}
	backup := &fakeProvider{name: "gemini"}
	env := newTestEnv(t, primary, backup)

	verdict, err := env.service.Verify(context.Background(), domainVerification.VerifyRequest{Claim: "some claim"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", verdict.Provider)
}

func TestVerifyTotalFailureDegrades(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &verifier.ProviderError{Provider: "openai", Reason: "quota exceeded"}}
	backup := &fakeProvider{name: "gemini", err: &verifier.NetworkError{Provider: "gemini", Op: "verify", Err: errors.New("connection refused")}}
	env := newTestEnv(t, primary, backup)

	verdict, err := env.service.Verify(context.Background(), domainVerification.VerifyRequest{Claim: "some claim"})
	require.NoError(t, err, "total provider failure must not surface as an error")
	assert.Equal(t, domainVerification.VeracityUnverified, verdict.Veracity)
	assert.Equal(t, 0, verdict.Confidence)
	assert.NotNil(t, verdict.Sources)
	assert.Empty(t, verdict.Sources)
	assert.NotEmpty(t, verdict.Explanation)
	assert.Equal(t, domainVerification.StatusVerified, env.service.Status(),
		"a degraded verdict is a resolved outcome, not an error state")
}

func TestVerifyDegradedVerdictIsNotCached(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &verifier.ProviderError{Provider: "openai", Reason: "quota exceeded"}}
	env := newTestEnv(t, primary, nil)
	ctx := context.Background()
	request := domainVerification.VerifyRequest{Claim: "some claim"}

	_, err := env.service.Verify(ctx, request)
	require.NoError(t, err)
	_, err = env.service.Verify(ctx, request)
	require.NoError(t, err)

	assert.Equal(t, int32(2), env.provider.calls.Load(), "degraded outcomes must be retried, not served from cache")
}

func TestVerifyRateLimited(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := env.service.Verify(ctx, domainVerification.VerifyRequest{Claim: "claim number " + string(rune('a'+i))})
		require.NoError(t, err)
	}

	_, err := env.service.Verify(ctx, domainVerification.VerifyRequest{Claim: "one claim too many"})
	var rateErr *ratelimit.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Greater(t, rateErr.Wait, time.Duration(0))
	assert.Equal(t, domainVerification.StatusError, env.service.Status())
}

func TestVerifyCachedHitsDoNotConsumeRateBudget(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)
	ctx := context.Background()
	request := domainVerification.VerifyRequest{Claim: "repeated claim"}

	_, err := env.service.Verify(ctx, request)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		verdict, err := env.service.Verify(ctx, request)
		require.NoError(t, err)
		assert.True(t, verdict.Cached)
	}
	assert.Equal(t, 1, env.limiter.Status().Used)
}

func TestVerifyConcurrentIdenticalClaimsCoalesce(t *testing.T) {
	provider := &fakeProvider{name: "openai", delay: 50 * time.Millisecond}
	env := newTestEnv(t, provider, nil)

	const callers = 3
	verdicts := make([]domainVerification.Verdict, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdicts[i], errs[i] = env.service.Verify(context.Background(), domainVerification.VerifyRequest{
				Claim: "simultaneous claim",
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), provider.calls.Load(), "identical in-flight claims share one provider call")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, domainVerification.VeracityTrue, verdicts[i].Veracity)
	}
}

func TestVerifySearchFailureDoesNotBlockVerdict(t *testing.T) {
	backend := cachestore.NewMemoryBackend()
	provider := &fakeProvider{name: "openai"}
	service := NewVerificationService(VerificationDeps{
		Chain:     verifier.NewChain([]verifier.Provider{provider}),
		Search:    &fakeSearch{err: errors.New("search backend down")},
		History:   newFakeHistory(),
		TextCache: cachestore.New(backend, cachestore.Policy{Namespace: "text", TTL: time.Hour, MaxSize: 100}),
		Limiter:   ratelimit.New(ratelimit.Config{MaxRequests: 10, Window: time.Minute}),
	})

	verdict, err := service.Verify(context.Background(), domainVerification.VerifyRequest{Claim: "claim without context"})
	require.NoError(t, err)
	assert.Equal(t, domainVerification.VeracityTrue, verdict.Veracity)
}

func TestVerifyPersistsHistory(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)

	_, err := env.service.Verify(context.Background(), domainVerification.VerifyRequest{Claim: "claim to persist"})
	require.NoError(t, err)

	select {
	case <-env.history.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("history record was not saved")
	}

	records, err := env.history.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Claim Headline", records[0].Title)
	assert.Equal(t, "claim to persist", records[0].Claim)
	assert.Equal(t, "true", records[0].Veracity)
	assert.NotEmpty(t, records[0].Slug)
	assert.NotEmpty(t, records[0].ID)
}

func TestResetReturnsToIdle(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{name: "openai"}, nil)

	_, err := env.service.Verify(context.Background(), domainVerification.VerifyRequest{Claim: "claim"})
	require.NoError(t, err)
	require.Equal(t, domainVerification.StatusVerified, env.service.Status())

	env.service.Reset()
	assert.Equal(t, domainVerification.StatusIdle, env.service.Status())
}

func TestClassifyClaim(t *testing.T) {
	assert.Equal(t, domainVerification.ClaimURL, classifyClaim(domainVerification.VerifyRequest{Claim: "https://example.com/article"}))
	assert.Equal(t, domainVerification.ClaimText, classifyClaim(domainVerification.VerifyRequest{Claim: "https://example.com said the sky is green"}))
	assert.Equal(t, domainVerification.ClaimText, classifyClaim(domainVerification.VerifyRequest{Claim: "plain claim"}))
	assert.Equal(t, domainVerification.ClaimMedia, classifyClaim(domainVerification.VerifyRequest{
		Claim: "what is this",
		Media: &domainVerification.Media{Data: []byte{1}, MimeType: "image/png"},
	}))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "moon-landing-was-real", slugify("Moon Landing Was Real!"))
	assert.Equal(t, "claim", slugify("???"))
	assert.NotContains(t, slugify("A  very -- strange__ title"), "--")
}
