package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	"github.com/truthlens/truthlens/pkg/cachestore"
	"github.com/truthlens/truthlens/pkg/ratelimit"
)

type fakeRanker struct {
	err   error
	calls int
}

// RankResults reverses the input so reordering is observable.
func (r *fakeRanker) RankResults(_ context.Context, _ string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	reversed := make([]domainSearch.Result, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		reversed = append(reversed, results[i])
	}
	return reversed, nil
}

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="https://example.com/first">First headline</a>
  <div class="result__snippet">first snippet</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/second">Second headline</a>
  <div class="result__snippet">second snippet</div>
</div>
</body></html>`

func newTestSearchService(t *testing.T, ranker ResultRanker) *searchService {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	}))
	t.Cleanup(server.Close)

	backend := cachestore.NewMemoryBackend()
	return &searchService{
		cache:      cachestore.New(backend, cachestore.Policy{Namespace: "search", TTL: time.Hour, MaxSize: 50}),
		limiter:    ratelimit.New(ratelimit.Config{MaxRequests: 30, Window: time.Minute}),
		ranker:     ranker,
		httpClient: server.Client(),
		endpoint:   server.URL,
		maxResults: 8,
	}
}

func TestSearchRanksResultsWhenRankerConfigured(t *testing.T) {
	ranker := &fakeRanker{}
	service := newTestSearchService(t, ranker)

	results, err := service.Search(context.Background(), "some claim")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, ranker.calls)
	assert.Equal(t, "Second headline", results[0].Title, "ranked order is returned, not fetch order")
	assert.Equal(t, "First headline", results[1].Title)
}

func TestSearchRankerFailureKeepsOriginalOrder(t *testing.T) {
	ranker := &fakeRanker{err: errors.New("providers down")}
	service := newTestSearchService(t, ranker)

	results, err := service.Search(context.Background(), "some claim")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "First headline", results[0].Title)
	assert.Equal(t, "Second headline", results[1].Title)
}

func TestSearchWithoutRanker(t *testing.T) {
	service := newTestSearchService(t, nil)

	results, err := service.Search(context.Background(), "some claim")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "First headline", results[0].Title)
}

func TestSearchCachesRankedResults(t *testing.T) {
	ranker := &fakeRanker{}
	service := newTestSearchService(t, ranker)
	ctx := context.Background()

	first, err := service.Search(ctx, "some claim")
	require.NoError(t, err)
	second, err := service.Search(ctx, "some claim")
	require.NoError(t, err)

	assert.Equal(t, 1, ranker.calls, "cache hits are not re-ranked")
	assert.Equal(t, first, second)
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t,
		"https://apnews.com/article/foo",
		resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fapnews.com%2Farticle%2Ffoo&rut=abc"),
	)
	assert.Equal(t, "https://example.com/a", resolveRedirect("https://example.com/a"))
	assert.Empty(t, resolveRedirect("/relative/link"))
	assert.Empty(t, resolveRedirect("javascript:alert(1)"))
	assert.Empty(t, resolveRedirect(""))
}

func TestHostnameOf(t *testing.T) {
	assert.Equal(t, "reuters.com", hostnameOf("https://www.reuters.com/world/article"))
	assert.Equal(t, "bbc.co.uk", hostnameOf("https://bbc.co.uk/news"))
}
