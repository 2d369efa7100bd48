package usecase

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	"github.com/truthlens/truthlens/pkg/cachestore"
	"github.com/truthlens/truthlens/pkg/ratelimit"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

// ResultRanker reorders search results by relevance to the query.
// *verifier.Chain satisfies it; a nil ranker disables ranking.
type ResultRanker interface {
	RankResults(ctx context.Context, query string, results []domainSearch.Result) ([]domainSearch.Result, error)
}

type searchService struct {
	cache      *cachestore.Cache
	limiter    *ratelimit.Limiter
	ranker     ResultRanker
	httpClient *http.Client
	endpoint   string
	maxResults int
}

// NewSearchService builds the web context provider. Search is strictly
// best-effort: every failure path returns an empty result set so the
// verification flow can continue without web context.
func NewSearchService(cache *cachestore.Cache, limiter *ratelimit.Limiter, ranker ResultRanker, timeout time.Duration, maxResults int) domainSearch.ISearchUsecase {
	if maxResults <= 0 {
		maxResults = 8
	}
	return &searchService{
		cache:      cache,
		limiter:    limiter,
		ranker:     ranker,
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   searchEndpoint,
		maxResults: maxResults,
	}
}

func (s *searchService) Search(ctx context.Context, query string) ([]domainSearch.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domainSearch.Result{}, nil
	}

	if results, ok := cachestore.GetAs[[]domainSearch.Result](ctx, s.cache, query); ok {
		logrus.WithField("query", query).Debug("[SEARCH] Cache hit")
		return results, nil
	}

	var results []domainSearch.Result
	err := s.limiter.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		results, fetchErr = s.fetch(ctx, query)
		return fetchErr
	})
	if err != nil {
		logrus.WithError(err).WithField("query", query).Warn("[SEARCH] Search degraded to empty results")
		return []domainSearch.Result{}, nil
	}

	results = s.rank(ctx, query, results)

	if len(results) > 0 {
		s.cache.Set(ctx, query, results)
	}
	return results, nil
}

// rank asks the provider chain to reorder results by relevance. Ranking
// is a nicety: any failure keeps the original order.
func (s *searchService) rank(ctx context.Context, query string, results []domainSearch.Result) []domainSearch.Result {
	if s.ranker == nil || len(results) < 2 {
		return results
	}
	ranked, err := s.ranker.RankResults(ctx, query, results)
	if err != nil {
		logrus.WithError(err).WithField("query", query).Warn("[SEARCH] Ranking failed, keeping original order")
		return results
	}
	return ranked
}

func (s *searchService) fetch(ctx context.Context, query string) ([]domainSearch.Result, error) {
	form := url.Values{"q": {query + " news fact check"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TruthLens/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	results := make([]domainSearch.Result, 0, s.maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		resolved := resolveRedirect(href)
		if title == "" || resolved == "" {
			return true
		}
		results = append(results, domainSearch.Result{
			Title:   title,
			URL:     resolved,
			Snippet: snippet,
			Source:  hostnameOf(resolved),
		})
		return len(results) < s.maxResults
	})

	logrus.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Debug("[SEARCH] Search completed")

	return results, nil
}

// resolveRedirect unwraps the uddg redirect parameter the result links
// carry and rejects anything that is not an absolute http(s) URL.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			href = decoded
			parsed, err = url.Parse(href)
			if err != nil {
				return ""
			}
		}
	}
	if !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ""
	}
	return href
}

func hostnameOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
