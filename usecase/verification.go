package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainHistory "github.com/truthlens/truthlens/domains/history"
	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
	"github.com/truthlens/truthlens/pkg/cachestore"
	"github.com/truthlens/truthlens/pkg/dedupe"
	pkgError "github.com/truthlens/truthlens/pkg/error"
	"github.com/truthlens/truthlens/pkg/media"
	"github.com/truthlens/truthlens/pkg/ratelimit"
	"github.com/truthlens/truthlens/validations"
	"github.com/truthlens/truthlens/verifier"
)

// VerificationDeps bundles everything the orchestrator composes.
type VerificationDeps struct {
	Chain      *verifier.Chain
	Search     domainSearch.ISearchUsecase
	History    domainHistory.IHistoryUsecase
	TextCache  *cachestore.Cache
	MediaCache *cachestore.Cache
	Limiter    *ratelimit.Limiter
	// MaxImageEdge bounds claim images before upload; zero disables resizing.
	MaxImageEdge int
}

type verificationService struct {
	deps  VerificationDeps
	dedup *dedupe.Deduplicator

	mu     sync.RWMutex
	status domainVerification.Status
}

// NewVerificationService wires the full verification pipeline: cache in
// front, deduplication of identical in-flight claims, sliding-window
// admission, web context gathering, then the provider fallback chain
// with per-provider retries.
func NewVerificationService(deps VerificationDeps) domainVerification.IVerificationUsecase {
	return &verificationService{
		deps:   deps,
		dedup:  dedupe.New(),
		status: domainVerification.StatusIdle,
	}
}

func (s *verificationService) Status() domainVerification.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Reset returns the service to idle so the UI can start a fresh check
// after an error state.
func (s *verificationService) Reset() {
	s.setStatus(domainVerification.StatusIdle)
}

func (s *verificationService) setStatus(status domainVerification.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Verify runs the full pipeline. Only an invalid request (empty claim)
// is a hard failure; everything else resolves to a renderable verdict,
// degrading to an unverified zero-confidence one when every provider is
// down.
func (s *verificationService) Verify(ctx context.Context, request domainVerification.VerifyRequest) (domainVerification.Verdict, error) {
	var zero domainVerification.Verdict

	if err := validations.ValidateVerifyRequest(ctx, request); err != nil {
		return zero, err
	}
	if request.Kind == "" {
		request.Kind = classifyClaim(request)
	}

	cache := s.cacheFor(request)
	cacheKey := s.cacheKeyFor(request)
	if verdict, ok := cachestore.GetAs[domainVerification.Verdict](ctx, cache, cacheKey); ok {
		logrus.WithField("kind", request.Kind).Info("[VERIFY] Cache hit, returning stored verdict")
		verdict.Cached = true
		s.setStatus(domainVerification.StatusVerified)
		return verdict, nil
	}

	value, err := s.dedup.Do(ctx, dedupe.Key(cacheKey), func(ctx context.Context) (any, error) {
		var verdict domainVerification.Verdict
		execErr := s.deps.Limiter.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			verdict, innerErr = s.run(ctx, request, cache, cacheKey)
			return innerErr
		})
		return verdict, execErr
	})
	if err != nil {
		s.setStatus(domainVerification.StatusError)
		return zero, err
	}

	verdict, ok := value.(domainVerification.Verdict)
	if !ok {
		s.setStatus(domainVerification.StatusError)
		return zero, pkgError.InternalServerError("unexpected deduplicated result type")
	}
	return verdict, nil
}

// run is the single-flight body: by the time it executes, cache missed
// and the rate limiter admitted the call.
func (s *verificationService) run(ctx context.Context, request domainVerification.VerifyRequest, cache *cachestore.Cache, cacheKey string) (domainVerification.Verdict, error) {
	start := time.Now()

	s.setStatus(domainVerification.StatusSearching)
	results, err := s.deps.Search.Search(ctx, request.Claim)
	if err != nil {
		// Contractually Search degrades internally, but guard anyway.
		logrus.WithError(err).Warn("[VERIFY] Search failed, continuing without web context")
		results = nil
	}

	verifyReq := verifier.Request{
		Claim:         request.Claim,
		Kind:          request.Kind,
		UserContext:   request.Context,
		SearchContext: results,
	}
	if request.Media != nil && len(request.Media.Data) > 0 {
		prepared, mimeType, err := media.PrepareImage(request.Media.Data, request.Media.MimeType, s.deps.MaxImageEdge)
		if err != nil {
			logrus.WithError(err).Warn("[VERIFY] Image preparation failed, sending original")
			prepared, mimeType = request.Media.Data, request.Media.MimeType
		}
		verifyReq.Media = &domainVerification.Media{
			Data:     prepared,
			MimeType: mimeType,
			FileName: request.Media.FileName,
		}
	}

	s.setStatus(domainVerification.StatusVerifying)
	verdict, err := s.deps.Chain.Verify(ctx, verifyReq)
	if err != nil {
		var rateErr *ratelimit.RateLimitError
		if errors.As(err, &rateErr) {
			s.setStatus(domainVerification.StatusError)
			return domainVerification.Verdict{}, err
		}
		// A degraded verdict is still a resolved outcome, so the exposed
		// state is verified; error is reserved for requests that produce
		// no renderable result at all.
		logrus.WithError(err).Error("[VERIFY] All providers failed, returning degraded verdict")
		s.setStatus(domainVerification.StatusVerified)
		return degradedVerdict(), nil
	}

	cache.Set(ctx, cacheKey, verdict)
	s.setStatus(domainVerification.StatusVerified)

	logrus.WithFields(logrus.Fields{
		"kind":       request.Kind,
		"provider":   verdict.Provider,
		"veracity":   verdict.Veracity,
		"confidence": verdict.Confidence,
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("[VERIFY] Verification completed")

	s.persistAsync(request, verdict)
	return verdict, nil
}

// persistAsync records the outcome for the history panel. A short title
// is asked from the chain; when that fails a truncated claim stands in.
func (s *verificationService) persistAsync(request domainVerification.VerifyRequest, verdict domainVerification.Verdict) {
	if s.deps.History == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		title, err := s.deps.Chain.GenerateTitle(ctx, request.Claim)
		if err != nil || strings.TrimSpace(title) == "" {
			title = truncateClaim(request.Claim, 80)
		}

		id := uuid.NewString()
		record := domainHistory.Record{
			ID:          id,
			Slug:        slugify(title) + "-" + id[:8],
			Title:       title,
			Claim:       request.Claim,
			Kind:        string(request.Kind),
			Veracity:    string(verdict.Veracity),
			Confidence:  verdict.Confidence,
			Explanation: verdict.Explanation,
			SourcesJSON: encodeSources(verdict.Sources),
			Provider:    verdict.Provider,
			CreatedAt:   time.Now().UTC(),
		}
		s.deps.History.SaveAsync(record)
	}()
}

func (s *verificationService) cacheFor(request domainVerification.VerifyRequest) *cachestore.Cache {
	if request.Kind == domainVerification.ClaimMedia && s.deps.MediaCache != nil {
		return s.deps.MediaCache
	}
	return s.deps.TextCache
}

// cacheKeyFor keys text claims by their content and media claims by the
// caption plus attachment size, a cheap stand-in for hashing the bytes.
func (s *verificationService) cacheKeyFor(request domainVerification.VerifyRequest) string {
	if request.Kind == domainVerification.ClaimMedia && request.Media != nil {
		return request.Claim + "|" + request.Media.MimeType + "|" + strconv.Itoa(len(request.Media.Data))
	}
	return request.Claim
}

// degradedVerdict is the total-failure fallback: the claim stays
// unverified with zero confidence instead of surfacing a raw error.
func degradedVerdict() domainVerification.Verdict {
	return domainVerification.Verdict{
		Veracity:    domainVerification.VeracityUnverified,
		Confidence:  0,
		Explanation: "Verification services are temporarily unavailable. The claim could not be checked; treat it with caution and try again later.",
		Sources:     []domainVerification.Source{},
	}
}

func classifyClaim(request domainVerification.VerifyRequest) domainVerification.ClaimKind {
	if request.Media != nil && len(request.Media.Data) > 0 {
		return domainVerification.ClaimMedia
	}
	trimmed := strings.TrimSpace(request.Claim)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		if !strings.ContainsAny(trimmed, " \t\n") {
			return domainVerification.ClaimURL
		}
	}
	return domainVerification.ClaimText
}

func truncateClaim(claim string, limit int) string {
	claim = strings.TrimSpace(claim)
	runes := []rune(claim)
	if len(runes) <= limit {
		return claim
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// slugify reduces a title to a lowercase dash-separated token for URLs.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		slug = "claim"
	}
	return slug
}

func encodeSources(sources []domainVerification.Source) string {
	if len(sources) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
