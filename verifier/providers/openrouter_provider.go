package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
	"github.com/truthlens/truthlens/verifier"
)

const (
	DefaultOpenRouterModel = "mistralai/mixtral-8x7b-instruct"
	openRouterEndpoint     = "https://openrouter.ai/api/v1/chat/completions"
)

// OpenRouterProvider is the adapter for OpenRouter's OpenAI-compatible
// chat API. It is the last link in the default chain and gives access to
// open-weight models when the primary providers are down or out of quota.
type OpenRouterProvider struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouterProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: openRouterEndpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

type openRouterMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openRouterRequest struct {
	Model          string              `json:"model"`
	Messages       []openRouterMessage `json:"messages"`
	ResponseFormat map[string]string   `json:"response_format,omitempty"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (p *OpenRouterProvider) complete(ctx context.Context, op string, messages []openRouterMessage, jsonMode bool) (string, error) {
	if p.apiKey == "" {
		return "", &verifier.ProviderError{Provider: p.Name(), Reason: "no API key configured"}
	}

	reqBody := openRouterRequest{Model: p.model, Messages: messages}
	if jsonMode {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &verifier.ProviderError{Provider: p.Name(), Reason: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &verifier.ProviderError{Provider: p.Name(), Reason: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Title", "TruthLens")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", classify(p.Name(), op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &verifier.NetworkError{Provider: p.Name(), Op: op, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return "", &verifier.NetworkError{Provider: p.Name(), Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))}
	case resp.StatusCode != http.StatusOK:
		return "", &verifier.ProviderError{Provider: p.Name(), Reason: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))}
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &verifier.ParseError{Provider: p.Name(), Snippet: string(body[:min(len(body), 160)]), Err: err}
	}
	if parsed.Error != nil {
		return "", &verifier.ProviderError{Provider: p.Name(), Reason: op, Err: fmt.Errorf("%v: %s", parsed.Error.Code, parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &verifier.ParseError{Provider: p.Name(), Snippet: "<no choices>", Err: fmt.Errorf("no response from openrouter")}
	}
	return parsed.Choices[0].Message.Content, nil
}

// Verify implements the Provider interface for OpenRouter.
func (p *OpenRouterProvider) Verify(ctx context.Context, req verifier.Request) (domainVerification.Verdict, error) {
	var zero domainVerification.Verdict

	var userContent any = verifier.BuildUserPrompt(req)
	if req.Media != nil && len(req.Media.Data) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Media.MimeType, base64.StdEncoding.EncodeToString(req.Media.Data))
		userContent = []map[string]any{
			{"type": "text", "text": verifier.BuildUserPrompt(req)},
			{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
		}
	}

	content, err := p.complete(ctx, "verify", []openRouterMessage{
		{Role: "system", Content: verifier.VerificationSystemPrompt},
		{Role: "user", Content: userContent},
	}, true)
	if err != nil {
		return zero, err
	}

	verdict, err := verifier.DecodeVerdict(p.Name(), content)
	if err != nil {
		return zero, err
	}

	logrus.WithFields(logrus.Fields{
		"model":      p.model,
		"veracity":   verdict.Veracity,
		"confidence": verdict.Confidence,
	}).Debug("[OPENROUTER] Verification completed")

	return verdict, nil
}

// GenerateTitle implements the Provider interface for OpenRouter.
func (p *OpenRouterProvider) GenerateTitle(ctx context.Context, claim string) (string, error) {
	content, err := p.complete(ctx, "generate title", []openRouterMessage{
		{Role: "system", Content: verifier.TitleSystemPrompt},
		{Role: "user", Content: claim},
	}, false)
	if err != nil {
		return "", err
	}
	return stripQuotes(content), nil
}

// RankResults implements the Provider interface for OpenRouter.
func (p *OpenRouterProvider) RankResults(ctx context.Context, query string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	if len(results) < 2 {
		return results, nil
	}
	content, err := p.complete(ctx, "rank results", []openRouterMessage{
		{Role: "system", Content: verifier.RankSystemPrompt},
		{Role: "user", Content: verifier.BuildRankPrompt(query, results)},
	}, true)
	if err != nil {
		return nil, err
	}
	order, err := verifier.DecodeRanking(p.Name(), content, len(results))
	if err != nil {
		return nil, err
	}
	ranked := make([]domainSearch.Result, 0, len(results))
	for _, idx := range order {
		ranked = append(ranked, results[idx])
	}
	return ranked, nil
}

var _ verifier.Provider = (*OpenRouterProvider)(nil)
