package providers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
	"github.com/truthlens/truthlens/verifier"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider is the adapter for the Gemini API. It handles media
// claims natively via inline data parts, which makes it the preferred
// fallback for image verification.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, &verifier.ProviderError{Provider: p.Name(), Reason: "no API key configured"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classify(p.Name(), "create client", err)
	}
	return client, nil
}

// Verify implements the Provider interface for Gemini.
func (p *GeminiProvider) Verify(ctx context.Context, req verifier.Request) (domainVerification.Verdict, error) {
	var zero domainVerification.Verdict

	client, err := p.newClient(ctx)
	if err != nil {
		return zero, err
	}

	parts := []*genai.Part{{Text: verifier.BuildUserPrompt(req)}}
	if req.Media != nil && len(req.Media.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: req.Media.MimeType, Data: req.Media.Data},
		})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(verifier.VerificationSystemPrompt, ""),
		ResponseMIMEType:  "application/json",
		ResponseJsonSchema: &genai.Schema{
			Type: "object",
			Properties: map[string]*genai.Schema{
				"veracity": {
					Type: "string",
					Enum: []string{"true", "false", "partially-true", "unverified"},
				},
				"confidence":  {Type: "integer"},
				"explanation": {Type: "string"},
				"sources": {
					Type: "array",
					Items: &genai.Schema{
						Type: "object",
						Properties: map[string]*genai.Schema{
							"name": {Type: "string"},
							"url":  {Type: "string"},
						},
						Required: []string{"name", "url"},
					},
				},
			},
			Required: []string{"veracity", "confidence", "explanation", "sources"},
		},
	}

	result, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return zero, classify(p.Name(), "verify", err)
	}

	verdict, err := verifier.DecodeVerdict(p.Name(), result.Text())
	if err != nil {
		return zero, err
	}

	logrus.WithFields(logrus.Fields{
		"model":      p.model,
		"veracity":   verdict.Veracity,
		"confidence": verdict.Confidence,
	}).Debug("[GEMINI] Verification completed")

	return verdict, nil
}

// GenerateTitle implements the Provider interface for Gemini.
func (p *GeminiProvider) GenerateTitle(ctx context.Context, claim string) (string, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: claim}}}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(verifier.TitleSystemPrompt, ""),
	}
	result, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", classify(p.Name(), "generate title", err)
	}
	title := stripQuotes(result.Text())
	if title == "" {
		return "", &verifier.ParseError{Provider: p.Name(), Snippet: "<empty>", Err: fmt.Errorf("empty title response")}
	}
	return title, nil
}

// RankResults implements the Provider interface for Gemini.
func (p *GeminiProvider) RankResults(ctx context.Context, query string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	if len(results) < 2 {
		return results, nil
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: verifier.BuildRankPrompt(query, results)}}}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(verifier.RankSystemPrompt, ""),
		ResponseMIMEType:  "application/json",
	}
	result, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, classify(p.Name(), "rank results", err)
	}
	order, err := verifier.DecodeRanking(p.Name(), result.Text(), len(results))
	if err != nil {
		return nil, err
	}
	ranked := make([]domainSearch.Result, 0, len(results))
	for _, idx := range order {
		ranked = append(ranked, results[idx])
	}
	return ranked, nil
}

var _ verifier.Provider = (*GeminiProvider)(nil)
