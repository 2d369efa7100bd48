package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
	"github.com/truthlens/truthlens/verifier"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider is the adapter for the OpenAI API. It sits first in the
// default chain: fast, cheap, and supports strict JSON schema output.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Verify implements the Provider interface for OpenAI.
func (p *OpenAIProvider) Verify(ctx context.Context, req verifier.Request) (domainVerification.Verdict, error) {
	var zero domainVerification.Verdict

	var userMessage openai.ChatCompletionMessageParamUnion
	if req.Media != nil && len(req.Media.Data) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Media.MimeType, base64.StdEncoding.EncodeToString(req.Media.Data))
		userMessage = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(verifier.BuildUserPrompt(req)),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}),
		})
	} else {
		userMessage = openai.UserMessage(verifier.BuildUserPrompt(req))
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"veracity": map[string]any{
				"type": "string",
				"enum": []string{"true", "false", "partially-true", "unverified"},
			},
			"confidence":  map[string]any{"type": "integer"},
			"explanation": map[string]any{"type": "string"},
			"sources": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"url":  map[string]any{"type": "string"},
					},
					"required":             []string{"name", "url"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"veracity", "confidence", "explanation", "sources"},
		"additionalProperties": false,
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(verifier.VerificationSystemPrompt),
			userMessage,
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "fact_check_verdict",
					Schema: any(schema),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return zero, classify(p.Name(), "verify", err)
	}
	if len(completion.Choices) == 0 {
		return zero, &verifier.ParseError{Provider: p.Name(), Snippet: "<no choices>", Err: fmt.Errorf("no response from openai")}
	}

	verdict, err := verifier.DecodeVerdict(p.Name(), completion.Choices[0].Message.Content)
	if err != nil {
		return zero, err
	}

	logrus.WithFields(logrus.Fields{
		"model":         p.model,
		"veracity":      verdict.Veracity,
		"confidence":    verdict.Confidence,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	}).Debug("[OPENAI] Verification completed")

	return verdict, nil
}

// GenerateTitle implements the Provider interface for OpenAI.
func (p *OpenAIProvider) GenerateTitle(ctx context.Context, claim string) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(verifier.TitleSystemPrompt),
			openai.UserMessage(claim),
		},
	})
	if err != nil {
		return "", classify(p.Name(), "generate title", err)
	}
	if len(completion.Choices) == 0 {
		return "", &verifier.ParseError{Provider: p.Name(), Snippet: "<no choices>", Err: fmt.Errorf("no response from openai")}
	}
	return stripQuotes(completion.Choices[0].Message.Content), nil
}

// RankResults implements the Provider interface for OpenAI.
func (p *OpenAIProvider) RankResults(ctx context.Context, query string, results []domainSearch.Result) ([]domainSearch.Result, error) {
	if len(results) < 2 {
		return results, nil
	}
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(verifier.RankSystemPrompt),
			openai.UserMessage(verifier.BuildRankPrompt(query, results)),
		},
	})
	if err != nil {
		return nil, classify(p.Name(), "rank results", err)
	}
	if len(completion.Choices) == 0 {
		return nil, &verifier.ParseError{Provider: p.Name(), Snippet: "<no choices>", Err: fmt.Errorf("no response from openai")}
	}
	order, err := verifier.DecodeRanking(p.Name(), completion.Choices[0].Message.Content, len(results))
	if err != nil {
		return nil, err
	}
	ranked := make([]domainSearch.Result, 0, len(results))
	for _, idx := range order {
		ranked = append(ranked, results[idx])
	}
	return ranked, nil
}

var _ verifier.Provider = (*OpenAIProvider)(nil)
