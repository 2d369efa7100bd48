package verifier

import (
	"context"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
)

// Request carries one claim into a provider, along with whatever context
// the search collaborator found.
type Request struct {
	Claim         string
	Kind          domainVerification.ClaimKind
	UserContext   string
	SearchContext []domainSearch.Result
	Media         *domainVerification.Media
}

// Provider is the thin interface every interchangeable AI backend
// implements. Adapters throw on failure; retry and fallback policy live
// outside them.
type Provider interface {
	Name() string
	Verify(ctx context.Context, req Request) (domainVerification.Verdict, error)
	GenerateTitle(ctx context.Context, claim string) (string, error)
	RankResults(ctx context.Context, query string, results []domainSearch.Result) ([]domainSearch.Result, error)
}

// providerAliases maps deprecated provider names that used to redirect to
// another backend. An alias resolves to its target at chain construction
// and never becomes a distinct chain entry.
var providerAliases = map[string]string{
	"gpt4":        "openai",
	"gpt4o":       "openai",
	"gemini-pro":  "gemini",
	"palm":        "gemini",
	"mixtral":     "openrouter",
	"together":    "openrouter",
	"perplexity":  "openrouter",
	"huggingface": "openrouter",
}

// ResolveAlias returns the canonical provider name for name.
func ResolveAlias(name string) string {
	if target, ok := providerAliases[name]; ok {
		return target
	}
	return name
}
