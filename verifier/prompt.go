package verifier

import (
	"fmt"
	"strings"

	domainSearch "github.com/truthlens/truthlens/domains/search"
)

// VerificationSystemPrompt is the fixed instruction every provider
// receives for fact-checking. Response-shape wording matters more than
// eloquence here; adapters that support structured output also pin the
// schema mechanically.
const VerificationSystemPrompt = `You are a rigorous news fact-checker.
Judge the user's claim using the supplied web context and your own knowledge.
Respond with ONLY a JSON object of this exact shape:
{"veracity": "true" | "false" | "partially-true" | "unverified",
 "confidence": <integer 0-100>,
 "explanation": "<concise reasoning, cite the context where possible>",
 "sources": [{"name": "<publisher>", "url": "<absolute url>"}]}`

// TitleSystemPrompt asks a provider for a short label for the history
// panel; failures here never affect the verdict.
const TitleSystemPrompt = `Generate a short neutral headline (max 10 words) for the fact-check below.
Respond with the headline text only, no quotes, no markdown.`

// RankSystemPrompt asks a provider to reorder search results by
// relevance to the claim being checked.
const RankSystemPrompt = `You rank web search results by how useful they are for fact-checking a claim.
Respond with ONLY a JSON object: {"order": [<zero-based indices, most relevant first>]}`

// BuildRankPrompt renders the ranking user turn.
func BuildRankPrompt(query string, results []domainSearch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CLAIM: %s\n\nRESULTS:\n", query)
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s - %s\n", i, result.Title, result.Snippet)
	}
	return b.String()
}

// BuildUserPrompt renders the claim plus its search context into the
// user turn sent to a provider.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CLAIM (%s): %s\n", req.Kind, req.Claim)
	if req.UserContext != "" {
		fmt.Fprintf(&b, "\nUSER-SUPPLIED CONTEXT:\n%s\n", req.UserContext)
	}
	if len(req.SearchContext) > 0 {
		b.WriteString("\nWEB CONTEXT:\n")
		for i, result := range req.SearchContext {
			fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, result.Title, result.Snippet, result.URL)
		}
	} else {
		b.WriteString("\nWEB CONTEXT: none available.\n")
	}
	return b.String()
}
