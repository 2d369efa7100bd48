package verifier

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	domainVerification "github.com/truthlens/truthlens/domains/verification"
)

// wireVerdict tolerates the loose shapes models actually emit: numeric
// confidence as float or string, sources as strings or objects.
type wireVerdict struct {
	Veracity    string          `json:"veracity"`
	Confidence  json.Number     `json:"confidence"`
	Explanation string          `json:"explanation"`
	Sources     json.RawMessage `json:"sources"`
}

// DecodeVerdict parses a free-form model response into a Verdict:
// code fences stripped, the outermost JSON object isolated, common
// truncation damage repaired, then enum/numeric sanitation applied.
func DecodeVerdict(provider, content string) (domainVerification.Verdict, error) {
	var zero domainVerification.Verdict

	payload := strings.TrimSpace(stripCodeFence(content))
	if payload == "" {
		return zero, &ParseError{Provider: provider, Snippet: "<empty>", Err: errors.New("empty payload")}
	}
	payload = isolateObject(payload)

	var wire wireVerdict
	err := json.Unmarshal([]byte(payload), &wire)
	if err != nil {
		repaired, ok := repairTruncation(payload)
		if !ok {
			return zero, &ParseError{Provider: provider, Snippet: snippet(payload), Err: err}
		}
		if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
			return zero, &ParseError{Provider: provider, Snippet: snippet(payload), Err: err}
		}
	}

	verdict := domainVerification.Verdict{
		Veracity:    domainVerification.Veracity(strings.ToLower(strings.TrimSpace(wire.Veracity))),
		Explanation: strings.TrimSpace(wire.Explanation),
		Sources:     decodeSources(wire.Sources),
	}
	if !verdict.Veracity.IsValid() {
		verdict.Veracity = domainVerification.VeracityUnverified
	}
	if confidence, err := wire.Confidence.Float64(); err == nil {
		verdict.Confidence = ClampConfidence(int(confidence))
	}
	return verdict, nil
}

// ClampConfidence bounds a model-reported confidence into [0,100].
func ClampConfidence(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

// decodeSources accepts the sources field as an array of strings and/or
// objects. Anything else yields an empty (never nil) slice.
func decodeSources(raw json.RawMessage) []domainVerification.Source {
	if len(raw) == 0 {
		return []domainVerification.Source{}
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return []domainVerification.Source{}
	}
	return NormalizeSources(values)
}

// NormalizeSources shapes a heterogeneous source list into {name, url}
// pairs. Plain strings that look like URLs become {hostname, url};
// entries without a valid absolute URL are dropped. Running the
// normalization over an already-normalized list is a no-op.
func NormalizeSources(values []any) []domainVerification.Source {
	sources := make([]domainVerification.Source, 0, len(values))
	for _, value := range values {
		if source, ok := normalizeSource(value); ok {
			sources = append(sources, source)
		}
	}
	return sources
}

func normalizeSource(value any) (domainVerification.Source, bool) {
	switch v := value.(type) {
	case string:
		parsed, ok := absoluteURL(v)
		if !ok {
			return domainVerification.Source{}, false
		}
		return domainVerification.Source{Name: parsed.Hostname(), URL: v}, true
	case map[string]any:
		rawURL, _ := v["url"].(string)
		parsed, ok := absoluteURL(rawURL)
		if !ok {
			return domainVerification.Source{}, false
		}
		name, _ := v["name"].(string)
		if strings.TrimSpace(name) == "" {
			name = parsed.Hostname()
		}
		return domainVerification.Source{Name: name, URL: rawURL}, true
	case domainVerification.Source:
		if _, ok := absoluteURL(v.URL); !ok {
			return domainVerification.Source{}, false
		}
		return v, true
	}
	return domainVerification.Source{}, false
}

func absoluteURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" {
		return nil, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false
	}
	return parsed, true
}

// isolateObject cuts the response down to its outermost JSON object so
// prose before or after the payload does not break decoding.
func isolateObject(content string) string {
	if strings.HasPrefix(content, "{") {
		return content
	}
	start := strings.Index(content, "{")
	if start < 0 {
		return content
	}
	if end := strings.LastIndex(content, "}"); end > start {
		return strings.TrimSpace(content[start : end+1])
	}
	return strings.TrimSpace(content[start:])
}

// repairTruncation applies the small set of fixes that recover most
// cut-off model outputs: append the missing closing brace, and drop a
// dangling trailing comma.
func repairTruncation(payload string) (string, bool) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return "", false
	}
	if !strings.HasSuffix(trimmed, "}") {
		candidate := strings.TrimRight(trimmed, ", \t\r\n")
		return candidate + "}", true
	}
	inner := strings.TrimSpace(strings.TrimSuffix(trimmed, "}"))
	if strings.HasSuffix(inner, ",") {
		return strings.TrimRight(inner, ", \t\r\n") + "}", true
	}
	return "", false
}

// DecodeRanking parses a {"order": [...]} response into a permutation of
// [0, n). Out-of-range or duplicate indices are dropped; indices the
// model omitted are appended in original order so no result is lost.
func DecodeRanking(provider, content string, n int) ([]int, error) {
	payload := isolateObject(strings.TrimSpace(stripCodeFence(content)))
	var wire struct {
		Order []int `json:"order"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, &ParseError{Provider: provider, Snippet: snippet(payload), Err: err}
	}
	seen := make(map[int]bool, n)
	order := make([]int, 0, n)
	for _, idx := range wire.Order {
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}
	for idx := 0; idx < n; idx++ {
		if !seen[idx] {
			order = append(order, idx)
		}
	}
	return order, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
