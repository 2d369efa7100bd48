package providers

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/truthlens/truthlens/verifier"
)

var transientTokens = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"temporary failure",
	"unavailable",
	"overloaded",
	"500",
	"502",
	"503",
	"504",
}

var rejectionTokens = []string{
	"api key",
	"unauthorized",
	"permission",
	"forbidden",
	"quota",
	"billing",
	"invalid request",
	"invalid argument",
}

// classify shapes an SDK/transport error into the retryable vs.
// non-retryable taxonomy. Unknown failures default to non-retryable so
// the chain falls through to the next provider instead of burning the
// backoff budget.
func classify(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &verifier.NetworkError{Provider: provider, Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &verifier.NetworkError{Provider: provider, Op: op, Err: err}
	}

	message := strings.ToLower(err.Error())
	for _, token := range rejectionTokens {
		if strings.Contains(message, token) {
			return &verifier.ProviderError{Provider: provider, Reason: op, Err: err}
		}
	}
	for _, token := range transientTokens {
		if strings.Contains(message, token) {
			return &verifier.NetworkError{Provider: provider, Op: op, Err: err}
		}
	}
	return &verifier.ProviderError{Provider: provider, Reason: op, Err: err}
}

// stripQuotes removes the decorative quoting models like to wrap short
// answers in.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”")
	return strings.TrimSpace(s)
}
