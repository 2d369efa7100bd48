package verifier

import "fmt"

// NetworkError marks a transient transport failure (timeout, connection
// reset, abort). The retry executor retries these.
type NetworkError struct {
	Provider string
	Op       string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Retryable() bool { return true }

// ProviderError marks a definitive provider-side rejection: bad API key,
// exhausted quota, invalid request. Retrying cannot help.
type ProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Retryable() bool { return false }

// ParseError marks a model response that could not be shaped into a
// verdict even after repair attempts. The chain moves on to the next
// provider; users only see this if every provider fails.
type ParseError struct {
	Provider string
	Snippet  string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v (snippet: %s)", e.Provider, e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Retryable() bool { return false }

// ChainError aggregates a full fallback-chain exhaustion. Its message
// embeds the last provider's failure so logs point at the freshest cause.
type ChainError struct {
	Op           string
	Attempts     int
	LastProvider string
	LastErr      error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s: all %d providers failed, last error from %s: %v",
		e.Op, e.Attempts, e.LastProvider, e.LastErr)
}

func (e *ChainError) Unwrap() error { return e.LastErr }
