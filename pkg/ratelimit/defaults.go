package ratelimit

import "time"

// Default budgets for the three operation classes. A host application
// constructs one limiter per class at startup and injects it wherever the
// class's calls originate.
var (
	DefaultVerification = Config{
		MaxRequests: 10,
		Window:      time.Minute,
		Message:     "Too many verification requests. Please wait a moment before checking another claim.",
	}

	DefaultSearch = Config{
		MaxRequests: 30,
		Window:      time.Minute,
		Message:     "Search is temporarily rate limited. Please slow down.",
	}

	DefaultAuth = Config{
		MaxRequests: 5,
		Window:      5 * time.Minute,
		Message:     "Too many authentication attempts. Please try again later.",
	}
)
