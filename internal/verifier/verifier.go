package verifier

import (
	"context"
	"time"
)

// Result is the unified verification response model for ALTCHA payloads.
type Result struct {
	Success bool
	// Key identifies the solved challenge; replay protection keys on it.
	Key       string
	ExpiresAt time.Time
	Reason    string
}

// Verifier is the generic interface for payload verification.
type Verifier interface {
	Verify(ctx context.Context, payload, ip string) (Result, error)
}
