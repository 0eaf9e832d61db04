package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/berkan-cetinkaya/altcha-access/internal/altcha"
)

// Altcha verifies payloads locally against the HMAC key that signed the challenge.
type Altcha struct {
	Secret       string
	CheckExpires bool
	Now          func() time.Time
}

func NewAltcha(secret string) *Altcha {
	return &Altcha{
		Secret:       secret,
		CheckExpires: true,
		Now:          time.Now,
	}
}

// Verify returns an error only when ctx is done; a rejected payload is
// reported through Result.Reason.
func (a *Altcha) Verify(ctx context.Context, payload, _ string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	p, err := altcha.VerifySolution(payload, a.Secret, a.CheckExpires, now())
	if err != nil {
		return Result{Success: false, Reason: reason(err)}, nil
	}

	expires, _ := altcha.SaltExpiry(p.Salt)
	return Result{
		Success:   true,
		Key:       p.Signature,
		ExpiresAt: expires,
	}, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, altcha.ErrExpired):
		return "Challenge expired"
	case errors.Is(err, altcha.ErrInvalidSolution):
		return "Invalid solution"
	case errors.Is(err, altcha.ErrUnsupportedAlgorithm):
		return "Unsupported algorithm"
	default:
		return "Invalid altcha payload"
	}
}
