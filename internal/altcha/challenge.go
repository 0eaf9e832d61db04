// Package altcha adapts altcha-lib-go to the types the server and the
// headless widget exchange.
package altcha

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	altchalib "github.com/altcha-org/altcha-lib-go"
)

const DefaultMaxNumber = 1_000_000

type Algorithm string

const (
	SHA1   Algorithm = "SHA-1"
	SHA256 Algorithm = "SHA-256"
	SHA512 Algorithm = "SHA-512"
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrNoSolution           = errors.New("no solution found")
)

// Challenge is the proof-of-work puzzle handed to the widget.
type Challenge struct {
	Algorithm Algorithm `json:"algorithm"`
	Challenge string    `json:"challenge"`
	MaxNumber int64     `json:"maxnumber"`
	Salt      string    `json:"salt"`
	Signature string    `json:"signature"`
}

type Options struct {
	HMACKey   string
	Algorithm Algorithm
	MaxNumber int64
	// Expires is encoded into the salt; zero means the challenge never expires.
	Expires time.Time
	// Number fixes the secret number; nil or zero picks one at random. Only tests set it.
	Number *int64
}

// Solution is the answer found by Solve.
type Solution struct {
	Number int64
	Took   time.Duration
}

func (a Algorithm) validate() (Algorithm, error) {
	switch a {
	case "":
		return SHA256, nil
	case SHA1, SHA256, SHA512:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
}

// CreateChallenge builds a signed challenge.
func CreateChallenge(opts Options) (Challenge, error) {
	if opts.HMACKey == "" {
		return Challenge{}, errors.New("altcha: hmac key is required")
	}
	alg, err := opts.Algorithm.validate()
	if err != nil {
		return Challenge{}, err
	}
	maxNumber := opts.MaxNumber
	if maxNumber <= 0 {
		maxNumber = DefaultMaxNumber
	}

	libOpts := altchalib.ChallengeOptions{
		Algorithm: altchalib.Algorithm(alg),
		MaxNumber: maxNumber,
		HMACKey:   opts.HMACKey,
	}
	if !opts.Expires.IsZero() {
		expires := opts.Expires
		libOpts.Expires = &expires
	}
	if opts.Number != nil {
		libOpts.Number = *opts.Number
	}

	c, err := altchalib.CreateChallenge(libOpts)
	if err != nil {
		return Challenge{}, fmt.Errorf("altcha: %w", err)
	}
	return Challenge{
		Algorithm: Algorithm(c.Algorithm),
		Challenge: c.Challenge,
		MaxNumber: c.MaxNumber,
		Salt:      c.Salt,
		Signature: c.Signature,
	}, nil
}

// Solve searches for the number behind c. It stops early when ctx is done.
func Solve(ctx context.Context, c Challenge) (Solution, error) {
	alg, err := c.Algorithm.validate()
	if err != nil {
		return Solution{}, err
	}
	maxNumber := c.MaxNumber
	if maxNumber <= 0 {
		maxNumber = DefaultMaxNumber
	}

	s := altchalib.SolveChallenge(c.Challenge, c.Salt, altchalib.Algorithm(alg), int(maxNumber), 0, ctx.Done())
	if s == nil {
		if err := ctx.Err(); err != nil {
			return Solution{}, err
		}
		return Solution{}, fmt.Errorf("altcha: %w up to %d", ErrNoSolution, maxNumber)
	}
	return Solution{Number: int64(s.Number), Took: s.Took}, nil
}

// SaltExpiry returns the expiry encoded in a challenge salt, if any.
func SaltExpiry(salt string) (time.Time, bool) {
	_, query, found := strings.Cut(salt, "?")
	if !found {
		return time.Time{}, false
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(params.Get("expires"), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
