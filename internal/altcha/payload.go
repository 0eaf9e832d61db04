package altcha

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	altchalib "github.com/altcha-org/altcha-lib-go"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrExpired          = errors.New("challenge expired")
	ErrInvalidSolution  = errors.New("invalid solution")
)

// Payload is what the widget submits once it has solved a challenge.
type Payload struct {
	Algorithm Algorithm `json:"algorithm"`
	Challenge string    `json:"challenge"`
	Number    int64     `json:"number"`
	Salt      string    `json:"salt"`
	Signature string    `json:"signature"`
	Took      int64     `json:"took,omitempty"`
}

// NewPayload pairs a challenge with its solution.
func NewPayload(c Challenge, s Solution) Payload {
	return Payload{
		Algorithm: c.Algorithm,
		Challenge: c.Challenge,
		Number:    s.Number,
		Salt:      c.Salt,
		Signature: c.Signature,
		Took:      s.Took.Milliseconds(),
	}
}

// Encode returns the base64 JSON form sent over the wire.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("altcha: encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodePayload parses the base64 JSON form of a payload.
func DecodePayload(encoded string) (Payload, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Challenge == "" || p.Salt == "" || p.Signature == "" {
		return Payload{}, fmt.Errorf("%w: missing fields", ErrMalformedPayload)
	}
	return p, nil
}

// VerifySolution checks an encoded payload against hmacKey. Expiry is
// judged against now so callers control the clock; the hash and signature
// checks are left to altcha-lib-go.
func VerifySolution(encoded, hmacKey string, checkExpires bool, now time.Time) (Payload, error) {
	p, err := DecodePayload(encoded)
	if err != nil {
		return Payload{}, err
	}
	if _, err := p.Algorithm.validate(); err != nil {
		return Payload{}, err
	}
	if checkExpires {
		if expires, ok := SaltExpiry(p.Salt); ok && now.After(expires) {
			return Payload{}, ErrExpired
		}
	}

	ok, err := altchalib.VerifySolution(encoded, hmacKey, false)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidSolution, err)
	}
	if !ok {
		return Payload{}, ErrInvalidSolution
	}
	return p, nil
}
