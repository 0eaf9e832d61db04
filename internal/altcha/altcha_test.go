package altcha

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const testKey = "test-hmac-key"

func fixedNumber(n int64) *int64 { return &n }

func solvedPayload(t *testing.T, opts Options) string {
	t.Helper()
	c, err := CreateChallenge(opts)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	s, err := Solve(context.Background(), c)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	encoded, err := NewPayload(c, s).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return encoded
}

func TestCreateChallengeRequiresKey(t *testing.T) {
	if _, err := CreateChallenge(Options{}); err == nil {
		t.Fatal("expected error without hmac key")
	}
}

func TestCreateChallengeUnsupportedAlgorithm(t *testing.T) {
	_, err := CreateChallenge(Options{HMACKey: testKey, Algorithm: "MD5"})
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestCreateChallengeEncodesExpiry(t *testing.T) {
	expires := time.Unix(1_900_000_000, 0)
	c, err := CreateChallenge(Options{HMACKey: testKey, MaxNumber: 10, Expires: expires})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if !strings.Contains(c.Salt, "?expires=1900000000") {
		t.Fatalf("salt %q missing expiry", c.Salt)
	}
	got, ok := SaltExpiry(c.Salt)
	if !ok || !got.Equal(expires) {
		t.Fatalf("SaltExpiry = %v, %v", got, ok)
	}
	if c.Algorithm != SHA256 || c.MaxNumber != 10 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestSolveFindsFixedNumber(t *testing.T) {
	c, err := CreateChallenge(Options{HMACKey: testKey, MaxNumber: 5000, Number: fixedNumber(4321)})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	s, err := Solve(context.Background(), c)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if s.Number != 4321 {
		t.Fatalf("Number = %d, want 4321", s.Number)
	}
}

func TestSolveHonoursContext(t *testing.T) {
	c, err := CreateChallenge(Options{HMACKey: testKey, MaxNumber: 5000, Number: fixedNumber(4999)})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Solve(ctx, c); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestVerifySolution(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		payload func(t *testing.T) string
		key     string
		want    error
	}{
		{
			name: "valid",
			payload: func(t *testing.T) string {
				return solvedPayload(t, Options{HMACKey: testKey, MaxNumber: 2000, Expires: now.Add(time.Minute)})
			},
			key: testKey,
		},
		{
			name: "sha512",
			payload: func(t *testing.T) string {
				return solvedPayload(t, Options{HMACKey: testKey, MaxNumber: 500, Algorithm: SHA512})
			},
			key: testKey,
		},
		{
			name: "wrong key",
			payload: func(t *testing.T) string {
				return solvedPayload(t, Options{HMACKey: testKey, MaxNumber: 500})
			},
			key:  "other-key",
			want: ErrInvalidSolution,
		},
		{
			name: "expired",
			payload: func(t *testing.T) string {
				return solvedPayload(t, Options{HMACKey: testKey, MaxNumber: 500, Expires: now.Add(-time.Minute)})
			},
			key:  testKey,
			want: ErrExpired,
		},
		{
			name: "wrong number",
			payload: func(t *testing.T) string {
				c, err := CreateChallenge(Options{HMACKey: testKey, MaxNumber: 500, Number: fixedNumber(7)})
				if err != nil {
					t.Fatalf("CreateChallenge: %v", err)
				}
				encoded, _ := NewPayload(c, Solution{Number: 8}).Encode()
				return encoded
			},
			key:  testKey,
			want: ErrInvalidSolution,
		},
		{
			name:    "not base64",
			payload: func(*testing.T) string { return "%%%" },
			key:     testKey,
			want:    ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifySolution(tt.payload(t), tt.key, true, now)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifySolutionSkipsExpiryWhenDisabled(t *testing.T) {
	encoded := solvedPayload(t, Options{HMACKey: testKey, MaxNumber: 500, Expires: time.Now().Add(-time.Hour)})
	if _, err := VerifySolution(encoded, testKey, false, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
