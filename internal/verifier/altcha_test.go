package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/berkan-cetinkaya/altcha-access/internal/altcha"
)

func payloadFor(t *testing.T, key string, expires time.Time) string {
	t.Helper()
	c, err := altcha.CreateChallenge(altcha.Options{HMACKey: key, MaxNumber: 1000, Expires: expires})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	s, err := altcha.Solve(context.Background(), c)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	encoded, err := altcha.NewPayload(c, s).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return encoded
}

func TestAltchaVerifySuccess(t *testing.T) {
	expires := time.Now().Add(time.Minute).Truncate(time.Second)
	v := NewAltcha("k")
	res, err := v.Verify(context.Background(), payloadFor(t, "k", expires), "127.0.0.1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Success || res.Key == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.ExpiresAt.Equal(expires) {
		t.Fatalf("ExpiresAt = %v, want %v", res.ExpiresAt, expires)
	}
}

func TestAltchaVerifyReasons(t *testing.T) {
	future := time.Now().Add(time.Minute)
	tests := []struct {
		name    string
		v       *Altcha
		payload string
		reason  string
	}{
		{"bad signature", NewAltcha("other"), payloadFor(t, "k", future), "Invalid solution"},
		{"garbage", NewAltcha("k"), "not-a-payload", "Invalid altcha payload"},
		{
			name: "expired",
			v: &Altcha{Secret: "k", CheckExpires: true, Now: func() time.Time {
				return future.Add(time.Hour)
			}},
			payload: payloadFor(t, "k", future),
			reason:  "Challenge expired",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.v.Verify(context.Background(), tt.payload, "")
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if res.Success || res.Reason != tt.reason {
				t.Fatalf("got %+v, want reason %q", res, tt.reason)
			}
		})
	}
}

func TestAltchaVerifyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAltcha("k").Verify(ctx, "x", ""); err == nil {
		t.Fatal("expected context error")
	}
}
