package captcha

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/berkan-cetinkaya/altcha-access/internal/altcha"
	"github.com/berkan-cetinkaya/altcha-access/internal/policy"
	"github.com/berkan-cetinkaya/altcha-access/internal/replay"
	"github.com/berkan-cetinkaya/altcha-access/internal/verifier"

	cfg "github.com/berkan-cetinkaya/altcha-access/internal/config"
)

// Result statuses reported by Verify.
const (
	StatusVerified     = "verified"
	StatusTokenMissing = "token_missing"
	StatusPolicyError  = "policy_error"
	StatusConfigError  = "config_error"
	StatusVerifyError  = "verify_error"
	StatusInvalid      = "invalid"
	StatusReplayed     = "replayed"
)

type VerificationResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type CaptchaService interface {
	Challenge(ctx context.Context, action string) (altcha.Challenge, error)
	Verify(ctx context.Context, payload, ip, action string) VerificationResult
}

// SecretFunc resolves a named secret such as the HMAC key.
type SecretFunc func(key string) (string, error)

type Option func(*captchaService)

func WithPolicyLoader(loader *policy.Loader) Option {
	return func(s *captchaService) {
		if loader != nil {
			s.policies = loader
		}
	}
}

func WithSecrets(fn SecretFunc) Option {
	return func(s *captchaService) {
		if fn != nil {
			s.secret = fn
		}
	}
}

func WithReplayStore(store replay.Store) Option {
	return func(s *captchaService) {
		if store != nil {
			s.replay = store
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *captchaService) {
		if now != nil {
			s.now = now
		}
	}
}

var demoKeyOnce sync.Once

type captchaService struct {
	policies      *policy.Loader
	secret        SecretFunc
	replay        replay.Store
	now           func() time.Time
	buildVerifier func(secret string, now func() time.Time) verifier.Verifier
}

func NewCaptchaService(opts ...Option) CaptchaService {
	s := &captchaService{
		policies: policy.NewLoader(""),
		secret:   cfg.Get,
		replay:   replay.NewMemory(),
		now:      time.Now,
		buildVerifier: func(secret string, now func() time.Time) verifier.Verifier {
			v := verifier.NewAltcha(secret)
			v.Now = now
			return v
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *captchaService) Challenge(ctx context.Context, action string) (altcha.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return altcha.Challenge{}, err
	}
	p, err := s.policyFor(action)
	if err != nil {
		return altcha.Challenge{}, err
	}
	secret, err := s.hmacKey(p)
	if err != nil {
		return altcha.Challenge{}, err
	}

	challenge, err := altcha.CreateChallenge(altcha.Options{
		HMACKey:   secret,
		Algorithm: altcha.Algorithm(p.Algorithm),
		MaxNumber: p.MaxNumber,
		Expires:   s.now().Add(p.Expires),
	})
	if err != nil {
		return altcha.Challenge{}, fmt.Errorf("create challenge: %w", err)
	}
	return challenge, nil
}

func (s *captchaService) Verify(ctx context.Context, payload, ip, action string) VerificationResult {
	if payload == "" {
		return VerificationResult{
			Success: false,
			Status:  StatusTokenMissing,
			Error:   "CAPTCHA verification required",
		}
	}

	p, err := s.policyFor(action)
	if err != nil {
		return VerificationResult{
			Success: false,
			Status:  StatusPolicyError,
			Error:   fmt.Sprintf("failed to load policy: %v", err),
		}
	}
	secret, err := s.hmacKey(p)
	if err != nil {
		return VerificationResult{
			Success: false,
			Status:  StatusConfigError,
			Error:   fmt.Sprintf("captcha secret error: %v", err),
		}
	}

	res, err := s.buildVerifier(secret, s.now).Verify(ctx, payload, ip)
	if err != nil {
		return VerificationResult{
			Success: false,
			Status:  StatusVerifyError,
			Error:   "Verification failed",
		}
	}
	if !res.Success {
		return VerificationResult{
			Success: false,
			Status:  StatusInvalid,
			Error:   fmt.Sprintf("Invalid CAPTCHA verification: %s", res.Reason),
		}
	}

	// The spent key must outlive the payload, so a payload without an
	// expiry could be replayed once the key is forgotten.
	if res.ExpiresAt.IsZero() {
		return VerificationResult{
			Success: false,
			Status:  StatusInvalid,
			Error:   "Invalid CAPTCHA verification: challenge has no expiry",
		}
	}
	fresh, err := s.replay.MarkSpent(ctx, res.Key, res.ExpiresAt.Sub(s.now()))
	if err != nil {
		log.Printf("[captcha] replay store error: %v\n", err)
		return VerificationResult{
			Success: false,
			Status:  StatusVerifyError,
			Error:   "Verification failed",
		}
	}
	if !fresh {
		return VerificationResult{
			Success: false,
			Status:  StatusReplayed,
			Error:   "Invalid CAPTCHA verification: payload already used",
		}
	}

	return VerificationResult{
		Success: true,
		Status:  StatusVerified,
	}
}

func (s *captchaService) policyFor(action string) (policy.Policy, error) {
	store, err := s.policies.Current()
	if err != nil {
		return policy.Policy{}, err
	}
	p, ok := store.PolicyFor(action)
	if !ok && action != "" {
		log.Printf("[captcha] no policy override for '%s', using default max_number=%d\n", action, p.MaxNumber)
	}
	return p, nil
}

// hmacKey loads the policy's secret. Only the stock key name, and only when
// the source reports it as not set, falls back to the demo key; a failing
// source never does.
func (s *captchaService) hmacKey(p policy.Policy) (string, error) {
	secret, err := s.secret(p.SecretKey)
	if err == nil && secret != "" {
		return secret, nil
	}
	if err == nil {
		err = cfg.ErrNotFound
	}
	if errors.Is(err, cfg.ErrNotFound) && p.SecretKey == cfg.HMACKeyName {
		demoKeyOnce.Do(func() {
			log.Printf("[captcha] %s not set, using the demo key\n", cfg.HMACKeyName)
		})
		return cfg.DefaultHMACKey, nil
	}
	return "", fmt.Errorf("failed to load secret '%s': %w", p.SecretKey, err)
}
