package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// PayloadHeader carries the payload for clients that cannot send a body.
const PayloadHeader = "X-Altcha"

// payloadField is the form and JSON field name the widget submits.
const payloadField = "altcha"

const maxBodyBytes = 64 << 10

var (
	serviceOnce sync.Once
	service     CaptchaService
)

func defaultService() CaptchaService {
	serviceOnce.Do(func() {
		service = NewCaptchaService()
	})
	return service
}

type FailureHandler func(http.ResponseWriter, *http.Request, VerificationResult)

type middlewareConfig struct {
	service        CaptchaService
	failureHandler FailureHandler
	timeout        time.Duration
}

type MiddlewareOption func(*middlewareConfig)

func WithFailureHandler(handler FailureHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.failureHandler = handler
		}
	}
}

// WithService replaces the lazily built process-wide service.
func WithService(svc CaptchaService) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if svc != nil {
			cfg.service = svc
		}
	}
}

func WithTimeout(d time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// Middleware rejects requests that do not carry a valid, unspent payload
// for expectedAction.
func Middleware(expectedAction string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		failureHandler: StatusFailureHandler(),
		timeout:        6 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			svc := cfg.service
			if svc == nil {
				svc = defaultService()
			}
			payload := extractPayload(r)
			if payload == "" {
				log.Printf("[captcha] no payload provided for '%s'\n", expectedAction)
				cfg.failureHandler(w, r, VerificationResult{
					Success: false,
					Status:  StatusTokenMissing,
					Error:   "CAPTCHA verification required",
				})
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), cfg.timeout)
			defer cancel()

			result := svc.Verify(ctx, payload, r.RemoteAddr, expectedAction)
			if !result.Success {
				log.Printf("[captcha] rejected payload for '%s': %s\n", expectedAction, result.Status)
				cfg.failureHandler(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// JSONFailureHandler always answers with status.
func JSONFailureHandler(status int) FailureHandler {
	return func(w http.ResponseWriter, _ *http.Request, result VerificationResult) {
		writeJSON(w, status, result)
	}
}

// StatusFailureHandler maps the result status to 400, 403 or 500.
func StatusFailureHandler() FailureHandler {
	return func(w http.ResponseWriter, _ *http.Request, result VerificationResult) {
		writeJSON(w, failureStatus(result.Status), result)
	}
}

func failureStatus(status string) int {
	switch status {
	case StatusTokenMissing:
		return http.StatusBadRequest
	case StatusInvalid, StatusReplayed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func extractPayload(r *http.Request) string {
	if t := r.Header.Get(PayloadHeader); t != "" {
		return t
	}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		return payloadFromJSON(r)
	}
	if err := r.ParseForm(); err == nil {
		if t := r.FormValue(payloadField); t != "" {
			return t
		}
	}
	return payloadFromJSON(r)
}

func payloadFromJSON(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body = io.NopCloser(bytes.NewReader(b))
	if len(b) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}
	if v, ok := m[payloadField].(string); ok {
		return v
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
