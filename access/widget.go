package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/berkan-cetinkaya/altcha-access/internal/altcha"
)

// Widget error codes.
const (
	CodeFetch = "fetch_failed"
	CodeSolve = "solve_failed"
)

// Widget is a headless stand-in for the browser widget: it fetches a
// challenge, solves it and reports the payload as an event.
type Widget struct {
	ChallengeURL string
	Client       *http.Client
}

func NewWidget(challengeURL string) *Widget {
	return &Widget{
		ChallengeURL: challengeURL,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves a challenge from the server.
func (w *Widget) Fetch(ctx context.Context) (altcha.Challenge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.ChallengeURL, nil)
	if err != nil {
		return altcha.Challenge{}, err
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return altcha.Challenge{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return altcha.Challenge{}, fmt.Errorf("challenge endpoint returned %s", resp.Status)
	}
	var c altcha.Challenge
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return altcha.Challenge{}, fmt.Errorf("challenge decode error: %w", err)
	}
	return c, nil
}

// Verify fetches and solves a challenge and returns the encoded payload.
func (w *Widget) Verify(ctx context.Context) (string, error) {
	c, err := w.Fetch(ctx)
	if err != nil {
		return "", WidgetError{Message: err.Error(), Code: CodeFetch}
	}
	s, err := altcha.Solve(ctx, c)
	if err != nil {
		return "", WidgetError{Message: err.Error(), Code: CodeSolve}
	}
	payload, err := altcha.NewPayload(c, s).Encode()
	if err != nil {
		return "", WidgetError{Message: err.Error(), Code: CodeSolve}
	}
	return payload, nil
}

// Run verifies once and emits a VerifiedEvent or a WidgetErrorEvent.
func (w *Widget) Run(ctx context.Context, events chan<- Event) {
	payload, err := w.Verify(ctx)
	var ev Event = VerifiedEvent{Payload: payload}
	if err != nil {
		werr := WidgetError{Message: err.Error()}
		errors.As(err, &werr)
		ev = WidgetErrorEvent{Err: werr}
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
