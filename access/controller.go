// Package access drives the client side of a CAPTCHA-gated resource: it
// tracks widget verification, holds the resulting payload and submits it
// to the protected endpoint on user request.
package access

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// State is the verification state of the widget as seen by the controller.
type State int

const (
	Unverified State = iota
	Verified
)

func (s State) String() string {
	switch s {
	case Verified:
		return "verified"
	default:
		return "unverified"
	}
}

// Texts rendered through the UI.
const (
	StatusLoading  = "Loading CAPTCHA..."
	StatusVerified = "Verified ✓"
	LabelAccess    = "Access Protected Content"
	LabelInFlight  = "Accessing protected content..."

	MessageNotVerified   = "Please wait for CAPTCHA verification to complete."
	MessageAccessFailed  = "Failed to access protected content"
	MessageUnknownWidget = "Unknown error occurred"
)

var (
	ErrPrematureAccess  = errors.New("access requested before verification")
	ErrEndpointRejected = errors.New("endpoint rejected access")
	ErrTransport        = errors.New("transport failure")
	ErrBusy             = errors.New("access request already in flight")
)

// WidgetError is reported by the widget; Code is optional.
type WidgetError struct {
	Message string
	Code    string
}

func (e WidgetError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = MessageUnknownWidget
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

// Outcome is the result of one access attempt. Err is nil on success and
// otherwise matches one of the Err* sentinels via errors.Is.
type Outcome struct {
	Success bool
	Message string
	Err     error
}

// Controller mediates between widget events and the protected endpoint.
// A page owns exactly one. The UI is never called with the controller's
// lock held, so it may query the controller while rendering.
type Controller struct {
	ui       UI
	endpoint Endpoint

	mu       sync.Mutex
	state    State
	payload  string
	enabled  bool
	inFlight bool
}

// New returns a controller in the unverified state with the trigger disabled.
func New(ui UI, endpoint Endpoint) *Controller {
	c := &Controller{ui: ui, endpoint: endpoint}
	c.ui.SetStatus(Unverified, StatusLoading)
	c.ui.SetTrigger(false, LabelAccess)
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Payload() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload
}

// TriggerEnabled reports whether the access action is currently offered.
func (c *Controller) TriggerEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// OnVerified stores payload and enables the access action. A later call
// replaces the payload.
func (c *Controller) OnVerified(payload string) {
	c.mu.Lock()
	c.state = Verified
	c.payload = payload
	idle := !c.inFlight
	if idle {
		c.enabled = true
	}
	c.mu.Unlock()

	if idle {
		c.ui.SetTrigger(true, LabelAccess)
		c.ui.ShowProgress(false)
	}
	c.ui.SetStatus(Verified, StatusVerified)
}

// OnWidgetError surfaces a widget failure. State and trigger are left alone.
func (c *Controller) OnWidgetError(werr WidgetError) {
	log.Printf("[access] captcha error: %+v\n", werr)
	c.ui.ShowError("CAPTCHA Error: " + werr.Error())
}

// OnAccessRequested submits the payload once. Every failure is rendered
// and returned in the Outcome; nothing is retried.
func (c *Controller) OnAccessRequested(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		log.Println("[access] access request ignored: already in flight")
		return Outcome{Message: LabelInFlight, Err: ErrBusy}
	}
	if c.state != Verified || c.payload == "" {
		c.mu.Unlock()
		c.ui.ShowError(MessageNotVerified)
		return Outcome{Message: MessageNotVerified, Err: ErrPrematureAccess}
	}
	payload := c.payload
	c.inFlight = true
	c.enabled = false
	c.mu.Unlock()

	c.ui.SetTrigger(false, LabelInFlight)
	c.ui.ShowProgress(true)

	defer c.settle()

	log.Println("[access] access request initiated")
	return c.submit(ctx, payload)
}

func (c *Controller) submit(ctx context.Context, payload string) Outcome {
	reply, err := c.endpoint.Submit(ctx, payload)
	if err != nil {
		msg := fmt.Sprintf("%s: %v", MessageAccessFailed, err)
		log.Printf("[access] error accessing protected content: %v\n", err)
		c.ui.ShowError(msg)
		return Outcome{Message: msg, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}

	if reply.OK() && reply.Success {
		c.ui.ShowSuccess(reply.Message)
		return Outcome{Success: true, Message: reply.Message}
	}

	msg := reply.Error
	if msg == "" {
		msg = MessageAccessFailed
	}
	log.Printf("[access] endpoint rejected access (status %d): %s\n", reply.StatusCode, msg)
	c.ui.ShowError(msg)
	return Outcome{Message: msg, Err: fmt.Errorf("%w: %s", ErrEndpointRejected, msg)}
}

// settle re-enables the trigger and hides progress on every exit path.
func (c *Controller) settle() {
	c.mu.Lock()
	c.inFlight = false
	c.enabled = true
	c.mu.Unlock()

	c.ui.SetTrigger(true, LabelAccess)
	c.ui.ShowProgress(false)
}
