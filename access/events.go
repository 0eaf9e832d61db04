package access

import (
	"context"
	"sync"
)

// Event is something the widget or the user does.
type Event interface {
	event()
}

// VerifiedEvent is emitted by the widget after it solved its challenge.
type VerifiedEvent struct {
	Payload string
}

// WidgetErrorEvent is emitted by the widget when it fails.
type WidgetErrorEvent struct {
	Err WidgetError
}

// AccessRequestedEvent is the user's trigger. Done, if set, receives the
// outcome once the attempt finishes and must have room for one value.
type AccessRequestedEvent struct {
	Done chan<- Outcome
}

func (VerifiedEvent) event()        {}
func (WidgetErrorEvent) event()     {}
func (AccessRequestedEvent) event() {}

// Run dispatches events in arrival order until events is closed or ctx is
// done. Access requests proceed in the background so the loop keeps
// serving events while a request is in flight; Run waits for them before
// returning.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case VerifiedEvent:
				c.OnVerified(ev.Payload)
			case WidgetErrorEvent:
				c.OnWidgetError(ev.Err)
			case AccessRequestedEvent:
				wg.Add(1)
				go func() {
					defer wg.Done()
					out := c.OnAccessRequested(ctx)
					if ev.Done != nil {
						ev.Done <- out
					}
				}()
			}
		}
	}
}
