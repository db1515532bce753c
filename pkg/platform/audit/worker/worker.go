// Package worker decouples audit emission from audit persistence. Services
// append to a channel-backed Sink; the Worker drains the channel into the
// real store off the request path.
package worker

import (
	"context"

	audit "creditnet/pkg/platform/audit"
)

// Sink implements audit.Store by buffering events into a channel.
type Sink struct {
	inbox chan<- audit.Event
}

// NewSink returns a buffered sink and the channel a Worker should drain.
func NewSink(buffer int) (*Sink, <-chan audit.Event) {
	ch := make(chan audit.Event, buffer)
	return &Sink{inbox: ch}, ch
}

// Append enqueues the event. Blocks when the buffer is full so events are
// never dropped; ctx cancellation unblocks the caller.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	select {
	case s.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store audit.Store
	inbox <-chan audit.Event
}

func NewWorker(store audit.Store, inbox <-chan audit.Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
