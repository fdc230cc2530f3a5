package session

import (
	"context"
	"sync"

	"doha-explorer/models"
)

// Request is the handle of one completion call started by Send.
type Request struct {
	id      uint64
	input   string
	message models.Message

	ctx    context.Context
	cancel context.CancelFunc
	// stopReason is the outcome recorded when the manager drops the request.
	// Guarded by the manager mutex.
	stopReason Outcome

	done chan struct{}

	mu      sync.Mutex
	outcome Outcome
	reply   *models.Message
	err     error
}

func newRequest(ctx context.Context, cancel context.CancelFunc, id uint64, msg models.Message) *Request {
	return &Request{
		id:      id,
		input:   msg.Text,
		message: msg,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Input is the trimmed text sent to the completer.
func (r *Request) Input() string { return r.input }

// Message is the user message appended by Send.
func (r *Request) Message() models.Message { return r.message }

// Done is closed once the request resolved and its effects were applied.
func (r *Request) Done() <-chan struct{} { return r.done }

// Wait blocks until the request resolved or ctx is done.
func (r *Request) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.Outcome(), nil
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

func (r *Request) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Reply is the bot message appended for this request, if any.
// For OutcomeFailed it is the synthetic error message.
func (r *Request) Reply() (models.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reply == nil {
		return models.Message{}, false
	}
	return *r.reply, true
}

// Err is the completer error, nil when fulfilled.
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Request) finish(outcome Outcome, reply *models.Message, err error) {
	r.mu.Lock()
	r.outcome = outcome
	r.reply = reply
	r.err = err
	r.mu.Unlock()
	close(r.done)
}
