// Package session owns the conversation of one signed-in visitor: the
// ordered message list, the single in-flight completion request and the
// best-effort persistence of every message.
package session

import (
	"context"
	"errors"

	"doha-explorer/models"
)

// ErrHydration wraps store read failures returned by Initialize.
// The conversation stays at the greeting when it is returned.
var ErrHydration = errors.New("session: chat history hydration failed")

// MessageStore is the per-user append-only message document.
type MessageStore interface {
	// LoadMessages returns the stored messages in stored order. found is
	// false when no document exists for userID.
	LoadMessages(ctx context.Context, userID string) (msgs []models.Message, found bool, err error)
	// AppendMessage union-appends msg; replaying the same message is a no-op.
	AppendMessage(ctx context.Context, userID string, msg models.Message) error
}

// Completer turns one user utterance into one reply.
// Implementations must return an error wrapping context.Canceled when ctx is cancelled.
type Completer interface {
	Complete(ctx context.Context, text string) (string, error)
}

// State is the lifecycle of the pending request slot.
type State int

const (
	Idle State = iota
	Requesting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	default:
		return "unknown"
	}
}

// Outcome is how a Request ended.
type Outcome int

const (
	OutcomePending Outcome = iota
	// OutcomeFulfilled: the reply was appended and queued for persistence.
	OutcomeFulfilled
	// OutcomeFailed: a synthetic error reply was appended (never persisted).
	OutcomeFailed
	// OutcomeCancelled: stopped by Cancel, Reset, Teardown, Initialize or by the completer itself.
	OutcomeCancelled
	// OutcomeSuperseded: a newer Send replaced the request; its result was discarded.
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeFulfilled:
		return "fulfilled"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the manager state handed to observers.
type Snapshot struct {
	Messages []models.Message
	State    State
	// UserID is empty when nobody is signed in.
	UserID string
	// Version increases with every change.
	Version uint64
}
