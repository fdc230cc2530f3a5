package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"doha-explorer/config"
	"doha-explorer/identity"
	"doha-explorer/models"
)

const defaultTitle = "New Exploration"

// Manager is the conversation session of one client.
//
// All mutations happen under mu. Store and completion I/O never runs under
// the lock; asynchronous results re-check that their request is still the
// pending one before touching the conversation.
type Manager struct {
	store     MessageStore
	completer Completer
	opts      options
	writer    *writer

	mu           sync.Mutex
	conversation []models.Message
	identity     *identity.Identity
	// epoch changes whenever the conversation is replaced wholesale
	// (Initialize, Reset, Teardown). Hydration results from an older epoch are dropped.
	epoch   uint64
	pending *Request
	nextID  uint64
	closed  bool
	version uint64

	// notifyMu serializes observer calls; lastNotified drops snapshots older
	// than one already delivered.
	notifyMu     sync.Mutex
	lastNotified uint64
}

func NewManager(store MessageStore, completer Completer, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.resetGreeting == "" {
		o.resetGreeting = o.greeting
	}
	if o.now == nil {
		o.now = defaultOptions().now
	}

	m := &Manager{
		store:     store,
		completer: completer,
		opts:      o,
		writer:    newWriter(store, o.storeTimeout, o.onPersisted),
	}
	m.conversation = []models.Message{m.seed(o.greeting)}
	return m
}

func (m *Manager) seed(text string) models.Message {
	return models.NewMessage(models.SenderBot, text, m.opts.now())
}

// Initialize binds the session to id and hydrates its conversation.
//
// Any in-flight request is cancelled and the conversation restarts from the
// greeting. For a non-nil id the stored history replaces it when present.
// A store failure is logged and returned wrapped in ErrHydration; the
// conversation then stays at the greeting and the session remains usable.
func (m *Manager) Initialize(ctx context.Context, id *identity.Identity) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.dropPendingLocked(OutcomeCancelled)
	m.epoch++
	epoch := m.epoch
	if id == nil {
		m.identity = nil
	} else {
		cp := *id
		m.identity = &cp
	}
	seed := m.seed(m.opts.greeting)
	m.conversation = []models.Message{seed}
	m.unlockAndNotify()

	if id == nil {
		return nil
	}

	loadCtx := ctx
	if m.opts.storeTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, m.opts.storeTimeout)
		defer cancel()
	}
	stored, found, err := m.store.LoadMessages(loadCtx, id.UserID)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		config.DebugWithFields("chat history hydration discarded", config.Fields{"user_id": id.UserID})
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		config.ErrorWithFields("chat history hydration failed", config.Fields{
			"user_id": id.UserID,
			"error":   err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrHydration, err)
	}
	if !found || len(stored) == 0 {
		m.mu.Unlock()
		config.DebugWithFields("no chat history found", config.Fields{"user_id": id.UserID})
		return nil
	}

	m.conversation = mergeHydrated(stored, m.conversation[1:])
	config.DebugWithFields("chat history hydrated", config.Fields{
		"user_id":  id.UserID,
		"messages": len(m.conversation),
	})
	m.unlockAndNotify()
	return nil
}

// mergeHydrated returns the stored messages in stored order followed by the
// messages sent locally while the read was in flight. Messages present in
// both are kept once, at their stored position.
func mergeHydrated(stored, local []models.Message) []models.Message {
	out := make([]models.Message, 0, len(stored)+len(local))
	seen := make(map[string]struct{}, len(stored)+len(local))
	for _, msg := range stored {
		msg = msg.Normalize()
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		out = append(out, msg)
	}
	for _, msg := range local {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		out = append(out, msg)
	}
	return out
}

// Send appends text as a user message and asks the completer for a reply.
//
// It returns (nil, false) without side effects when the trimmed text is
// empty or nobody is signed in. Otherwise the user message is visible before
// Send returns, any previous request is cancelled, the message is queued
// for persistence and the completion runs in the background.
func (m *Manager) Send(text string) (*Request, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	m.mu.Lock()
	if m.closed || m.identity == nil {
		m.mu.Unlock()
		return nil, false
	}
	userID := m.identity.UserID

	msg := models.NewMessage(models.SenderUser, trimmed, m.opts.now())
	m.conversation = append(m.conversation, msg)

	m.dropPendingLocked(OutcomeSuperseded)
	m.writer.enqueue(userID, msg)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.opts.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.opts.requestTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	m.nextID++
	req := newRequest(ctx, cancel, m.nextID, msg)
	m.pending = req
	m.unlockAndNotify()

	go m.run(req, userID)
	return req, true
}

func (m *Manager) run(req *Request, userID string) {
	reply, err := m.completer.Complete(req.ctx, req.input)
	m.resolve(req, userID, reply, err)
}

func (m *Manager) resolve(req *Request, userID, reply string, err error) {
	defer req.cancel()

	m.mu.Lock()
	if m.pending != req {
		// 이미 새 요청이나 reset/teardown 으로 교체된 요청: 결과를 버린다.
		outcome := req.stopReason
		m.mu.Unlock()
		config.DebugWithFields("stale completion discarded", config.Fields{
			"request_id": req.id,
			"outcome":    outcome.String(),
		})
		req.finish(outcome, nil, err)
		return
	}
	m.pending = nil

	switch {
	case err == nil:
		bot := models.NewMessage(models.SenderBot, reply, m.opts.now())
		m.conversation = append(m.conversation, bot)
		m.writer.enqueue(userID, bot)
		m.unlockAndNotify()
		req.finish(OutcomeFulfilled, &bot, nil)

	case isCancellation(req.ctx, err):
		m.unlockAndNotify()
		config.DebugWithFields("completion cancelled", config.Fields{"request_id": req.id})
		req.finish(OutcomeCancelled, nil, err)

	default:
		failure := models.NewMessage(models.SenderBot, m.opts.errorReply, m.opts.now())
		m.conversation = append(m.conversation, failure)
		m.unlockAndNotify()
		config.ErrorWithFields("completion failed", config.Fields{
			"request_id": req.id,
			"user_id":    userID,
			"error":      err.Error(),
		})
		req.finish(OutcomeFailed, &failure, err)
	}
}

// isCancellation separates an aborted request from an ordinary failure.
// A deadline is an ordinary failure: the user should see a retry hint.
func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.Canceled) {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// dropPendingLocked cancels the pending request and records why. Caller holds mu.
func (m *Manager) dropPendingLocked(reason Outcome) {
	if m.pending == nil {
		return
	}
	m.pending.stopReason = reason
	m.pending.cancel()
	m.pending = nil
}

// Cancel stops the in-flight request, if any. The conversation is not changed.
func (m *Manager) Cancel() {
	m.mu.Lock()
	if m.pending == nil {
		m.mu.Unlock()
		return
	}
	m.dropPendingLocked(OutcomeCancelled)
	m.unlockAndNotify()
}

// Reset cancels any in-flight request and starts a new conversation holding
// only the reset greeting. The persisted history is left untouched.
func (m *Manager) Reset() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.dropPendingLocked(OutcomeCancelled)
	m.epoch++
	m.conversation = []models.Message{m.seed(m.opts.resetGreeting)}
	m.unlockAndNotify()
}

// Teardown cancels any in-flight request and forgets the identity and the
// conversation, so nothing leaks to the next user of the device.
func (m *Manager) Teardown() {
	m.mu.Lock()
	m.teardownLocked()
	m.unlockAndNotify()
}

func (m *Manager) teardownLocked() {
	m.dropPendingLocked(OutcomeCancelled)
	m.epoch++
	m.identity = nil
	m.conversation = nil
}

// Watch applies identity changes from events until ctx is done or events is
// closed: a non-nil identity initializes the session, nil tears it down.
func (m *Manager) Watch(ctx context.Context, events <-chan *identity.Identity) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-events:
			if !ok {
				return nil
			}
			if id == nil {
				m.Teardown()
				continue
			}
			// hydration failures are logged by Initialize and keep the greeting
			_ = m.Initialize(ctx, id)
		}
	}
}

// Flush waits until every message queued for persistence so far was written
// (or failed). Conversation updates never wait for this.
func (m *Manager) Flush(ctx context.Context) error {
	return m.writer.flush(ctx)
}

// Close tears the session down and drains the persistence queue.
// The manager rejects further sends afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.teardownLocked()
	m.closed = true
	m.unlockAndNotify()
	return m.writer.close(ctx)
}

// Messages returns a copy of the conversation.
func (m *Manager) Messages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyMessages(m.conversation)
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Busy reports whether a completion is in flight.
func (m *Manager) Busy() bool { return m.State() == Requesting }

// Identity returns the bound identity or nil.
func (m *Manager) Identity() *identity.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	cp := *m.identity
	return &cp
}

// Title is the text of the first user message, used to label the conversation.
func (m *Manager) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.conversation {
		if msg.IsUser() {
			return msg.Text
		}
	}
	return defaultTitle
}

func (m *Manager) stateLocked() State {
	if m.pending != nil {
		return Requesting
	}
	return Idle
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Messages: copyMessages(m.conversation),
		State:    m.stateLocked(),
		Version:  m.version,
	}
	if m.identity != nil {
		snap.UserID = m.identity.UserID
	}
	return snap
}

// unlockAndNotify records a state change, releases mu and hands the new
// snapshot to the observer. Observers never receive an older snapshot after
// a newer one.
func (m *Manager) unlockAndNotify() {
	m.version++
	if m.opts.onChange == nil {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if snap.Version <= m.lastNotified {
		return
	}
	m.lastNotified = snap.Version
	m.opts.onChange(snap)
}

func copyMessages(msgs []models.Message) []models.Message {
	if msgs == nil {
		return nil
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}
