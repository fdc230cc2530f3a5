package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"doha-explorer/models"
)

type memoryStore struct {
	mu        sync.Mutex
	docs      map[string][]models.Message
	loadErr   error
	appendErr error
	loads     int
	appends   int

	// gate, when set, blocks LoadMessages until closed.
	gate        chan struct{}
	loadStarted chan string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string][]models.Message)}
}

func (s *memoryStore) LoadMessages(ctx context.Context, userID string) ([]models.Message, bool, error) {
	s.mu.Lock()
	s.loads++
	gate, started := s.gate, s.loadStarted
	s.mu.Unlock()

	if started != nil {
		started <- userID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	msgs, ok := s.docs[userID]
	if !ok {
		return nil, false, nil
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, true, nil
}

func (s *memoryStore) AppendMessage(_ context.Context, userID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if s.appendErr != nil {
		return s.appendErr
	}
	for _, existing := range s.docs[userID] {
		if existing.ID == msg.ID {
			return nil
		}
	}
	s.docs[userID] = append(s.docs[userID], msg)
	return nil
}

func (s *memoryStore) stored(userID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.docs[userID]))
	copy(out, s.docs[userID])
	return out
}

func (s *memoryStore) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

type completion struct {
	reply string
	err   error
}

type call struct {
	text   string
	ctx    context.Context
	result chan completion
}

func (c *call) respond(reply string, err error) {
	c.result <- completion{reply: reply, err: err}
}

// scriptedCompleter hands every call to the test through calls; the test
// decides when and how it resolves.
type scriptedCompleter struct {
	calls chan *call
	// ignoreCancel makes Complete wait for the scripted result even after
	// its context was cancelled, simulating a late response.
	ignoreCancel bool
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{calls: make(chan *call, 16)}
}

func (s *scriptedCompleter) Complete(ctx context.Context, text string) (string, error) {
	c := &call{text: text, ctx: ctx, result: make(chan completion, 1)}
	s.calls <- c
	if s.ignoreCancel {
		r := <-c.result
		return r.reply, r.err
	}
	select {
	case r := <-c.result:
		return r.reply, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("chat request: %w", ctx.Err())
	}
}

func (s *scriptedCompleter) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion call")
		return nil
	}
}

// echoCompleter answers immediately.
type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, text string) (string, error) {
	return "echo: " + text, nil
}

func waitOutcome(t *testing.T, req *Request) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := req.Wait(ctx)
	if err != nil {
		t.Fatalf("request %q did not resolve: %v", req.Input(), err)
	}
	return outcome
}

func flush(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = string(msg.Sender) + ":" + msg.Text
	}
	return out
}
