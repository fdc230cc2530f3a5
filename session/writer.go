package session

import (
	"context"
	"sync"
	"time"

	"doha-explorer/config"
	"doha-explorer/models"
)

type writeJob struct {
	userID  string
	message models.Message
	// barrier, when set, is closed once every earlier job finished.
	barrier chan struct{}
}

// writer issues store appends one at a time, in enqueue order, on its own
// goroutine. Enqueue never blocks on the store.
type writer struct {
	store       MessageStore
	timeout     time.Duration
	onPersisted func(userID string, msg models.Message, err error)

	mu     sync.Mutex
	queue  []writeJob
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newWriter(store MessageStore, timeout time.Duration, onPersisted func(string, models.Message, error)) *writer {
	w := &writer{
		store:       store,
		timeout:     timeout,
		onPersisted: onPersisted,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *writer) enqueue(userID string, msg models.Message) bool {
	return w.push(writeJob{userID: userID, message: msg})
}

func (w *writer) push(job writeJob) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, job)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// flush waits until every job enqueued before the call has been written.
func (w *writer) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !w.push(writeJob{barrier: barrier}) {
		return w.wait(ctx)
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs and waits for the queue to drain.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return w.wait(ctx)
}

func (w *writer) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) next() (writeJob, bool, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return writeJob{}, false, w.closed
	}
	job := w.queue[0]
	w.queue[0] = writeJob{}
	w.queue = w.queue[1:]
	return job, true, w.closed
}

func (w *writer) loop() {
	defer close(w.done)
	for {
		job, ok, closed := w.next()
		if !ok {
			if closed {
				return
			}
			<-w.wake
			continue
		}
		if job.barrier != nil {
			close(job.barrier)
			continue
		}
		w.write(job)
	}
}

func (w *writer) write(job writeJob) {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	err := w.store.AppendMessage(ctx, job.userID, job.message)
	if err != nil {
		// 저장 실패는 대화 화면에 영향을 주지 않는다. 새로고침 시 해당 메시지는 사라질 수 있다.
		config.ErrorWithFields("chat history append failed", config.Fields{
			"user_id":    job.userID,
			"message_id": job.message.ID,
			"sender":     string(job.message.Sender),
			"duration":   time.Since(start).String(),
			"error":      err.Error(),
		})
	} else {
		config.DebugWithFields("chat history appended", config.Fields{
			"user_id":    job.userID,
			"message_id": job.message.ID,
			"duration":   time.Since(start).String(),
		})
	}
	if w.onPersisted != nil {
		w.onPersisted(job.userID, job.message, err)
	}
}
