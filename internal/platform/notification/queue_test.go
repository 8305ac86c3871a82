package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// flakySender fails the first failUntil deliveries, then succeeds.
type flakySender struct {
	mu        sync.Mutex
	failUntil int
	calls     int
	sent      []SentEmail
}

func (s *flakySender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failUntil {
		return errors.New("connection refused")
	}
	s.sent = append(s.sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *flakySender) Close() error { return nil }

func (s *flakySender) snapshot() (int, []SentEmail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]SentEmail(nil), s.sent...)
}

func TestQueueDeliversAsync(t *testing.T) {
	sender := &flakySender{}
	q := NewQueue(sender, zerolog.Nop(), WithRetryBackoff(0))

	if err := q.Send(context.Background(), "a@b.com", "hi", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	calls, sent := sender.snapshot()
	if calls != 1 || len(sent) != 1 {
		t.Fatalf("calls = %d, sent = %d", calls, len(sent))
	}
	if sent[0].To != "a@b.com" || sent[0].Subject != "hi" {
		t.Fatalf("sent = %+v", sent[0])
	}
}

func TestQueueRetriesTransientFailure(t *testing.T) {
	sender := &flakySender{failUntil: 2}
	q := NewQueue(sender, zerolog.Nop(), WithAttempts(3), WithRetryBackoff(0))

	if err := q.Send(context.Background(), "a@b.com", "hi", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	calls, sent := sender.snapshot()
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sent))
	}
}

func TestQueueDropsAfterExhaustedRetries(t *testing.T) {
	sender := &flakySender{failUntil: 10}
	q := NewQueue(sender, zerolog.Nop(), WithAttempts(2), WithRetryBackoff(0))

	if err := q.Send(context.Background(), "a@b.com", "hi", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	calls, sent := sender.snapshot()
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(sent) != 0 {
		t.Fatalf("sent = %d, want 0", len(sent))
	}
}

func TestQueueFullRejectsWithoutBlocking(t *testing.T) {
	block := make(chan struct{})
	sender := &blockingSender{started: make(chan struct{}), release: block}
	q := NewQueue(sender, zerolog.Nop(), WithQueueSize(1), WithRetryBackoff(0))
	defer func() {
		close(block)
		q.Close()
	}()

	// First message occupies the worker, second fills the buffer.
	if err := q.Send(context.Background(), "a@b.com", "1", "x"); err != nil {
		t.Fatalf("Send 1: %v", err)
	}
	sender.waitStarted(t)
	if err := q.Send(context.Background(), "a@b.com", "2", "x"); err != nil {
		t.Fatalf("Send 2: %v", err)
	}
	if err := q.Send(context.Background(), "a@b.com", "3", "x"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Send 3 err = %v, want ErrQueueFull", err)
	}
}

func TestQueueSendAfterClose(t *testing.T) {
	q := NewQueue(&flakySender{}, zerolog.Nop())
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Send(context.Background(), "a@b.com", "hi", "x"); err == nil {
		t.Fatal("expected error after Close")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// blockingSender parks the worker until released so buffer behaviour can
// be observed deterministically.
type blockingSender struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *blockingSender) Send(_ context.Context, _, _, _ string) error {
	s.once.Do(func() {
		if s.started != nil {
			close(s.started)
		}
	})
	<-s.release
	return nil
}

func (s *blockingSender) Close() error { return nil }

func (s *blockingSender) waitStarted(t *testing.T) {
	t.Helper()
	if s.started == nil {
		t.Fatal("started channel not set")
	}
	select {
	case <-s.started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up a message")
	}
}
