package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned when the delivery buffer has no room left.
var ErrQueueFull = errors.New("notification: delivery queue full")

const (
	defaultQueueSize    = 256
	defaultAttempts     = 3
	defaultRetryBackoff = 5 * time.Second
)

type queuedEmail struct {
	to      string
	subject string
	body    string
}

// Queue wraps an EmailSender with asynchronous delivery. Send enqueues
// and returns immediately; a single worker drains the buffer and retries
// failed deliveries a fixed number of times before dropping the message
// with a log entry. Close stops accepting mail, drains the buffer and
// closes the underlying sender.
type Queue struct {
	sender   EmailSender
	logger   zerolog.Logger
	jobs     chan queuedEmail
	wg       sync.WaitGroup
	attempts int
	backoff  time.Duration

	mu     sync.Mutex
	closed bool
}

// QueueOption tunes queue behaviour.
type QueueOption func(*Queue)

// WithQueueSize sets the buffer capacity.
func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.jobs = make(chan queuedEmail, n)
		}
	}
}

// WithAttempts sets how many delivery attempts are made per message.
func WithAttempts(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.attempts = n
		}
	}
}

// WithRetryBackoff sets the pause between delivery attempts.
func WithRetryBackoff(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d >= 0 {
			q.backoff = d
		}
	}
}

func NewQueue(sender EmailSender, logger zerolog.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		sender:   sender,
		logger:   logger.With().Str("component", "mail_queue").Logger(),
		jobs:     make(chan queuedEmail, defaultQueueSize),
		attempts: defaultAttempts,
		backoff:  defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Send enqueues the message for delivery. It never blocks on the
// transport; a full buffer or a closed queue is reported to the caller.
func (q *Queue) Send(_ context.Context, to, subject, body string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("notification: queue closed")
	}
	q.mu.Unlock()

	select {
	case q.jobs <- queuedEmail{to: to, subject: subject, body: body}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the worker after the buffer is drained and closes the
// underlying sender.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
	return q.sender.Close()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.deliver(job)
	}
}

func (q *Queue) deliver(job queuedEmail) {
	var err error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		err = q.sender.Send(context.Background(), job.to, job.subject, job.body)
		if err == nil {
			return
		}
		q.logger.Warn().
			Err(err).
			Str("to", job.to).
			Int("attempt", attempt).
			Msg("email delivery failed")
		if attempt < q.attempts {
			time.Sleep(q.backoff)
		}
	}
	q.logger.Error().
		Err(err).
		Str("to", job.to).
		Str("subject", job.subject).
		Msg("email dropped after retries")
}
