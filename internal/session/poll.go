package session

import (
	"context"
	"sync"
	"time"

	"vatelanka-driver/internal/models"
)

// Outcome is how a Poll ended
type Outcome int

const (
	Pending Outcome = iota
	Found
	Exhausted
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// PollResult is the terminal state of a Poll
type PollResult struct {
	Outcome  Outcome
	Session  *models.Session
	Attempts int
}

// CheckFunc looks for a session once. A nil session means try again.
type CheckFunc func(ctx context.Context) (*models.Session, error)

// Poll runs a check every interval until it finds a session, runs out of
// attempts, or is cancelled. Exhaustion is a normal outcome, not an error.
type Poll struct {
	interval    time.Duration
	maxAttempts int
	check       CheckFunc

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result PollResult
}

// StartPoll begins polling in the background. onDone, if set, is called once
// with the final result.
func StartPoll(parent context.Context, interval time.Duration, maxAttempts int, check CheckFunc, onDone func(PollResult)) *Poll {
	ctx, cancel := context.WithCancel(parent)
	p := &Poll{
		interval:    interval,
		maxAttempts: maxAttempts,
		check:       check,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go p.run(ctx, onDone)
	return p
}

func (p *Poll) run(ctx context.Context, onDone func(PollResult)) {
	defer close(p.done)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	attempts := 0
	result := PollResult{Outcome: Exhausted}

loop:
	for attempts < p.maxAttempts {
		select {
		case <-ctx.Done():
			result.Outcome = Cancelled
			break loop
		case <-t.C:
		}

		attempts++
		s, err := p.check(ctx)
		if ctx.Err() != nil {
			result.Outcome = Cancelled
			break
		}
		if err == nil && s != nil {
			result = PollResult{Outcome: Found, Session: s}
			break
		}
	}
	result.Attempts = attempts

	p.mu.Lock()
	p.result = result
	p.mu.Unlock()

	p.cancel()
	if onDone != nil {
		onDone(result)
	}
}

// Cancel stops the poll. Calling it more than once, or after the poll ended, is a no-op.
func (p *Poll) Cancel() {
	p.cancel()
}

// Wait blocks until the poll has ended and returns its result
func (p *Poll) Wait(ctx context.Context) (PollResult, error) {
	select {
	case <-p.done:
		return p.Result(), nil
	case <-ctx.Done():
		return PollResult{}, ctx.Err()
	}
}

// Done is closed when the poll has ended
func (p *Poll) Done() <-chan struct{} {
	return p.done
}

// Result returns the final result, or a Pending one while still running
func (p *Poll) Result() PollResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}
