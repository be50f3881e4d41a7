package combat

import (
	"context"
	"sync"
	"time"
)

// Run steps the battle until it finishes or ctx is cancelled. Cancellation is
// only observed between stack-turns.
func (m *Manager) Run(ctx context.Context) error {
	for !m.CombatIsFinished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Step()
	}
	return nil
}

// AutoRunner steps a battle on a background goroutine with an optional delay
// between stack-turns. The manager must not be touched by anyone else until
// Done is closed.
type AutoRunner struct {
	m     *Manager
	delay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	running bool
}

func NewAutoRunner(m *Manager, delay time.Duration) *AutoRunner {
	return &AutoRunner{m: m, delay: delay}
}

// Start begins stepping. Calling Start on a running runner does nothing.
func (r *AutoRunner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.err = nil
	r.running = true

	go r.loop(ctx, r.done)
}

func (r *AutoRunner) loop(ctx context.Context, done chan struct{}) {
	var err error
	defer func() {
		r.mu.Lock()
		r.err = err
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	for {
		if err = ctx.Err(); err != nil {
			return
		}
		if !r.m.Step() {
			return
		}
		if r.delay <= 0 {
			continue
		}
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			return
		case <-timer.C:
		}
	}
}

// Stop interrupts the runner after the current stack-turn and waits for it.
// A stopped battle resumes from the same stack on the next Start.
func (r *AutoRunner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current run ends.
func (r *AutoRunner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns why the last run stopped, nil if the battle finished.
func (r *AutoRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *AutoRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
