// Package writebehind runs best-effort side writes on a bounded worker pool.
// Callers never wait for a task and never learn its result: failures are
// delivered on an internal channel that only feeds logging and metrics.
package writebehind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// Task is one unit of best-effort work. The context carries the per-task
// write timeout.
type Task func(ctx context.Context) error

// Result labels reported to the Observer.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// Observer receives one call per finished or dropped task.
type Observer interface {
	ObserveStoreWrite(name, result string)
}

// Failure describes a task that returned an error or panicked.
type Failure struct {
	Name string
	Err  error
	At   time.Time
}

// Config controls the pool.
type Config struct {
	Workers int
	Timeout time.Duration
	// FailureBuffer bounds the failure channel; overflowing failures are only
	// counted, never block a worker.
	FailureBuffer int
}

// Writer owns the ants pool and the failure drain.
type Writer struct {
	pool     *ants.Pool
	timeout  time.Duration
	failures chan Failure
	done     chan struct{}
	drained  sync.WaitGroup
	logger   zerolog.Logger
	obs      Observer
	once     sync.Once
}

// New starts a Writer. obs may be nil.
func New(cfg Config, logger zerolog.Logger, obs Observer) (*Writer, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("writebehind: workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureBuffer <= 0 {
		cfg.FailureBuffer = 64
	}

	w := &Writer{
		timeout:  cfg.Timeout,
		failures: make(chan Failure, cfg.FailureBuffer),
		done:     make(chan struct{}),
		logger:   logger.With().Str("component", "writebehind").Logger(),
		obs:      obs,
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("writebehind: create pool: %w", err)
	}
	w.pool = pool

	w.drained.Add(1)
	go w.drain()
	return w, nil
}

// Submit schedules task and returns immediately. It reports false when the
// pool is saturated or closed; the task is then dropped.
func (w *Writer) Submit(name string, task Task) bool {
	err := w.pool.Submit(func() { w.run(name, task) })
	if err != nil {
		level := w.logger.Warn()
		if errors.Is(err, ants.ErrPoolClosed) {
			level = w.logger.Debug()
		}
		level.Err(err).Str("task", name).Msg("best-effort write dropped")
		w.observe(name, ResultDropped)
		return false
	}
	return true
}

// run executes one task. A panic is recovered here, not by the pool, so the
// failure keeps the task's name.
func (w *Writer) run(name string, task Task) {
	defer func() {
		if p := recover(); p != nil {
			w.fail(name, fmt.Errorf("task panicked: %v", p))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := task(ctx); err != nil {
		w.fail(name, err)
		return
	}
	w.observe(name, ResultOK)
}

// Running returns the number of tasks currently executing.
func (w *Writer) Running() int {
	return w.pool.Running()
}

// Close waits up to timeout for in-flight tasks and stops the drain.
func (w *Writer) Close(timeout time.Duration) error {
	var err error
	w.once.Do(func() {
		err = w.pool.ReleaseTimeout(timeout)
		close(w.done)
		w.drained.Wait()
	})
	return err
}

func (w *Writer) fail(name string, err error) {
	w.observe(name, ResultFailed)
	select {
	case w.failures <- Failure{Name: name, Err: err, At: time.Now()}:
	default:
		w.logger.Error().Err(err).Str("task", name).Msg("best-effort write failed (failure buffer full)")
	}
}

func (w *Writer) observe(name, result string) {
	if w.obs != nil {
		w.obs.ObserveStoreWrite(name, result)
	}
}

func (w *Writer) drain() {
	defer w.drained.Done()
	for {
		select {
		case f := <-w.failures:
			w.logger.Error().Err(f.Err).Str("task", f.Name).Time("at", f.At).Msg("best-effort write failed")
		case <-w.done:
			for {
				select {
				case f := <-w.failures:
					w.logger.Error().Err(f.Err).Str("task", f.Name).Time("at", f.At).Msg("best-effort write failed")
				default:
					return
				}
			}
		}
	}
}
