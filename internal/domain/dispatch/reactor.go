package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Observer receives one call per handled event plus fresh session gauges.
type Observer interface {
	ObserveEvent(event, outcome string, d time.Duration)
	SetSessions(kind string, n int)
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string, string, time.Duration) {}
func (nopObserver) SetSessions(string, int)                    {}

type job struct {
	ch    ChannelID
	ev    Inbound
	query func(*Hub)
	done  chan struct{}
}

// Reactor serializes every access to a Hub onto one goroutine.
type Reactor struct {
	hub     *Hub
	queue   chan job
	stopped chan struct{}
	logger  zerolog.Logger
	obs     Observer
}

// NewReactor wraps hub. obs may be nil.
func NewReactor(hub *Hub, queueSize int, logger zerolog.Logger, obs Observer) *Reactor {
	if queueSize <= 0 {
		queueSize = 1
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Reactor{
		hub:     hub,
		queue:   make(chan job, queueSize),
		stopped: make(chan struct{}),
		logger:  logger.With().Str("component", "reactor").Logger(),
		obs:     obs,
	}
}

// Run processes the queue until ctx is cancelled. Jobs still queued at that
// point are dropped.
func (r *Reactor) Run(ctx context.Context) error {
	defer close(r.stopped)
	r.logger.Info().Int("queue_size", cap(r.queue)).Msg("reactor started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Int("dropped", len(r.queue)).Msg("reactor stopped")
			return ctx.Err()
		case j := <-r.queue:
			if j.query != nil {
				r.runQuery(j)
				continue
			}
			r.handle(j.ch, j.ev)
		}
	}
}

// Submit enqueues an inbound event. It blocks while the queue is full and
// fails when ctx ends or the reactor has stopped.
func (r *Reactor) Submit(ctx context.Context, ch ChannelID, ev Inbound) error {
	if r.isStopped() {
		return ErrReactorStopped
	}
	select {
	case r.queue <- job{ch: ch, ev: ev}:
		return nil
	case <-r.stopped:
		return ErrReactorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn on the reactor goroutine and waits for it. fn must copy
// anything it wants to keep; Hub accessors already return copies.
func (r *Reactor) Query(ctx context.Context, fn func(h *Hub)) error {
	if r.isStopped() {
		return ErrReactorStopped
	}
	j := job{query: fn, done: make(chan struct{})}
	select {
	case r.queue <- j:
	case <-r.stopped:
		return ErrReactorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-j.done:
		return nil
	case <-r.stopped:
		return ErrReactorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reactor) isStopped() bool {
	select {
	case <-r.stopped:
		return true
	default:
		return false
	}
}

func (r *Reactor) runQuery(j job) {
	defer close(j.done)
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Msg("query panicked")
		}
	}()
	j.query(r.hub)
}

func (r *Reactor) handle(ch ChannelID, ev Inbound) Result {
	start := time.Now()
	res := r.safeHandle(ch, ev)

	name := "unknown"
	if ev != nil {
		name = ev.EventName()
	}
	r.obs.ObserveEvent(name, res.Outcome.String(), time.Since(start))
	r.publishCounts()

	switch res.Outcome {
	case Applied:
		r.logger.Debug().Str("event", name).Str("channel", string(ch)).Msg("event applied")
	case Ignored:
		r.logger.Warn().Str("event", name).Str("channel", string(ch)).Str("reason", res.Reason).Msg("event ignored")
	case Failed:
		r.logger.Error().Err(res.Err).Str("event", name).Str("channel", string(ch)).Msg("event failed")
	}
	return res
}

func (r *Reactor) safeHandle(ch ChannelID, ev Inbound) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = failed(fmt.Errorf("handler panic: %v", p))
		}
	}()
	return r.hub.Handle(ch, ev)
}

func (r *Reactor) publishCounts() {
	c := r.hub.Counts()
	r.obs.SetSessions("driver", c.Drivers)
	r.obs.SetSessions("patient", c.Patients)
	r.obs.SetSessions("hospital", c.Hospitals)
}
