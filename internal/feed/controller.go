package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/core/state"
)

// Controller runs the periodic fetch pipeline and publishes its outcomes.
// It has two states: active from construction, and disposed after Dispose.
type Controller struct {
	id         string
	remote     RemoteSource
	local      LocalSource
	defaultMsg domain.MessageRef
	state      *state.Latest[domain.Result]
	observer   Observer
	log        *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	outcomes chan outcome
	wg       sync.WaitGroup

	disposeOnce sync.Once
	disposed    atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithObserver registers pipeline hooks.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithState publishes into s instead of a fresh holder. The controller takes
// ownership and closes s on Dispose.
func WithState(s *state.Latest[domain.Result]) Option {
	return func(c *Controller) {
		if s != nil {
			c.state = s
		}
	}
}

type outcome struct {
	tick domain.Tick
	fact domain.Fact
	err  error
}

// NewController creates a controller and starts its pipeline.
func NewController(
	remote RemoteSource,
	local LocalSource,
	defaultMsg domain.MessageRef,
	opts ...Option,
) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		id:         uuid.New().String(),
		remote:     remote,
		local:      local,
		defaultMsg: defaultMsg,
		state:      state.NewLatest[domain.Result](),
		observer:   nopObserver{},
		log:        slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
		outcomes:   make(chan outcome, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "feed", "subscription", c.id)

	c.wg.Add(2)
	go c.runTicks()
	go c.runDelivery()

	c.log.Info("Fact feed started")
	return c
}

// ID returns the identifier of the active subscription.
func (c *Controller) ID() string {
	return c.id
}

// State returns the published result holder. Consumers must only read it.
func (c *Controller) State() *state.Latest[domain.Result] {
	return c.state
}

// Current returns the latest published result, if any.
func (c *Controller) Current() (domain.Result, bool) {
	res, version := c.state.Get()
	return res, version > 0
}

// Disposed reports whether Dispose has been called.
func (c *Controller) Disposed() bool {
	return c.disposed.Load()
}

// Dispose cancels the pipeline. When it returns nothing more is published.
// Fetches that ignore cancellation keep running but their results are dropped.
// Safe to call more than once.
func (c *Controller) Dispose() {
	c.disposeOnce.Do(func() {
		c.disposed.Store(true)
		c.cancel()
		c.wg.Wait()
		c.state.Close()
		c.log.Info("Fact feed disposed")
	})
}

// runTicks spawns one background fetch per tick.
func (c *Controller) runTicks() {
	defer c.wg.Done()

	ticks := c.local.Ticks(c.ctx)
	for {
		select {
		case <-c.ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				c.log.Warn("Tick stream closed")
				return
			}
			c.observer.TickReceived(tick)
			go c.process(tick)
		}
	}
}

// runDelivery is the only writer of the published state.
func (c *Controller) runDelivery() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case o := <-c.outcomes:
			// Both cases may be ready at once; disposal wins
			if c.ctx.Err() != nil {
				return
			}
			c.publish(o)
		}
	}
}

func (c *Controller) process(tick domain.Tick) {
	fact, err := c.fetch(tick)

	select {
	case c.outcomes <- outcome{tick: tick, fact: fact, err: err}:
	case <-c.ctx.Done():
		c.log.Debug("Dropping outcome after dispose", "tick", tick.Seq)
	}
}

// fetch tries the remote source and falls back to a local fact on any error.
func (c *Controller) fetch(tick domain.Tick) (domain.Fact, error) {
	start := time.Now()
	fact, err := c.remote.FetchFact(c.ctx)
	c.observer.RemoteFetched(time.Since(start), err)
	if err == nil {
		return fact, nil
	}

	c.log.Warn("Remote fetch failed, using local fact", "tick", tick.Seq, "error", err)
	c.observer.FallbackUsed(err)

	return c.local.FallbackFact(c.ctx)
}

func (c *Controller) publish(o outcome) {
	var res domain.Result
	if o.err != nil {
		c.log.Error("Fact pipeline failed", "tick", o.tick.Seq, "error", o.err)
		res = Classify(o.err, c.defaultMsg)
	} else {
		res = domain.Success{Fact: o.fact}
	}

	c.state.Set(res)
	c.observer.ResultPublished(res)
	c.log.Debug("Published result", "tick", o.tick.Seq, "kind", domain.KindOf(res))
}
