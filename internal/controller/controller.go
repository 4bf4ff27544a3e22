// Package controller debounces markdown and config edits into renders.
//
// A Controller holds the latest known markdown and config, coalesces bursts
// of updates, dispatches renders tagged with a strictly increasing token and
// keeps only the result of the newest dispatch. Every state change is
// published as a Snapshot.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/pubsub"
	"github.com/zjrosen/slidepipe/internal/slides"
)

// DefaultDebounce is the quiet period applied to updates.
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned by Activate after Close.
var ErrClosed = errors.New("controller closed")

// Engine is the rendering backend a Controller drives.
type Engine interface {
	Initialize(ctx context.Context) error
	Render(ctx context.Context, markdown string, cfg slides.Config) (*slides.Result, error)
}

// Token identifies one dispatched render.
type Token uint64

// Options configures a Controller.
type Options struct {
	// Debounce is the quiet period; zero uses DefaultDebounce.
	Debounce time.Duration
	// AutoInitialize activates the controller on the first update or refresh.
	AutoInitialize bool
	// Config is the initial render config; the zero value uses
	// slides.DefaultConfig.
	Config slides.Config
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	ID            string
	Phase         Phase
	Result        *slides.Result
	Err           error
	IsLoading     bool
	IsInitialized bool
	HasRendered   bool
	Token         Token
	// CurrentIndex is the 1-based slide position, 0 when nothing is rendered.
	CurrentIndex int
}

type input struct {
	markdown string
	cfg      slides.Config
}

func (in input) equal(other input) bool {
	return in.markdown == other.markdown && string(in.cfg.Canonical()) == string(other.cfg.Canonical())
}

// Controller coalesces updates and renders through an Engine.
type Controller struct {
	id       string
	engine   Engine
	debounce time.Duration
	autoInit bool
	broker   *pubsub.Broker[Snapshot]

	// ctx scopes renders and auto-activation; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	machine     *Machine
	latest      input
	hasMarkdown bool
	dispatched  input
	hasDispatch bool
	timer       *time.Timer
	timerSeq    uint64
	token       Token
	epoch       uint64
	result      *slides.Result
	err         error
	index       int
	closed      bool
	// initFailed blocks auto-activation until Activate, Refresh or Reset.
	initFailed bool
}

// New returns a controller in PhaseUninitialized.
func New(engine Engine, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Config == (slides.Config{}) {
		opts.Config = slides.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:       uuid.NewString(),
		engine:   engine,
		debounce: opts.Debounce,
		autoInit: opts.AutoInitialize,
		broker:   pubsub.NewBroker[Snapshot](),
		ctx:      ctx,
		cancel:   cancel,
		machine:  NewMachine(),
		latest:   input{cfg: opts.Config},
	}
	c.publishLocked(pubsub.CreatedEvent)
	return c
}

// ID returns the controller's unique id.
func (c *Controller) ID() string {
	return c.id
}

// Config returns the latest known config.
func (c *Controller) Config() slides.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest.cfg
}

// Activate initializes the engine. Content received while initializing is
// rendered as soon as initialization succeeds. Activating a controller that
// is already initializing or ready is a no-op.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.machine.Phase() != PhaseUninitialized {
		c.mu.Unlock()
		return nil
	}
	c.fireLocked(EventActivate)
	c.err = nil
	c.initFailed = false
	epoch := c.epoch
	c.publishLocked(pubsub.StateChangedEvent)
	c.mu.Unlock()

	log.Debug(log.CatController, "activating", "id", c.id)
	err := c.engine.Initialize(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || epoch != c.epoch {
		// Reset or Close ran while initializing.
		return err
	}
	if err != nil {
		c.fireLocked(EventInitFailed)
		c.err = err
		c.initFailed = true
		c.publishLocked(pubsub.RenderErrorEvent)
		log.ErrorErr(log.CatController, "activation failed", err, "id", c.id)
		return err
	}
	c.fireLocked(EventInitSucceeded)
	if c.hasMarkdown {
		c.stopTimerLocked()
		c.dispatchLocked()
		return nil
	}
	c.publishLocked(pubsub.StateChangedEvent)
	return nil
}

// UpdateMarkdown records new markdown and schedules a render.
func (c *Controller) UpdateMarkdown(markdown string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.hasMarkdown && markdown == c.latest.markdown {
		return
	}
	c.latest.markdown = markdown
	c.hasMarkdown = true
	c.scheduleLocked()
}

// UpdateConfig applies p to the latest config and schedules a render. An
// invalid patch is rejected and changes nothing.
func (c *Controller) UpdateConfig(p slides.Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	next, err := c.latest.cfg.WithOverrides(p)
	if err != nil {
		return err
	}
	if string(next.Canonical()) == string(c.latest.cfg.Canonical()) {
		return nil
	}
	c.latest.cfg = next
	if c.hasMarkdown {
		c.scheduleLocked()
	}
	return nil
}

// Refresh cancels a pending debounce and renders the latest values now, even
// when they match the current result.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTimerLocked()
	switch phase := c.machine.Phase(); {
	case phase == PhaseUninitialized:
		c.initFailed = false
		c.autoActivateLocked()
	case phase.IsReady() && c.hasMarkdown:
		c.dispatchLocked()
	}
}

// Reset discards the result, the error and any in-flight render and returns
// the controller to PhaseUninitialized. The latest markdown and config are
// kept for the next activation.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopTimerLocked()
	c.fireLocked(EventReset)
	c.token++
	c.epoch++
	c.result = nil
	c.err = nil
	c.index = 0
	c.hasDispatch = false
	c.initFailed = false
	c.publishLocked(pubsub.StateChangedEvent)
	log.Debug(log.CatController, "reset", "id", c.id, "token", c.token)
}

// Close stops the controller, waits for in-flight renders and closes every
// subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.token++
	c.cancel()
	c.publishLocked(pubsub.ControllerDoneEvent)
	c.mu.Unlock()

	c.wg.Wait()
	c.broker.Close()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the latest one.
// The channel closes when ctx is cancelled or the controller is closed.
func (c *Controller) Subscribe(ctx context.Context) <-chan pubsub.Event[Snapshot] {
	return c.broker.SubscribeWithReplay(ctx)
}

// Listener returns a bubbletea listener over the snapshot stream.
func (c *Controller) Listener(ctx context.Context) *pubsub.ContinuousListener[Snapshot] {
	return pubsub.NewReplayListener(ctx, c.broker)
}

func (c *Controller) scheduleLocked() {
	switch c.machine.Phase() {
	case PhaseUninitialized:
		c.autoActivateLocked()
		return
	case PhaseInitializing:
		// Rendered once initialization succeeds.
		return
	}

	c.stopTimerLocked()
	c.timerSeq++
	seq := c.timerSeq
	c.timer = time.AfterFunc(c.debounce, func() { c.onTimer(seq) })
}

func (c *Controller) onTimer(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.timerSeq {
		return
	}
	c.timer = nil
	if !c.machine.Phase().IsReady() {
		return
	}
	if c.hasDispatch && c.latest.equal(c.dispatched) {
		log.Debug(log.CatController, "debounce fired with nothing new", "id", c.id)
		return
	}
	c.dispatchLocked()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// Invalidate a callback that already fired and is waiting on the lock.
	c.timerSeq++
}

// autoActivateLocked starts initialization in the background. A failed
// initialization is not retried until the caller asks again.
func (c *Controller) autoActivateLocked() {
	if !c.autoInit || c.initFailed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.Activate(c.ctx)
	}()
}

func (c *Controller) dispatchLocked() {
	c.fireLocked(EventDispatch)
	c.token++
	tok := c.token
	in := c.latest
	c.dispatched = in
	c.hasDispatch = true
	c.publishLocked(pubsub.StateChangedEvent)
	log.Debug(log.CatController, "dispatch", "id", c.id, "token", tok, "markdown_len", len(in.markdown))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(tok, in)
	}()
}

func (c *Controller) run(tok Token, in input) {
	res, err := c.engine.Render(c.ctx, in.markdown, in.cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || tok != c.token {
		log.Debug(log.CatController, "dropping superseded render", "id", c.id, "token", tok, "current", c.token)
		return
	}
	if err != nil {
		c.fireLocked(EventRenderFailed)
		c.err = err
		c.publishLocked(pubsub.RenderErrorEvent)
		log.ErrorErr(log.CatController, "render failed", err, "id", c.id, "token", tok)
		return
	}
	c.fireLocked(EventRenderSucceeded)
	c.result = res
	c.err = nil
	c.clampIndexLocked()
	c.publishLocked(pubsub.ResultEvent)
}

func (c *Controller) fireLocked(ev Event) {
	from := c.machine.Phase()
	to, err := c.machine.Fire(ev)
	if err != nil {
		log.Warn(log.CatController, "ignored event", "id", c.id, "event", ev, "phase", from)
		return
	}
	if from != to {
		log.Debug(log.CatController, "transition", "id", c.id, "from", from, "event", ev, "to", to)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	phase := c.machine.Phase()
	return Snapshot{
		ID:            c.id,
		Phase:         phase,
		Result:        c.result,
		Err:           c.err,
		IsLoading:     phase.IsLoading(),
		IsInitialized: phase.IsReady(),
		HasRendered:   c.result != nil,
		Token:         c.token,
		CurrentIndex:  c.index,
	}
}

func (c *Controller) publishLocked(eventType pubsub.EventType) {
	c.broker.Publish(eventType, c.snapshotLocked())
}
