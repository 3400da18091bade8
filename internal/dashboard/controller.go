// Package dashboard drives the doctor's appointment view. Every trigger
// takes a new sequence number and only the result of the newest one is ever
// applied, whatever order the fetches complete in.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"clinic-dashboard/internal/metrics"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/schedule"
)

const DefaultTimeout = 10 * time.Second

// Fetcher loads the appointments for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q schedule.Query) ([]model.AppointmentRecord, error)
}

// Renderer shows a view state. It is called with the controller's lock held
// and must not call back into the controller.
type Renderer interface {
	Render(ViewState)
}

// TokenSource supplies the identity token read at every trigger.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that never changes.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type Option func(*Controller)

// WithDebounce delays search-triggered fetches until input has been quiet
// for d. Zero queries on every keystroke.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithTimeout bounds each fetch. Expiry is reported as a network failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithMetrics(m *metrics.DashboardMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

type Controller struct {
	fetcher  Fetcher
	tokens   TokenSource
	renderer Renderer

	debounce time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.DashboardMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	seq    uint64
	state  ViewState
	date   civil.Date
	search string
	timer  *time.Timer
	closed bool
}

func New(fetcher Fetcher, tokens TokenSource, renderer Renderer, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		tokens:   tokens,
		renderer: renderer,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = StaticToken("")
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.date = schedule.Today(c.now())
	return c
}

// Mount loads today's appointments with no filter.
func (c *Controller) Mount() {
	c.trigger("mount", false, func() {
		c.date = schedule.Today(c.now())
		c.search = ""
	})
}

// SetDate switches the view to d. An impossible date is rejected without
// touching the current view.
func (c *Controller) SetDate(d civil.Date) error {
	if !d.IsValid() {
		return fmt.Errorf("%w: %s", schedule.ErrInvalidDate, schedule.FormatDate(d))
	}
	c.trigger("date", false, func() { c.date = d })
	return nil
}

// SetSearch is one input event on the search box.
func (c *Controller) SetSearch(text string) {
	c.trigger("search", c.debounce > 0, func() { c.search = text })
}

// ResetToday moves the date back to today and keeps the search text.
func (c *Controller) ResetToday() {
	c.trigger("today", false, func() { c.date = schedule.Today(c.now()) })
}

// Refresh re-issues the current query.
func (c *Controller) Refresh() {
	c.trigger("refresh", false, func() {})
}

// State returns a copy of the current view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Selection returns the date and raw search text the next trigger builds on.
func (c *Controller) Selection() (civil.Date, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date, c.search
}

// Wait blocks until every issued fetch has resolved and no debounced search
// is pending. It must not race with new triggers.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops pending work. In-flight fetches are cancelled and their results
// dropped; later triggers do nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimer()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) trigger(name string, debounced bool, mutate func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	mutate()
	c.seq++
	seq := c.seq
	c.stopTimer()
	c.apply(ViewState{Kind: Loading, Seq: seq})

	q, err := schedule.BuildQuery(c.date, c.search, c.tokens.Token())
	if err != nil {
		c.logger.Warn("query not issued", zap.String("trigger", name), zap.Uint64("seq", seq), zap.Error(err))
		c.apply(failedState(seq, err))
		c.mu.Unlock()
		return
	}

	if debounced {
		c.wg.Add(1)
		c.timer = time.AfterFunc(c.debounce, func() {
			defer c.wg.Done()
			c.issue(name, seq, q)
		})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.issue(name, seq, q)
}

// stopTimer cancels a pending debounced search. Callers hold mu.
func (c *Controller) stopTimer() {
	if c.timer == nil {
		return
	}
	if c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
}

func (c *Controller) issue(name string, seq uint64, q schedule.Query) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	_, filtered := q.PatientName()
	c.logger.Debug("fetching appointments",
		zap.String("trigger", name),
		zap.Uint64("seq", seq),
		zap.String("date", q.DateKey()),
		zap.Bool("filtered", filtered),
	)
	c.metrics.ObserveIssued()

	go func() {
		defer c.wg.Done()
		start := time.Now()
		records, err := c.fetch(q)
		c.metrics.ObserveLatency(time.Since(start).Seconds())
		c.resolve(seq, records, err)
	}()
}

type fetchResult struct {
	records []model.AppointmentRecord
	err     error
}

// fetch runs one request under the timeout. A fetcher that ignores its
// context still yields a network failure once the deadline passes.
func (c *Controller) fetch(q schedule.Query) ([]model.AppointmentRecord, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		records, err := c.fetcher.Fetch(ctx, q)
		done <- fetchResult{records, err}
	}()

	select {
	case r := <-done:
		return r.records, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", schedule.ErrNetwork, ctx.Err())
	}
}

func (c *Controller) resolve(seq uint64, records []model.AppointmentRecord, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.seq {
		c.metrics.ObserveDiscarded()
		c.logger.Debug("stale result discarded", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		return
	}

	switch {
	case err != nil:
		c.logger.Warn("appointment fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		c.apply(failedState(seq, err))
	case len(records) == 0:
		c.apply(ViewState{Kind: Empty, Seq: seq})
	default:
		c.apply(ViewState{Kind: Populated, Records: records, Seq: seq})
	}
}

func failedState(seq uint64, err error) ViewState {
	return ViewState{Kind: Failed, Reason: schedule.ReasonOf(err), Err: err, Seq: seq}
}

// apply installs s and renders it. Callers hold mu.
func (c *Controller) apply(s ViewState) {
	c.state = s
	if s.Terminal() {
		c.metrics.ObserveOutcome(s.Kind.String())
	}
	if c.renderer != nil {
		c.renderer.Render(s.clone())
	}
}
