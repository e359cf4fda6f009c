package runlog

import (
	"context"
	"sync"
	"time"
)

// Quantity is a named time series gathered during a run. Sample is
// called once per manager tick (or every n ticks when registered with
// an interval) and returns the current value.
type Quantity interface {
	Name() string
	Unit() string
	Description() string
	Sample(ctx context.Context) (float64, error)
}

// Sampled adapts a plain function into a Quantity.
type Sampled struct {
	name        string
	unit        string
	description string
	fn          func(context.Context) (float64, error)
}

// NewSampled builds a func-backed quantity. The unit is a free-form
// label ("1" for dimensionless, "s" for seconds).
func NewSampled(name, unit, description string, fn func(context.Context) (float64, error)) *Sampled {
	return &Sampled{name: name, unit: unit, description: description, fn: fn}
}

func (s *Sampled) Name() string        { return s.name }
func (s *Sampled) Unit() string        { return s.unit }
func (s *Sampled) Description() string { return s.description }

func (s *Sampled) Sample(ctx context.Context) (float64, error) {
	return s.fn(ctx)
}

// IntervalTimer accumulates wall time between Start and Stop calls.
// Each sample drains the accumulator, so the recorded series is the
// time spent in timed sections since the previous tick. Typical use is
// timing visualization or I/O inside the step loop.
type IntervalTimer struct {
	name        string
	description string

	mu      sync.Mutex
	running bool
	started time.Time
	elapsed time.Duration

	now func() time.Time // test hook
}

// NewIntervalTimer builds a drained wall-time quantity. The unit is
// seconds.
func NewIntervalTimer(name, description string) *IntervalTimer {
	return &IntervalTimer{name: name, description: description, now: time.Now}
}

func (t *IntervalTimer) Name() string        { return t.name }
func (t *IntervalTimer) Unit() string        { return "s" }
func (t *IntervalTimer) Description() string { return t.description }

// Start begins a timed section. Starting a running timer restarts it.
func (t *IntervalTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.started = t.now()
}

// Stop ends a timed section and adds its duration to the accumulator.
// Stopping a stopped timer is a no-op.
func (t *IntervalTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.elapsed += t.now().Sub(t.started)
	t.running = false
}

// Sample returns the seconds accumulated since the previous sample and
// resets the accumulator. A section still running contributes its time
// so far and keeps running.
func (t *IntervalTimer) Sample(ctx context.Context) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.elapsed
	if t.running {
		n := t.now()
		d += n.Sub(t.started)
		t.started = n
	}
	t.elapsed = 0
	return d.Seconds(), nil
}

// SimClock feeds the step, simulation-time and step-size quantities
// from the time-stepping loop. The driver calls Advance after each
// completed step; Register adds the quantities to a manager:
//
//	step   timesteps completed ("1")
//	t_sim  simulation time ("s")
//	dt     timestep size ("s")
//	t_step wall time since the previous tick ("s")
type SimClock struct {
	mu       sync.Mutex
	step     int64
	t        float64
	dt       float64
	lastTick time.Time

	now func() time.Time // test hook
}

// NewSimClock builds a clock at t=0 with the given initial step size.
func NewSimClock(dt float64) *SimClock {
	return &SimClock{dt: dt, now: time.Now}
}

// Advance records one completed step ending at simulation time t taken
// with step size dt.
func (c *SimClock) Advance(t, dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step++
	c.t = t
	c.dt = dt
}

// Step returns the number of completed steps.
func (c *SimClock) Step() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// T returns the current simulation time.
func (c *SimClock) T() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Dt returns the current step size.
func (c *SimClock) Dt() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dt
}

// Register adds the clock's quantities to the manager.
func (c *SimClock) Register(ctx context.Context, m *Manager) error {
	return m.AddQuantity(ctx,
		NewSampled("step", "1", "timesteps completed", func(context.Context) (float64, error) {
			return float64(c.Step()), nil
		}),
		NewSampled("t_sim", "s", "simulation time", func(context.Context) (float64, error) {
			return c.T(), nil
		}),
		NewSampled("dt", "s", "timestep size", func(context.Context) (float64, error) {
			return c.Dt(), nil
		}),
		NewSampled("t_step", "s", "wall time between ticks", func(context.Context) (float64, error) {
			return c.wallStep(), nil
		}),
	)
}

// wallStep returns the wall seconds since the previous call. The first
// call returns zero.
func (c *SimClock) wallStep() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.now()
	if c.lastTick.IsZero() {
		c.lastTick = n
		return 0
	}
	d := n.Sub(c.lastTick)
	c.lastTick = n
	return d.Seconds()
}
