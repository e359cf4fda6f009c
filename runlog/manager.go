package runlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"goa.design/clue/log"
)

// Samples are buffered in memory and written to the store in batches
// of this size.
const flushEvery = 256

// ErrClosed is returned by operations on a closed manager.
var ErrClosed = errors.New("manager is closed")

// Manager gathers named time-series quantities during a simulation.
// The step loop calls Tick once per iteration; each tick samples the
// due quantities, logs the watched ones, and buffers the values for
// the store. Close flushes.
//
// A nil store is allowed: values are still sampled and watchable, and
// the latest value of each quantity stays readable through Last.
type Manager struct {
	store     *Store
	runID     string
	startedAt time.Time

	mu             sync.Mutex
	quantities     []*registered
	byName         map[string]*registered
	watches        []watch
	constants      map[string]any
	constantsDirty bool
	step           int64
	lastT          float64
	pending        []Sample
	closed         bool
}

type registered struct {
	q       Quantity
	name    string
	every   int64
	last    float64
	sampled bool
}

// watch is a display entry: the label is the name as given to
// AddWatch, the quantity is the part before any aggregator suffix.
type watch struct {
	label    string
	quantity string
}

// NewManager starts a run. With a non-nil store the run row is written
// immediately so quantities and samples can reference it.
func NewManager(ctx context.Context, st *Store) (*Manager, error) {
	m := &Manager{
		store:     st,
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		byName:    make(map[string]*registered),
		constants: make(map[string]any),
	}
	if st != nil {
		if err := st.BeginRun(ctx, m.runID, m.startedAt); err != nil {
			return nil, fmt.Errorf("new manager: %w", err)
		}
	}
	return m, nil
}

// RunID returns the run's unique identifier.
func (m *Manager) RunID() string { return m.runID }

// AddRunInfo records the host name and start date as run constants.
func (m *Manager) AddRunInfo() {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	m.SetConstant("machine", host)
	m.SetConstant("date", m.startedAt.Format(time.RFC3339))
}

// SetConstant records a run-level constant. Constants are persisted on
// the next flush.
func (m *Manager) SetConstant(name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constants[name] = value
	m.constantsDirty = true
}

// AddQuantity registers quantities sampled on every tick. Names must
// be non-empty and unique within the run.
func (m *Manager) AddQuantity(ctx context.Context, qs ...Quantity) error {
	for _, q := range qs {
		if err := m.addQuantity(ctx, q, 1); err != nil {
			return err
		}
	}
	return nil
}

// AddQuantityEvery registers a quantity sampled on every n-th tick,
// starting with the first.
func (m *Manager) AddQuantityEvery(ctx context.Context, q Quantity, every int) error {
	if every < 1 {
		return fmt.Errorf("add quantity %s: interval must be at least 1, got %d", q.Name(), every)
	}
	return m.addQuantity(ctx, q, int64(every))
}

func (m *Manager) addQuantity(ctx context.Context, q Quantity, every int64) error {
	name := q.Name()
	if name == "" {
		return fmt.Errorf("add quantity: %w", ErrUnnamedQuantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("add quantity %s: %w", name, ErrClosed)
	}
	if _, ok := m.byName[name]; ok {
		return fmt.Errorf("add quantity: duplicate name %s", name)
	}

	r := &registered{q: q, name: name, every: every}
	m.quantities = append(m.quantities, r)
	m.byName[name] = r

	if m.store != nil {
		info := QuantityInfo{Name: name, Unit: q.Unit(), Description: q.Description()}
		if err := m.store.AddQuantity(ctx, m.runID, info); err != nil {
			return err
		}
	}
	return nil
}

// AddWatch marks quantities for logging on every tick. A name may
// carry an aggregator suffix after a dot ("step.max"); the part before
// the dot must be a registered quantity. The suffix is kept in the log
// label.
func (m *Manager) AddWatch(names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		qname, _, _ := strings.Cut(name, ".")
		if _, ok := m.byName[qname]; !ok {
			return fmt.Errorf("add watch %s: unknown quantity %s", name, qname)
		}
		m.watches = append(m.watches, watch{label: name, quantity: qname})
	}
	return nil
}

// Last returns the most recently sampled value of a quantity. The
// second return is false until the quantity has been sampled once.
func (m *Manager) Last(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	if !ok || !r.sampled {
		return 0, false
	}
	return r.last, true
}

// Tick samples the due quantities in registration order, logs the
// watched values, and buffers the samples. The simulation time stored
// with each sample is the tick's value of the "t_sim" quantity, or the
// last known one when "t_sim" is not due.
func (m *Manager) Tick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("tick: %w", ErrClosed)
	}

	type pair struct {
		name  string
		value float64
	}
	sampled := make([]pair, 0, len(m.quantities))
	for _, r := range m.quantities {
		if m.step%r.every != 0 {
			continue
		}
		v, err := r.q.Sample(ctx)
		if err != nil {
			return fmt.Errorf("sample %s: %w", r.name, err)
		}
		r.last, r.sampled = v, true
		sampled = append(sampled, pair{name: r.name, value: v})
		if r.name == "t_sim" {
			m.lastT = v
		}
	}

	for _, p := range sampled {
		m.pending = append(m.pending, Sample{Step: m.step, T: m.lastT, Name: p.name, Value: p.value})
	}

	if len(m.watches) > 0 {
		fielders := make([]log.Fielder, 0, len(m.watches))
		for _, w := range m.watches {
			fielders = append(fielders, log.KV{K: w.label, V: m.byName[w.quantity].last})
		}
		log.Info(ctx, fielders...)
	}

	m.step++

	if len(m.pending) >= flushEvery {
		return m.flushLocked(ctx)
	}
	return nil
}

// Save flushes buffered samples and constants to the store.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked(ctx)
}

// Close flushes and marks the manager closed. The store stays open;
// it belongs to the caller. Closing twice is an error.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("close: %w", ErrClosed)
	}
	if err := m.flushLocked(ctx); err != nil {
		return err
	}
	m.closed = true
	return nil
}

func (m *Manager) flushLocked(ctx context.Context) error {
	if m.store == nil {
		m.pending = m.pending[:0]
		m.constantsDirty = false
		return nil
	}

	if err := m.store.WriteSamples(ctx, m.runID, m.pending); err != nil {
		return err
	}
	m.pending = m.pending[:0]

	if m.constantsDirty {
		if err := m.store.SetConstants(ctx, m.runID, m.constants); err != nil {
			return err
		}
		m.constantsDirty = false
	}
	return nil
}
