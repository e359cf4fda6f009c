package runlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func counterQuantity(name string) (*Sampled, *int) {
	calls := new(int)
	q := NewSampled(name, "1", "", func(context.Context) (float64, error) {
		*calls++
		return float64(*calls), nil
	})
	return q, calls
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := memStore(t)

	mgr, err := NewManager(ctx, st)
	require.NoError(t, err)
	require.NotEmpty(t, mgr.RunID())

	mgr.AddRunInfo()
	mgr.SetConstant("speed", 1.0)

	clock := NewSimClock(0.1)
	require.NoError(t, clock.Register(ctx, mgr))

	norm := 3.0
	require.NoError(t, mgr.AddQuantity(ctx, NewSampled("l2_u", "1", "L2 norm of u",
		func(context.Context) (float64, error) { return norm, nil })))

	require.NoError(t, mgr.AddWatch("step.max", "t_sim.max", "l2_u"))

	for step := 0; step < 3; step++ {
		require.NoError(t, mgr.Tick(ctx))
		norm *= 0.5
		clock.Advance(0.1*float64(step+1), 0.1)
	}
	require.NoError(t, mgr.Close(ctx))

	samples, err := st.Samples(ctx, mgr.RunID(), "l2_u")
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for i, want := range []float64{3, 1.5, 0.75} {
		assert.Equal(t, int64(i), samples[i].Step)
		assert.InDelta(t, 0.1*float64(i), samples[i].T, 1e-12,
			"sample carries the tick's simulation time")
		assert.Equal(t, want, samples[i].Value)
	}

	quants, err := st.Quantities(ctx, mgr.RunID())
	require.NoError(t, err)
	names := make([]string, len(quants))
	for i, q := range quants {
		names[i] = q.Name
	}
	assert.Equal(t, []string{"dt", "l2_u", "step", "t_sim", "t_step"}, names)

	constants, err := st.Constants(ctx, mgr.RunID())
	require.NoError(t, err)
	assert.Contains(t, constants, "machine")
	assert.Contains(t, constants, "date")
	assert.Equal(t, 1.0, constants["speed"])
}

func TestManagerWithoutStore(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(ctx, nil)
	require.NoError(t, err)

	q, _ := counterQuantity("pulse")
	require.NoError(t, mgr.AddQuantity(ctx, q))

	_, ok := mgr.Last("pulse")
	assert.False(t, ok, "nothing sampled before the first tick")

	require.NoError(t, mgr.Tick(ctx))
	v, ok := mgr.Last("pulse")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = mgr.Last("ghost")
	assert.False(t, ok)

	require.NoError(t, mgr.Close(ctx))
}

func TestManagerSamplingInterval(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(ctx, nil)
	require.NoError(t, err)

	q, calls := counterQuantity("slow")
	require.NoError(t, mgr.AddQuantityEvery(ctx, q, 2))

	for i := 0; i < 4; i++ {
		require.NoError(t, mgr.Tick(ctx))
	}
	assert.Equal(t, 2, *calls, "sampled on ticks 0 and 2 only")
}

func TestManagerErrors(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(ctx, nil)
	require.NoError(t, err)

	q, _ := counterQuantity("step")
	require.NoError(t, mgr.AddQuantity(ctx, q))

	dup, _ := counterQuantity("step")
	err = mgr.AddQuantity(ctx, dup)
	assert.ErrorContains(t, err, "duplicate name step")

	err = mgr.AddQuantity(ctx, NewSampled("", "1", "", nil))
	assert.ErrorIs(t, err, ErrUnnamedQuantity)

	slow, _ := counterQuantity("slow")
	err = mgr.AddQuantityEvery(ctx, slow, 0)
	assert.ErrorContains(t, err, "interval must be at least 1")

	err = mgr.AddWatch("ghost.max")
	assert.ErrorContains(t, err, "unknown quantity ghost")

	boom := NewSampled("boom", "1", "", func(context.Context) (float64, error) {
		return 0, errors.New("broken probe")
	})
	require.NoError(t, mgr.AddQuantity(ctx, boom))
	err = mgr.Tick(ctx)
	assert.ErrorContains(t, err, "sample boom: broken probe")

	require.NoError(t, mgr.Close(ctx))
	assert.ErrorIs(t, mgr.Tick(ctx), ErrClosed)
	assert.ErrorIs(t, mgr.Close(ctx), ErrClosed)
	assert.ErrorIs(t, mgr.AddQuantity(ctx, NewSampled("late", "1", "", nil)), ErrClosed)
}

func TestManagerSaveFlushesDuringRun(t *testing.T) {
	ctx := context.Background()
	st := memStore(t)

	mgr, err := NewManager(ctx, st)
	require.NoError(t, err)

	q, _ := counterQuantity("step")
	require.NoError(t, mgr.AddQuantity(ctx, q))

	require.NoError(t, mgr.Tick(ctx))
	require.NoError(t, mgr.Save(ctx))

	samples, err := st.Samples(ctx, mgr.RunID(), "step")
	require.NoError(t, err)
	assert.Len(t, samples, 1, "save makes buffered samples visible mid-run")

	require.NoError(t, mgr.Tick(ctx))
	require.NoError(t, mgr.Close(ctx))

	samples, err = st.Samples(ctx, mgr.RunID(), "step")
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}
