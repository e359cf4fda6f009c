package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was created")
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")

	for i := 0; i < 3; i++ {
		st, err := Open(path)
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, st.Close())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := memStore(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.BeginRun(ctx, "run-1", started))

	require.NoError(t, st.AddQuantity(ctx, "run-1", QuantityInfo{
		Name: "l2_u", Unit: "1", Description: "L2 norm of u",
	}))
	require.NoError(t, st.AddQuantity(ctx, "run-1", QuantityInfo{
		Name: "step", Unit: "1", Description: "timesteps completed",
	}))

	batch := []Sample{
		{Step: 0, T: 0, Name: "l2_u", Value: 1.0},
		{Step: 0, T: 0, Name: "step", Value: 0},
		{Step: 1, T: 0.1, Name: "l2_u", Value: 0.5},
		{Step: 1, T: 0.1, Name: "step", Value: 1},
	}
	require.NoError(t, st.WriteSamples(ctx, "run-1", batch))
	require.NoError(t, st.WriteSamples(ctx, "run-1", nil), "empty batch is a no-op")

	samples, err := st.Samples(ctx, "run-1", "l2_u")
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, Sample{Step: 0, T: 0, Name: "l2_u", Value: 1.0}, samples[0])
	assert.Equal(t, Sample{Step: 1, T: 0.1, Name: "l2_u", Value: 0.5}, samples[1])

	quants, err := st.Quantities(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, quants, 2)
	assert.Equal(t, "l2_u", quants[0].Name, "quantities come back in name order")
	assert.Equal(t, "step", quants[1].Name)
}

func TestStoreConstants(t *testing.T) {
	ctx := context.Background()
	st := memStore(t)

	require.NoError(t, st.BeginRun(ctx, "run-1", time.Now()))

	constants, err := st.Constants(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, constants, "constants default to an empty object")

	require.NoError(t, st.SetConstants(ctx, "run-1", map[string]any{
		"machine": "node-7",
		"speed":   2.0,
	}))

	constants, err = st.Constants(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "node-7", constants["machine"])
	assert.Equal(t, 2.0, constants["speed"])
}

func TestStoreAddQuantityIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memStore(t)

	require.NoError(t, st.BeginRun(ctx, "run-1", time.Now()))

	info := QuantityInfo{Name: "dt", Unit: "s", Description: "timestep size"}
	require.NoError(t, st.AddQuantity(ctx, "run-1", info))
	require.NoError(t, st.AddQuantity(ctx, "run-1", info))

	quants, err := st.Quantities(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, quants, 1)
}

func TestStoreEnforcesRunForeignKey(t *testing.T) {
	ctx := context.Background()
	st := memStore(t)

	err := st.WriteSamples(ctx, "no-such-run", []Sample{
		{Step: 0, T: 0, Name: "l2_u", Value: 1},
	})
	assert.Error(t, err, "samples must reference an existing run")
}
