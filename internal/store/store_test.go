// internal/store/store_test.go
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/internal/agent"
)

func sampleSnapshot(runID string, reward float64) ModelSnapshot {
	return ModelSnapshot{
		RunID:       runID,
		Episode:     7,
		TotalReward: reward,
		Epsilon:     0.42,
		Explorer:    agent.Params{W1: []float64{0.1, 0.2}, B1: []float64{0}, W2: []float64{0.3}, B2: []float64{0}},
		Actor:       agent.Params{W1: []float64{1}, B1: []float64{0}, W2: []float64{2}, B2: []float64{0}},
		Critic:      agent.Params{W1: []float64{3}, B1: []float64{0}, W2: []float64{4}, B2: []float64{0}},
	}
}

func TestSaveIfBest_HighWaterMark(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	saved, err := s.SaveIfBest(sampleSnapshot("run-a", 10.0))
	require.NoError(t, err)
	assert.True(t, saved, "first snapshot always saves")

	saved, err = s.SaveIfBest(sampleSnapshot("run-a", 5.0))
	require.NoError(t, err)
	assert.False(t, saved, "weaker snapshot must not overwrite")

	saved, err = s.SaveIfBest(sampleSnapshot("run-a", 12.5))
	require.NoError(t, err)
	assert.True(t, saved)

	best, err := s.LoadBest()
	require.NoError(t, err)
	assert.InDelta(t, 12.5, best.TotalReward, 1e-12)
}

func TestSaveIfBest_TieDoesNotSave(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = s.SaveIfBest(sampleSnapshot("run-a", 3.0))
	require.NoError(t, err)

	saved, err := s.SaveIfBest(sampleSnapshot("run-b", 3.0))
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestNew_SeedsMarkFromExistingBestModel(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = first.SaveIfBest(sampleSnapshot("run-a", 20.0))
	require.NoError(t, err)

	// A fresh store over the same directory must not accept weaker snapshots.
	second, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	saved, err := second.SaveIfBest(sampleSnapshot("run-b", 15.0))
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	want := sampleSnapshot("run-xyz", 1.25)
	require.NoError(t, s.SaveRun(want))

	got, err := s.LoadRun("run-xyz")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadBest_MissingFileErrors(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = s.LoadBest()
	assert.Error(t, err)
}
