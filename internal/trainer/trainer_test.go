// internal/trainer/trainer_test.go
package trainer

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/internal/browser"
	"github.com/xkilldash9x/testweaver-cli/internal/codegen"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
	"github.com/xkilldash9x/testweaver-cli/internal/marl"
	"github.com/xkilldash9x/testweaver-cli/internal/store"
)

func trainerFixture(t *testing.T, episodes int) (*Trainer, *store.Store) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Training.Episodes = episodes
	cfg.Training.MaxSteps = 4
	cfg.Training.UpdateFrequency = 2
	cfg.Training.SuiteInterval = 0
	cfg.Training.OutputDir = t.TempDir()
	cfg.Training.TargetURL = "https://demo.shop.test/"

	st, err := store.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	sys := marl.NewSystem(cfg, rand.New(rand.NewSource(31)))
	return New(cfg, sys, st, codegen.NewCypressWriter(), zap.NewNop()), st
}

func TestRun_CompletesAllEpisodesAndWritesSuite(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr, st := trainerFixture(t, 5)
	summary, err := tr.Run(context.Background(), browser.DemoShop())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Episodes)
	assert.Len(t, tr.History(), 5)
	assert.NotEmpty(t, summary.RunID)

	// The final suite holds one scenario per episode.
	data, err := os.ReadFile(summary.SuitePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Scenarios: 5")
	assert.Equal(t, ".js", filepath.Ext(summary.SuitePath))

	// The best episode's model landed in the store.
	best, err := st.LoadBest()
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, best.RunID)
	assert.InDelta(t, summary.BestReward, best.TotalReward, 1e-9)
}

func TestRun_BestRewardIsMaxOfHistory(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr, _ := trainerFixture(t, 4)
	summary, err := tr.Run(context.Background(), browser.DemoShop())
	require.NoError(t, err)

	maxTotal := tr.History()[0].Reward.Total
	for _, r := range tr.History() {
		if r.Reward.Total > maxTotal {
			maxTotal = r.Reward.Total
		}
	}
	assert.InDelta(t, maxTotal, summary.BestReward, 1e-12)
}

func TestRun_IntermediateSuiteDumps(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr, _ := trainerFixture(t, 4)
	tr.cfg.Training.SuiteInterval = 2

	summary, err := tr.Run(context.Background(), browser.DemoShop())
	require.NoError(t, err)

	entries, err := os.ReadDir(tr.cfg.Training.OutputDir)
	require.NoError(t, err)

	var suites []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".cy.js") {
			suites = append(suites, e.Name())
		}
	}
	// Dumps after episodes 2 and 4; the final dump reuses the episode-4 name.
	assert.Len(t, suites, 2)
	assert.NotEmpty(t, summary.SuitePath)
}

func TestRun_CanceledContextStopsBetweenEpisodes(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr, _ := trainerFixture(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := tr.Run(ctx, browser.DemoShop())
	require.NoError(t, err)
	assert.Zero(t, summary.Episodes)
	// Even an interrupted run finalizes its (empty) suite.
	assert.FileExists(t, summary.SuitePath)
}

func TestRun_NilStoreSkipsPersistence(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr, _ := trainerFixture(t, 2)
	tr.store = nil

	summary, err := tr.Run(context.Background(), browser.DemoShop())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Episodes)
}
