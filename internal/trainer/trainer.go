// File: internal/trainer/trainer.go
// Description: The training pipeline. Runs a configured number of episodes
// against an environment, tracks reward history, persists the best model, and
// periodically renders the accumulated scenarios into a test suite on disk.

package trainer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
	"github.com/xkilldash9x/testweaver-cli/internal/marl"
	"github.com/xkilldash9x/testweaver-cli/internal/store"
)

const progressLogInterval = 10

// Summary is what a completed (or interrupted) run hands back to the caller.
type Summary struct {
	RunID         string  `json:"run_id"`
	Episodes      int     `json:"episodes"`
	BestReward    float64 `json:"best_reward"`
	AverageReward float64 `json:"average_reward"`
	FinalEpsilon  float64 `json:"final_epsilon"`
	SuitePath     string  `json:"suite_path"`
}

// Trainer owns one run of the learning loop.
type Trainer struct {
	cfg    *config.Config
	system *marl.System
	store  *store.Store
	writer schemas.ScenarioWriter
	logger *zap.Logger

	runID     string
	history   []marl.EpisodeReport
	scenarios []schemas.TestScenario
}

// New assembles a trainer. The store may be nil when persistence is not
// wanted (the demo command runs this way).
func New(cfg *config.Config, system *marl.System, st *store.Store, writer schemas.ScenarioWriter, logger *zap.Logger) *Trainer {
	return &Trainer{
		cfg:    cfg,
		system: system,
		store:  st,
		writer: writer,
		logger: logger.Named("trainer"),
	}
}

// Run executes the configured number of episodes. Coverage metrics reset once
// here, never per episode; novelty must stay scarce across the whole run.
// A canceled context stops between episodes and still finalizes the suite.
func (t *Trainer) Run(ctx context.Context, env schemas.Environment) (Summary, error) {
	t.runID = uuid.NewString()
	t.history = t.history[:0]
	t.scenarios = t.scenarios[:0]
	t.system.ResetMetrics()

	t.logger.Info("Training run starting.",
		zap.String("run_id", t.runID),
		zap.Int("episodes", t.cfg.Training.Episodes),
		zap.String("target", t.cfg.Training.TargetURL))

	best := 0.0
	hasBest := false
	for episode := 1; episode <= t.cfg.Training.Episodes; episode++ {
		if ctx.Err() != nil {
			t.logger.Warn("Training interrupted.", zap.Int("completed_episodes", episode-1))
			break
		}

		report, err := t.system.RunEpisode(ctx, env)
		if err != nil {
			return t.summarize(best), fmt.Errorf("episode %d: %w", episode, err)
		}
		t.history = append(t.history, report)
		t.scenarios = append(t.scenarios, report.Scenario)

		if !hasBest || report.Reward.Total > best {
			best = report.Reward.Total
			hasBest = true
			t.saveBest(report)
		}

		if episode%progressLogInterval == 0 {
			t.logProgress(episode)
		}
		if interval := t.cfg.Training.SuiteInterval; interval > 0 && episode%interval == 0 {
			if _, err := t.dumpSuite(episode); err != nil {
				t.logger.Warn("Could not write intermediate suite.", zap.Error(err))
			}
		}
	}

	suitePath, err := t.dumpSuite(len(t.history))
	if err != nil {
		return t.summarize(best), fmt.Errorf("write final suite: %w", err)
	}

	summary := t.summarize(best)
	summary.SuitePath = suitePath
	t.logger.Info("Training run complete.",
		zap.String("run_id", t.runID),
		zap.Int("episodes", summary.Episodes),
		zap.Float64("best_reward", summary.BestReward),
		zap.Float64("average_reward", summary.AverageReward),
		zap.String("suite", suitePath))
	return summary, nil
}

// History returns the per-episode reports collected so far.
func (t *Trainer) History() []marl.EpisodeReport { return t.history }

func (t *Trainer) summarize(best float64) Summary {
	var total float64
	for _, r := range t.history {
		total += r.Reward.Total
	}
	avg := 0.0
	if len(t.history) > 0 {
		avg = total / float64(len(t.history))
	}
	return Summary{
		RunID:         t.runID,
		Episodes:      len(t.history),
		BestReward:    best,
		AverageReward: avg,
		FinalEpsilon:  t.system.Explorer().Epsilon(),
	}
}

func (t *Trainer) saveBest(report marl.EpisodeReport) {
	if t.store == nil {
		return
	}
	actor, critic := t.system.Generator().Snapshot()
	snap := store.ModelSnapshot{
		RunID:       t.runID,
		Episode:     report.Episode,
		TotalReward: report.Reward.Total,
		Epsilon:     t.system.Explorer().Epsilon(),
		Explorer:    t.system.Explorer().Snapshot(),
		Actor:       actor,
		Critic:      critic,
	}
	if _, err := t.store.SaveIfBest(snap); err != nil {
		t.logger.Warn("Could not persist best model.", zap.Error(err))
	}
}

func (t *Trainer) logProgress(episode int) {
	window := t.history
	if len(window) > progressLogInterval {
		window = window[len(window)-progressLogInterval:]
	}
	var sum float64
	for _, r := range window {
		sum += r.Reward.Total
	}
	cov := t.system.Calculator().Tracker().Coverage()
	t.logger.Info("Training progress.",
		zap.Int("episode", episode),
		zap.Float64("avg_reward", sum/float64(len(window))),
		zap.Float64("page_coverage", cov.PageCoverage),
		zap.Float64("element_coverage", cov.ElementCoverage),
		zap.Float64("epsilon", t.system.Explorer().Epsilon()))
}

// dumpSuite renders every scenario generated so far into one Cypress spec
// file named after the run and episode count.
func (t *Trainer) dumpSuite(episode int) (string, error) {
	outDir := t.cfg.Training.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	content, err := t.writer.Render(t.scenarios)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("testweaver_%s_ep%d.cy.js", t.runID[:8], episode)
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write suite %s: %w", path, err)
	}
	t.logger.Debug("Suite written.", zap.String("path", path), zap.Int("scenarios", len(t.scenarios)))
	return path, nil
}
