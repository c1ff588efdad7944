// File: internal/marl/system.go
// Description: The episode orchestrator. Ties the encoder, the two agents,
// and the reward calculator into a single observe/decide/act loop against an
// Environment, and gates learning on the configured episode cadence.

package marl

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
	"github.com/xkilldash9x/testweaver-cli/internal/agent"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
	"github.com/xkilldash9x/testweaver-cli/internal/observability"
	"github.com/xkilldash9x/testweaver-cli/internal/reward"
	"github.com/xkilldash9x/testweaver-cli/internal/state"
)

// EpisodeReport summarizes one completed episode for the caller.
type EpisodeReport struct {
	Episode  int                  `json:"episode"`
	Steps    int                  `json:"steps"`
	FinalURL string               `json:"final_url"`
	Scenario schemas.TestScenario `json:"scenario"`
	Reward   reward.Breakdown     `json:"reward"`
	Stats    schemas.EpisodeStats `json:"stats"`
	Learned  bool                 `json:"learned"`
}

// System owns the learning loop state that persists across episodes: the
// agents, the reward calculator with its coverage tracker, and the pending
// policy batch for the generator.
type System struct {
	cfg       *config.Config
	encoder   *state.Encoder
	explorer  *agent.Explorer
	generator *agent.Generator
	calc      *reward.Calculator

	episodes int
	policy   []agent.PolicyExperience

	logger *zap.Logger
}

// NewSystem wires the learning core from configuration. The rng seeds both
// agents so runs can be made reproducible.
func NewSystem(cfg *config.Config, rng *rand.Rand) *System {
	logger := observability.GetLogger().Named("marl")
	weights := reward.Weights{
		Exploration:  cfg.Reward.ExplorationWeight,
		Coverage:     cfg.Reward.CoverageWeight,
		Quality:      cfg.Reward.QualityWeight,
		BugDiscovery: cfg.Reward.BugDiscoveryWeight,
		Efficiency:   cfg.Reward.EfficiencyWeight,
	}
	baselines := reward.Baselines{
		TotalPages:        cfg.Reward.TotalPages,
		TotalElements:     cfg.Reward.TotalElements,
		TotalInteractions: cfg.Reward.TotalInteractions,
	}
	return &System{
		cfg:       cfg,
		encoder:   state.NewEncoder(cfg.Browser.MaxElements),
		explorer:  agent.NewExplorer(cfg.Agent, rng, logger.Named("explorer")),
		generator: agent.NewGenerator(cfg.Agent, rng, nil, logger.Named("generator")),
		calc:      reward.NewCalculator(weights, baselines),
		logger:    logger,
	}
}

// Explorer exposes the exploration agent, mainly for parameter persistence.
func (s *System) Explorer() *agent.Explorer { return s.explorer }

// Generator exposes the test-generation agent.
func (s *System) Generator() *agent.Generator { return s.generator }

// Calculator exposes the reward calculator and its tracker.
func (s *System) Calculator() *reward.Calculator { return s.calc }

// ResetMetrics clears coverage and quality state. Call once per training run,
// not per episode; novelty bonuses depend on state accumulating across
// episodes.
func (s *System) ResetMetrics() {
	s.calc.ResetMetrics()
	s.episodes = 0
	s.policy = s.policy[:0]
}

// RunEpisode drives one full episode: reset the environment, explore until a
// terminal condition, generate and score a scenario, and on the configured
// cadence run a learning update on both agents.
func (s *System) RunEpisode(ctx context.Context, env schemas.Environment) (EpisodeReport, error) {
	if err := env.Reset(ctx); err != nil {
		return EpisodeReport{}, fmt.Errorf("environment reset: %w", err)
	}

	page, vec, err := s.observe(ctx, env)
	if err != nil {
		return EpisodeReport{}, fmt.Errorf("initial observation: %w", err)
	}

	start := time.Now()
	var (
		stats       schemas.EpisodeStats
		exploration float64
		steps       int
	)

	for steps = 0; steps < s.cfg.Training.MaxSteps; steps++ {
		if terminalURL(page.URL) {
			break
		}
		available := agent.AvailableActions(page)
		if len(available) == 0 {
			break
		}

		action := s.explorer.SelectAction(vec, available)

		success, execErr := env.Execute(ctx, action)
		if execErr != nil {
			// A broken environment ends the episode; the failed action still
			// counts against the success rate.
			s.logger.Warn("action execution failed",
				zap.String("action", string(action.Type)), zap.Error(execErr))
			success = false
		}
		stats.TotalActions++
		if success {
			stats.SuccessfulActions++
		}

		// Score against the page the action ran on, so every observed page
		// enters the coverage sets, the entry page included.
		r := s.calc.Exploration(page, action, success)
		exploration += r

		nextPage, nextVec, obsErr := s.observe(ctx, env)
		if execErr != nil || obsErr != nil {
			s.explorer.Record(agent.Experience{
				State: vec, Action: action, Reward: r, NextState: vec, Done: true,
			})
			break
		}

		terminal := steps == s.cfg.Training.MaxSteps-1 ||
			terminalURL(nextPage.URL) ||
			len(agent.AvailableActions(nextPage)) == 0
		s.explorer.Record(agent.Experience{
			State:     vec,
			Action:    action,
			Reward:    r,
			NextState: nextVec,
			Done:      terminal,
		})

		page, vec = nextPage, nextVec
	}
	stats.DurationSeconds = time.Since(start).Seconds()

	// Generation and scoring run on the coverage state the exploration phase
	// just built up.
	summary := s.summarize(vec)
	polState := s.generator.PrepareState(summary)
	scenario, patternIdx := s.generator.Generate(summary)

	breakdown := reward.Breakdown{
		Exploration: exploration,
		Coverage:    s.calc.Coverage(),
		Quality:     s.calc.Quality(scenario),
		Efficiency:  s.calc.Efficiency(stats),
	}
	breakdown = s.calc.Total(breakdown)

	s.policy = append(s.policy, agent.PolicyExperience{
		State:        polState,
		PatternIndex: patternIdx,
		Reward:       breakdown.Total,
		NextState:    s.generator.PrepareState(s.summarize(vec)),
	})

	s.episodes++
	learned := false
	if s.cfg.Training.UpdateFrequency > 0 && s.episodes%s.cfg.Training.UpdateFrequency == 0 {
		learned = s.explorer.Learn()
		s.explorer.SyncTarget()
		s.generator.Update(s.policy)
		s.policy = s.policy[:0]
		s.logger.Debug("learning update",
			zap.Int("episode", s.episodes),
			zap.Bool("dqn_learned", learned),
			zap.Float64("epsilon", s.explorer.Epsilon()))
	}

	report := EpisodeReport{
		Episode:  s.episodes,
		Steps:    stats.TotalActions,
		FinalURL: page.URL,
		Scenario: scenario,
		Reward:   breakdown,
		Stats:    stats,
		Learned:  learned,
	}
	s.logger.Info("episode complete",
		zap.Int("episode", report.Episode),
		zap.Int("steps", report.Steps),
		zap.Float64("total_reward", breakdown.Total),
		zap.Float64("page_coverage", s.calc.Tracker().Coverage().PageCoverage))
	return report, nil
}

// ScoreResults folds an executed suite's outcomes back into a breakdown. The
// episode loop itself never runs the generated tests, so bug discovery is
// only available to callers that do.
func (s *System) ScoreResults(results schemas.TestResults) float64 {
	return s.calc.BugDiscovery(results)
}

func (s *System) observe(ctx context.Context, env schemas.Environment) (schemas.PageState, []float64, error) {
	obs, err := env.Observe(ctx)
	if err != nil {
		return schemas.PageState{}, nil, err
	}
	page := schemas.PageState{
		URL:       obs.URL,
		Title:     obs.Title,
		Elements:  obs.Elements,
		User:      obs.User,
		Type:      state.ClassifyPage(obs.URL, obs.Title, obs.Elements),
		Timestamp: time.Now(),
	}
	return page, s.encoder.Encode(page), nil
}

func (s *System) summarize(vec []float64) agent.ExplorationSummary {
	cov := s.calc.Tracker().Coverage()
	q := s.calc.Tracker().Quality()
	return agent.ExplorationSummary{
		UIState:          vec,
		PageCoverage:     cov.PageCoverage,
		ElementCoverage:  cov.ElementCoverage,
		TestDiversity:    q.TestDiversity,
		BugDiscoveryRate: q.BugDiscoveryRate,
	}
}

func terminalURL(url string) bool {
	return strings.Contains(strings.ToLower(url), "error")
}
