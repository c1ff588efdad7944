// File: internal/agent/generator.go
// Description: The test-generation agent. An actor/critic pair samples a test
// pattern from a learned categorical distribution over exploration summary
// features, then expands the pattern into a concrete scenario.

package agent

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
)

// ExplorationSummary is the partial state the generation agent conditions on.
// Missing fields simply stay zero.
type ExplorationSummary struct {
	UIState          []float64
	PageCoverage     float64
	ElementCoverage  float64
	TestDiversity    float64
	BugDiscoveryRate float64
}

// PolicyExperience is one pattern-selection outcome used for actor/critic
// updates.
type PolicyExperience struct {
	State        []float64
	PatternIndex int
	Reward       float64
	NextState    []float64
}

// Generator synthesizes test scenarios from exploration summaries.
type Generator struct {
	cfg     config.AgentConfig
	actor   *Network
	critic  *Network
	sampler CategoricalSampler
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewGenerator builds a generation agent. The sampler may be nil, in which
// case a rand-backed sampler is used.
func NewGenerator(cfg config.AgentConfig, rng *rand.Rand, sampler CategoricalSampler, logger *zap.Logger) *Generator {
	if sampler == nil {
		sampler = RandSampler{Rng: rng}
	}
	return &Generator{
		cfg:     cfg,
		actor:   NewNetwork(cfg.StateSize, cfg.HiddenSize, cfg.ActionSize, cfg.LearningRate, rng),
		critic:  NewNetwork(cfg.StateSize, cfg.HiddenSize, 1, cfg.LearningRate, rng),
		sampler: sampler,
		rng:     rng,
		logger:  logger.Named("generator"),
	}
}

// PrepareState assembles the fixed-width feature vector: the partial UI state
// followed by coverage and quality ratios, padded or truncated to the
// configured state size.
func (g *Generator) PrepareState(summary ExplorationSummary) []float64 {
	features := make([]float64, 0, len(summary.UIState)+4)
	features = append(features, summary.UIState...)
	features = append(features,
		summary.PageCoverage,
		summary.ElementCoverage,
		summary.TestDiversity,
		summary.BugDiscoveryRate,
	)

	state := make([]float64, g.cfg.StateSize)
	copy(state, features)
	return state
}

// Generate samples one test pattern from the actor's categorical distribution
// (stochastic, not argmax) and expands it into a scenario. Returns the
// scenario and the sampled pattern index for later policy updates.
func (g *Generator) Generate(summary ExplorationSummary) (schemas.TestScenario, int) {
	state := g.PrepareState(summary)
	probs := Softmax(g.actor.Forward(state))
	idx := g.sampler.Sample(probs)

	pattern := schemas.TestPatterns[idx%len(schemas.TestPatterns)]
	scenario := g.expandPattern(pattern)

	g.logger.Debug("Generated scenario",
		zap.String("pattern", string(pattern)),
		zap.Int("steps", len(scenario.Steps)),
		zap.Int("assertions", len(scenario.Assertions)))
	return scenario, idx
}

// expandPattern maps a pattern tag onto its hardcoded step/assertion
// template. Unrecognized patterns yield an empty template; quality scoring
// will rate them accordingly.
func (g *Generator) expandPattern(pattern schemas.TestPattern) schemas.TestScenario {
	scenario := schemas.TestScenario{
		Name:     fmt.Sprintf("marl_generated_%s_%s", pattern, uuid.NewString()[:8]),
		Pattern:  pattern,
		Priority: "medium",
		TestData: map[string]string{},
	}

	switch pattern {
	case schemas.PatternLoginFlow:
		scenario.Steps = []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "/login"},
			{Action: schemas.ActionInput, Target: "email", Value: "test@example.com"},
			{Action: schemas.ActionInput, Target: "password", Value: "password123"},
			{Action: schemas.ActionClick, Target: "login_button"},
		}
		scenario.Assertions = []schemas.TestAssertion{
			{Type: schemas.AssertURLContains, Value: "/search"},
			{Type: schemas.AssertElementVisible, Target: "user_menu"},
		}
	case schemas.PatternRegistrationFlow:
		scenario.Steps = []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "/register"},
			{Action: schemas.ActionInput, Target: "email", Value: "new_user@example.com"},
			{Action: schemas.ActionInput, Target: "password", Value: "S3cure!pass"},
			{Action: schemas.ActionInput, Target: "password_repeat", Value: "S3cure!pass"},
			{Action: schemas.ActionClick, Target: "register_button"},
		}
		scenario.Assertions = []schemas.TestAssertion{
			{Type: schemas.AssertURLContains, Value: "/login"},
			{Type: schemas.AssertTextContains, Target: ".confirmation", Value: "Registration completed"},
		}
	case schemas.PatternProductSearch:
		scenario.Steps = []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "/search"},
			{Action: schemas.ActionInput, Target: "search_input", Value: "apple"},
			{Action: schemas.ActionClick, Target: "search_button"},
			{Action: schemas.ActionWait, Duration: 2},
		}
		scenario.Assertions = []schemas.TestAssertion{
			{Type: schemas.AssertElementCount, Target: ".product-card", Min: 1},
			{Type: schemas.AssertTextContains, Target: ".search-results", Value: "apple"},
		}
	case schemas.PatternAddToBasket:
		scenario.Steps = []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "/search"},
			{Action: schemas.ActionClick, Target: ".product-card:first-child"},
			{Action: schemas.ActionClick, Target: ".add-to-basket-button"},
			{Action: schemas.ActionClick, Target: ".basket-button"},
		}
		scenario.Assertions = []schemas.TestAssertion{
			{Type: schemas.AssertElementVisible, Target: ".basket-item"},
			{Type: schemas.AssertTextContains, Target: ".basket-count", Value: "1"},
		}
	case schemas.PatternErrorHandling:
		scenario.Steps = []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "/login"},
			{Action: schemas.ActionInput, Target: "email", Value: "' OR 1=1--"},
			{Action: schemas.ActionInput, Target: "password", Value: ""},
			{Action: schemas.ActionClick, Target: "login_button"},
		}
		scenario.Assertions = []schemas.TestAssertion{
			{Type: schemas.AssertElementVisible, Target: ".error"},
			{Type: schemas.AssertURLContains, Value: "/login"},
		}
	}

	return scenario
}

// Update runs one actor/critic step per experience: the critic chases the
// bootstrapped value target, and the actor ascends log-probability times
// advantage, with the advantage treated as a constant during the actor step.
func (g *Generator) Update(batch []PolicyExperience) {
	for _, exp := range batch {
		value := g.critic.Forward(exp.State)[0]
		nextValue := g.critic.Forward(exp.NextState)[0]
		target := exp.Reward + g.cfg.DiscountFactor*nextValue

		// Critic: squared error toward the (detached) target.
		g.critic.TrainTargetAt(exp.State, 0, target)

		// Actor: d(-log pi(a) * A)/d logit_k = -A * (1{k=a} - pi_k).
		advantage := target - value
		probs := Softmax(g.actor.Forward(exp.State))
		grad := make([]float64, len(probs))
		for k, p := range probs {
			indicator := 0.0
			if k == exp.PatternIndex {
				indicator = 1.0
			}
			grad[k] = -advantage * (indicator - p)
		}
		g.actor.Backprop(exp.State, grad)
	}
}

// Snapshot captures both networks' parameters.
func (g *Generator) Snapshot() (actor, critic Params) {
	return g.actor.Snapshot(), g.critic.Snapshot()
}

// Restore loads both networks' parameters.
func (g *Generator) Restore(actor, critic Params) error {
	if err := g.actor.Restore(actor); err != nil {
		return fmt.Errorf("restoring actor: %w", err)
	}
	if err := g.critic.Restore(critic); err != nil {
		return fmt.Errorf("restoring critic: %w", err)
	}
	return nil
}

// PatternProbabilities exposes the actor's current distribution for a
// summary; useful for diagnostics and tests.
func (g *Generator) PatternProbabilities(summary ExplorationSummary) []float64 {
	probs := Softmax(g.actor.Forward(g.PrepareState(summary)))
	// Guard against degenerate numerics leaking out.
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			probs[i] = 0
		}
	}
	return probs
}
