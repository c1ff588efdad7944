// File: internal/reward/calculator.go
// Description: Combines exploration, coverage, quality, bug-discovery, and
// efficiency signals into the scalar reward both agents learn from.

package reward

import (
	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

// Weights are the fixed mixing coefficients for the five reward components.
// They must sum to 1.0; config validation enforces this upstream.
type Weights struct {
	Exploration  float64
	Coverage     float64
	Quality      float64
	BugDiscovery float64
	Efficiency   float64
}

// Breakdown carries one episode's per-component rewards alongside the
// weighted total.
type Breakdown struct {
	Exploration  float64 `json:"exploration"`
	Coverage     float64 `json:"coverage"`
	Quality      float64 `json:"quality"`
	BugDiscovery float64 `json:"bug_discovery"`
	Efficiency   float64 `json:"efficiency"`
	Total        float64 `json:"total"`
}

// Exploration reward constants.
const (
	successBase        = 1.0
	failurePenalty     = -0.5
	newPageBonus       = 2.0
	newElementBonus    = 0.5
	newInteractionBonus = 1.0
	idleActionPenalty  = -0.1
)

// Bug discovery bonuses, additive per category.
const (
	assertionFailureBonus = 3.0
	scriptErrorBonus      = 2.0
	accessibilityBonus    = 1.5
	performanceBonus      = 1.0
	securityBonus         = 5.0
)

// Efficiency reward constants.
const (
	fastEpisodeSeconds   = 60.0
	slowEpisodeSeconds   = 300.0
	fastEpisodeBonus     = 1.0
	slowEpisodePenalty   = -0.5
	highSuccessRate      = 0.8
	lowSuccessRate       = 0.5
	successRateBonus     = 1.0
	successRatePenalty   = -0.5
	coveragePerActionMin = 0.01
	coverageGainBonus    = 0.5
)

// Calculator computes reward components. It owns the coverage/quality tracker
// and mutates it as a side effect of reward computation, so callers must call
// ResetMetrics at the start of each independent training run.
type Calculator struct {
	weights Weights
	tracker *Tracker
}

// NewCalculator builds a Calculator over a fresh tracker.
func NewCalculator(weights Weights, baselines Baselines) *Calculator {
	return &Calculator{
		weights: weights,
		tracker: NewTracker(baselines),
	}
}

// Tracker exposes the owned tracker for metric summaries.
func (c *Calculator) Tracker() *Tracker { return c.tracker }

// ResetMetrics clears all coverage and quality state between runs.
func (c *Calculator) ResetMetrics() { c.tracker.Reset() }

// Exploration scores one action outcome against the page it ran on: base
// success/failure, novelty bonuses for unseen pages/elements/interactions,
// and a small penalty for idle actions.
func (c *Calculator) Exploration(page schemas.PageState, action schemas.Action, success bool) float64 {
	var reward float64
	if success {
		reward += successBase
	} else {
		reward += failurePenalty
	}

	pageFP := PageFingerprint(page)
	newPages, newElements := c.tracker.RegisterObservation(page)
	reward += float64(newPages) * newPageBonus
	reward += float64(newElements) * newElementBonus

	switch action.Type {
	case schemas.ActionClick, schemas.ActionInput, schemas.ActionSelect:
		if success && c.tracker.RegisterInteraction(pageFP, action.Type, action.Target) {
			reward += newInteractionBonus
		}
	case schemas.ActionWait, schemas.ActionScrollUp, schemas.ActionScrollDown:
		reward += idleActionPenalty
	}

	return reward
}

// Coverage returns the tracker's coverage score.
func (c *Calculator) Coverage() float64 {
	return c.tracker.CoverageScore()
}

// Quality scores a generated scenario.
func (c *Calculator) Quality(scenario schemas.TestScenario) float64 {
	return c.tracker.EvaluateScenario(scenario)
}

// BugDiscovery sums the per-category bonuses for issues the generated tests
// surfaced. Categories are additive, not mutually exclusive.
func (c *Calculator) BugDiscovery(results schemas.TestResults) float64 {
	var reward float64
	if results.FailedAssertions > 0 {
		reward += assertionFailureBonus
	}
	if results.JavaScriptErrors > 0 {
		reward += scriptErrorBonus
	}
	if results.AccessibilityIssues > 0 {
		reward += accessibilityBonus
	}
	if results.PerformanceIssues > 0 {
		reward += performanceBonus
	}
	if results.SecurityVulnerabilities > 0 {
		reward += securityBonus
	}
	c.tracker.RecordBugDiscovery(results)
	return reward
}

// Efficiency rewards short, high-success episodes that buy coverage cheaply.
func (c *Calculator) Efficiency(stats schemas.EpisodeStats) float64 {
	var reward float64

	if stats.DurationSeconds < fastEpisodeSeconds {
		reward += fastEpisodeBonus
	} else if stats.DurationSeconds > slowEpisodeSeconds {
		reward += slowEpisodePenalty
	}

	if stats.TotalActions > 0 {
		rate := stats.SuccessRate()
		if rate >= highSuccessRate {
			reward += successRateBonus
		} else if rate < lowSuccessRate {
			reward += successRatePenalty
		}
	}

	coverage := c.tracker.Coverage()
	perAction := coverage.PageCoverage / float64(max(stats.TotalActions, 1))
	if perAction > coveragePerActionMin {
		reward += coverageGainBonus
	}

	return reward
}

// Total combines the five components with the fixed weights and fills in the
// breakdown's Total field.
func (c *Calculator) Total(b Breakdown) Breakdown {
	b.Total = b.Exploration*c.weights.Exploration +
		b.Coverage*c.weights.Coverage +
		b.Quality*c.weights.Quality +
		b.BugDiscovery*c.weights.BugDiscovery +
		b.Efficiency*c.weights.Efficiency
	return b
}
