// File: internal/reward/tracker.go
// Description: Coverage and quality bookkeeping. Fingerprints observed pages,
// elements, and interactions to deduplicate them, and scores scenario quality.

package reward

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

// Baselines are fixed estimates of the target application's total reachable
// surface; coverage ratios are set sizes divided by these totals.
type Baselines struct {
	TotalPages        int
	TotalElements     int
	TotalInteractions int
}

// CoverageMetrics holds the deduplication sets and their derived ratios.
// Sets only grow between resets, so the ratios are monotone within a run.
type CoverageMetrics struct {
	PagesVisited          map[uint64]struct{}
	ElementsDiscovered    map[uint64]struct{}
	InteractionsPerformed map[uint64]struct{}

	PageCoverage        float64
	ElementCoverage     float64
	InteractionCoverage float64
}

// QualityMetrics holds the running scenario-quality scores.
type QualityMetrics struct {
	TestDiversity     float64
	TestComplexity    float64
	AssertionCoverage float64
	EdgeCaseCoverage  float64
	BugDiscoveryRate  float64
}

// Tracker owns coverage and quality state for one training run. It is not
// safe for concurrent use.
type Tracker struct {
	baselines Baselines
	coverage  CoverageMetrics
	quality   QualityMetrics

	// seenPatterns backs the diversity score: patterns already generated
	// this run contribute nothing new.
	seenPatterns map[schemas.TestPattern]struct{}
	evaluated    int
}

// NewTracker returns a Tracker with empty sets.
func NewTracker(b Baselines) *Tracker {
	t := &Tracker{baselines: b}
	t.Reset()
	return t
}

// Reset clears every set and score for a new independent training run.
func (t *Tracker) Reset() {
	t.coverage = CoverageMetrics{
		PagesVisited:          make(map[uint64]struct{}),
		ElementsDiscovered:    make(map[uint64]struct{}),
		InteractionsPerformed: make(map[uint64]struct{}),
	}
	t.quality = QualityMetrics{}
	t.seenPatterns = make(map[schemas.TestPattern]struct{})
	t.evaluated = 0
}

// Coverage returns a copy of the current coverage metrics with ratios
// recomputed from set sizes.
func (t *Tracker) Coverage() CoverageMetrics {
	t.recomputeRatios()
	c := t.coverage
	// Hand out copies of the sets' sizes only through the struct copy; the
	// maps themselves stay owned by the tracker.
	return c
}

// Quality returns the current quality metrics.
func (t *Tracker) Quality() QualityMetrics { return t.quality }

// PageFingerprint identifies a page by URL, title, and type.
func PageFingerprint(page schemas.PageState) uint64 {
	return fingerprint(page.URL, page.Title, string(page.Type))
}

// ElementFingerprint identifies an element by tag, type, and structural locator.
func ElementFingerprint(el schemas.UIElement) uint64 {
	return fingerprint(el.Tag, string(el.Type), el.XPath)
}

// InteractionFingerprint identifies one (page, action, element) triple. A nil
// target hashes as "none" so the key is always well defined, even for the
// first interaction of an episode.
func InteractionFingerprint(pageFP uint64, action schemas.ActionType, target *schemas.UIElement) uint64 {
	elementKey := "none"
	if target != nil {
		elementKey = fmt.Sprintf("%x", ElementFingerprint(*target))
	}
	return fingerprint(fmt.Sprintf("%x", pageFP), string(action), elementKey)
}

func fingerprint(parts ...string) uint64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return h.Sum64()
}

// RegisterObservation fingerprints a page and its elements, adding unseen
// ones to the coverage sets. It returns how many pages (0 or 1) and elements
// were newly discovered so the caller can reward novelty.
func (t *Tracker) RegisterObservation(page schemas.PageState) (newPages, newElements int) {
	pageFP := PageFingerprint(page)
	if _, seen := t.coverage.PagesVisited[pageFP]; !seen {
		t.coverage.PagesVisited[pageFP] = struct{}{}
		newPages = 1
	}
	for _, el := range page.Elements {
		fp := ElementFingerprint(el)
		if _, seen := t.coverage.ElementsDiscovered[fp]; !seen {
			t.coverage.ElementsDiscovered[fp] = struct{}{}
			newElements++
		}
	}
	return newPages, newElements
}

// RegisterInteraction records one (page, action, element) triple and reports
// whether it was new.
func (t *Tracker) RegisterInteraction(pageFP uint64, action schemas.ActionType, target *schemas.UIElement) bool {
	fp := InteractionFingerprint(pageFP, action, target)
	if _, seen := t.coverage.InteractionsPerformed[fp]; seen {
		return false
	}
	t.coverage.InteractionsPerformed[fp] = struct{}{}
	return true
}

func (t *Tracker) recomputeRatios() {
	t.coverage.PageCoverage = float64(len(t.coverage.PagesVisited)) / float64(t.baselines.TotalPages)
	t.coverage.ElementCoverage = float64(len(t.coverage.ElementsDiscovered)) / float64(t.baselines.TotalElements)
	t.coverage.InteractionCoverage = float64(len(t.coverage.InteractionsPerformed)) / float64(t.baselines.TotalInteractions)
}

// Coverage score weights and milestone thresholds.
const (
	pageCoverageWeight        = 0.4
	elementCoverageWeight     = 0.4
	interactionCoverageWeight = 0.2
	coverageScale             = 10.0
	pageMilestone             = 0.8
	elementMilestone          = 0.7
	milestoneBonus            = 5.0
)

// CoverageScore recomputes the three coverage ratios and combines them into
// one scalar, with milestone bonuses once page and element coverage cross
// their thresholds.
func (t *Tracker) CoverageScore() float64 {
	t.recomputeRatios()

	score := (t.coverage.PageCoverage*pageCoverageWeight +
		t.coverage.ElementCoverage*elementCoverageWeight +
		t.coverage.InteractionCoverage*interactionCoverageWeight) * coverageScale

	if t.coverage.PageCoverage >= pageMilestone {
		score += milestoneBonus
	}
	if t.coverage.ElementCoverage >= elementMilestone {
		score += milestoneBonus
	}
	return score
}

// Scenario quality scoring constants. Caps bound the reward magnitude so a
// degenerate scenario can't run away with the score.
const (
	completenessStepBonus      = 2.0
	completenessAssertionBonus = 2.0
	highValuePatternBonus      = 1.5
	criticalPatternBonus       = 2.0
	complexityCap              = 10.0
	assertionQualityCap        = 10.0
	edgeCaseCap                = 5.0
)

var highValuePatterns = map[schemas.TestPattern]struct{}{
	schemas.PatternLoginFlow:        {},
	schemas.PatternRegistrationFlow: {},
	schemas.PatternCheckoutFlow:     {},
}

var criticalPatterns = map[schemas.TestPattern]struct{}{
	schemas.PatternSecurityTests: {},
	schemas.PatternErrorHandling: {},
}

// EvaluateScenario scores a generated scenario's completeness, pattern value,
// complexity, assertion quality, and edge-case coverage. Missing or empty
// fields contribute zero; nothing here errors. The running quality metrics
// are updated as a side effect.
func (t *Tracker) EvaluateScenario(scenario schemas.TestScenario) float64 {
	var score float64

	if len(scenario.Steps) >= 3 {
		score += completenessStepBonus
	}
	if len(scenario.Assertions) >= 2 {
		score += completenessAssertionBonus
	}

	if _, ok := highValuePatterns[scenario.Pattern]; ok {
		score += highValuePatternBonus
	} else if _, ok := criticalPatterns[scenario.Pattern]; ok {
		score += criticalPatternBonus
	}

	complexity := stepComplexity(scenario.Steps)
	assertionQuality := assertionQuality(scenario.Assertions)
	edgeCases := edgeCaseScore(scenario.Steps)

	score += complexity * 0.5
	score += assertionQuality * 0.3
	score += edgeCases * 0.4

	t.updateQuality(scenario, complexity, assertionQuality, edgeCases)
	return score
}

func (t *Tracker) updateQuality(scenario schemas.TestScenario, complexity, assertionQuality, edgeCases float64) {
	t.evaluated++
	if _, seen := t.seenPatterns[scenario.Pattern]; !seen {
		t.seenPatterns[scenario.Pattern] = struct{}{}
	}
	t.quality.TestDiversity = float64(len(t.seenPatterns)) / float64(len(schemas.TestPatterns))
	t.quality.TestComplexity = runningMean(t.quality.TestComplexity, complexity/complexityCap, t.evaluated)
	t.quality.AssertionCoverage = runningMean(t.quality.AssertionCoverage, assertionQuality/assertionQualityCap, t.evaluated)
	t.quality.EdgeCaseCoverage = runningMean(t.quality.EdgeCaseCoverage, edgeCases/edgeCaseCap, t.evaluated)
}

// RecordBugDiscovery folds one batch of test results into the running
// bug-discovery rate (fraction of evaluations that surfaced at least one
// issue).
func (t *Tracker) RecordBugDiscovery(results schemas.TestResults) {
	found := 0.0
	if results.FailedAssertions > 0 || results.JavaScriptErrors > 0 ||
		results.AccessibilityIssues > 0 || results.PerformanceIssues > 0 ||
		results.SecurityVulnerabilities > 0 {
		found = 1.0
	}
	if t.evaluated == 0 {
		t.quality.BugDiscoveryRate = found
		return
	}
	t.quality.BugDiscoveryRate = runningMean(t.quality.BugDiscoveryRate, found, t.evaluated)
}

func runningMean(current, sample float64, n int) float64 {
	if n <= 1 {
		return sample
	}
	return current + (sample-current)/float64(n)
}

// Per-action complexity weights.
func stepComplexity(steps []schemas.TestStep) float64 {
	var complexity float64
	for _, step := range steps {
		switch step.Action {
		case schemas.ActionClick, schemas.ActionInput:
			complexity += 1.0
		case schemas.ActionWait:
			complexity += 0.5
		case schemas.ActionScrollUp, schemas.ActionScrollDown, schemas.ActionHover:
			complexity += 0.3
		default:
			// navigate and friends
			complexity += 0.5
		}
		if step.Condition != "" {
			complexity += 0.5
		}
		if strings.HasPrefix(step.Value, "${") {
			complexity += 0.3
		}
	}
	return min(complexity, complexityCap)
}

func assertionQuality(assertions []schemas.TestAssertion) float64 {
	var quality float64
	for _, a := range assertions {
		switch a.Type {
		case schemas.AssertElementVisible, schemas.AssertTextContains:
			quality += 1.0
		case schemas.AssertURLContains, schemas.AssertElementCount:
			quality += 1.5
		case schemas.AssertAttributeEquals, schemas.AssertCSSProperty:
			quality += 2.0
		case schemas.AssertPerformanceMetric, schemas.AssertAccessibilityCheck:
			quality += 2.5
		}
	}
	return min(quality, assertionQualityCap)
}

var sqlKeywords = []string{"union", "select", "drop", "insert"}

func edgeCaseScore(steps []schemas.TestStep) float64 {
	var score float64
	for _, step := range steps {
		value := step.Value
		if value == "" || value == "null" || value == "undefined" {
			score += 1.0
		}
		if strings.ContainsAny(value, `<>"'&`) {
			score += 1.0
		}
		if len(value) > 100 {
			score += 1.0
		}
		lower := strings.ToLower(value)
		for _, kw := range sqlKeywords {
			if strings.Contains(lower, kw) {
				score += 2.0
				break
			}
		}
	}
	return min(score, edgeCaseCap)
}
