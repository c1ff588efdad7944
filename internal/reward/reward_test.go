// internal/reward/reward_test.go
package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

func defaultWeights() Weights {
	return Weights{
		Exploration:  0.30,
		Coverage:     0.25,
		Quality:      0.20,
		BugDiscovery: 0.15,
		Efficiency:   0.10,
	}
}

func defaultBaselines() Baselines {
	return Baselines{TotalPages: 50, TotalElements: 1000, TotalInteractions: 100}
}

func pageWithElements(url string, n int) schemas.PageState {
	elements := make([]schemas.UIElement, 0, n)
	for i := 0; i < n; i++ {
		elements = append(elements, schemas.UIElement{
			Tag:   "button",
			Type:  schemas.ElementButton,
			XPath: url + "/button[" + string(rune('a'+i)) + "]",
		})
	}
	return schemas.PageState{
		URL:       url,
		Title:     "t",
		Elements:  elements,
		Type:      schemas.PageGeneral,
		Timestamp: time.Now(),
	}
}

func TestCoverageRatios_MonotoneUntilReset(t *testing.T) {
	tracker := NewTracker(defaultBaselines())

	var lastPage, lastElement float64
	urls := []string{"/a", "/b", "/b", "/c", "/a"}
	for _, u := range urls {
		tracker.RegisterObservation(pageWithElements(u, 3))
		cov := tracker.Coverage()
		assert.GreaterOrEqual(t, cov.PageCoverage, lastPage)
		assert.GreaterOrEqual(t, cov.ElementCoverage, lastElement)
		lastPage = cov.PageCoverage
		lastElement = cov.ElementCoverage
	}

	// Three distinct pages out of fifty.
	assert.InDelta(t, 3.0/50.0, lastPage, 1e-12)

	tracker.Reset()
	cov := tracker.Coverage()
	assert.Zero(t, cov.PageCoverage)
	assert.Zero(t, cov.ElementCoverage)
	assert.Zero(t, cov.InteractionCoverage)
	assert.Empty(t, cov.PagesVisited)
}

func TestRegisterObservation_ReportsNovelty(t *testing.T) {
	tracker := NewTracker(defaultBaselines())

	newPages, newElements := tracker.RegisterObservation(pageWithElements("/a", 4))
	assert.Equal(t, 1, newPages)
	assert.Equal(t, 4, newElements)

	// Re-observing the identical page discovers nothing.
	newPages, newElements = tracker.RegisterObservation(pageWithElements("/a", 4))
	assert.Zero(t, newPages)
	assert.Zero(t, newElements)
}

func TestExploration_FirstPageBeatsRepeatByAtLeastNewPageBonus(t *testing.T) {
	page := pageWithElements("/fresh", 0)
	action := schemas.Action{Type: schemas.ActionWait}

	calcFirst := NewCalculator(defaultWeights(), defaultBaselines())
	first := calcFirst.Exploration(page, action, true)

	calcRepeat := NewCalculator(defaultWeights(), defaultBaselines())
	calcRepeat.Exploration(page, action, true)
	repeat := calcRepeat.Exploration(page, action, true)

	assert.GreaterOrEqual(t, first-repeat, newPageBonus)
}

func TestExploration_InteractionBonusOnlyOnce(t *testing.T) {
	calc := NewCalculator(defaultWeights(), defaultBaselines())
	page := pageWithElements("/p", 1)
	target := &page.Elements[0]
	action := schemas.Action{Type: schemas.ActionClick, Target: target}

	first := calc.Exploration(page, action, true)
	second := calc.Exploration(page, action, true)

	// First call: +1 success, +2 new page, +0.5 new element, +1 new interaction.
	assert.InDelta(t, 4.5, first, 1e-12)
	// Second call: +1 success only.
	assert.InDelta(t, 1.0, second, 1e-12)
}

func TestExploration_FailedInteractionEarnsNoBonus(t *testing.T) {
	calc := NewCalculator(defaultWeights(), defaultBaselines())
	page := pageWithElements("/p", 1)
	action := schemas.Action{Type: schemas.ActionClick, Target: &page.Elements[0]}

	got := calc.Exploration(page, action, false)
	// -0.5 failure, +2 new page, +0.5 new element; no interaction bonus.
	assert.InDelta(t, 2.0, got, 1e-12)
}

func TestInteractionFingerprint_NilTargetIsStable(t *testing.T) {
	a := InteractionFingerprint(42, schemas.ActionClick, nil)
	b := InteractionFingerprint(42, schemas.ActionClick, nil)
	el := schemas.UIElement{Tag: "button", Type: schemas.ElementButton, XPath: "/x"}
	c := InteractionFingerprint(42, schemas.ActionClick, &el)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCoverageScore_MilestoneBonuses(t *testing.T) {
	tracker := NewTracker(Baselines{TotalPages: 5, TotalElements: 10, TotalInteractions: 10})

	// Visit four of five pages (0.8 coverage) with seven elements total.
	for _, u := range []string{"/a", "/b", "/c", "/d"} {
		tracker.RegisterObservation(pageWithElements(u, 0))
	}
	tracker.RegisterObservation(pageWithElements("/a", 7))

	score := tracker.CoverageScore()
	base := (0.8*pageCoverageWeight + 0.7*elementCoverageWeight) * coverageScale
	assert.InDelta(t, base+2*milestoneBonus, score, 1e-9)
}

func TestEvaluateScenario_Components(t *testing.T) {
	tracker := NewTracker(defaultBaselines())

	scenario := schemas.TestScenario{
		Name:    "login",
		Pattern: schemas.PatternLoginFlow,
		Steps: []schemas.TestStep{
			{Action: schemas.ActionNavigateBack, Target: "/login"},
			{Action: schemas.ActionInput, Target: "email", Value: "a@b.c"},
			{Action: schemas.ActionClick, Target: "submit"},
		},
		Assertions: []schemas.TestAssertion{
			{Type: schemas.AssertURLContains, Value: "/search"},
			{Type: schemas.AssertElementVisible, Target: "menu"},
		},
	}

	score := tracker.EvaluateScenario(scenario)
	// Completeness 2+2, high-value pattern 1.5, complexity (0.5+1+1)*0.5,
	// assertions (1.5+1)*0.3; two valueless steps count as empty-value edge
	// cases: 2*0.4.
	assert.InDelta(t, 4+1.5+1.25+0.75+0.8, score, 1e-9)
}

func TestEvaluateScenario_EmptyScenarioDegradesToZeroish(t *testing.T) {
	tracker := NewTracker(defaultBaselines())
	score := tracker.EvaluateScenario(schemas.TestScenario{})
	assert.Zero(t, score)
}

func TestEvaluateScenario_EdgeCaseCap(t *testing.T) {
	tracker := NewTracker(defaultBaselines())
	steps := make([]schemas.TestStep, 10)
	for i := range steps {
		steps[i] = schemas.TestStep{Action: schemas.ActionInput, Value: "' UNION SELECT * FROM users --"}
	}
	scenario := schemas.TestScenario{Pattern: schemas.PatternSecurityTests, Steps: steps}

	// Edge-case contribution must be capped at edgeCaseCap regardless of how
	// many injection-shaped steps pile up.
	score := tracker.EvaluateScenario(scenario)
	withoutEdge := completenessStepBonus + criticalPatternBonus + complexityCap*0.5
	assert.InDelta(t, withoutEdge+edgeCaseCap*0.4, score, 1e-9)
}

func TestBugDiscovery_AdditiveBonuses(t *testing.T) {
	calc := NewCalculator(defaultWeights(), defaultBaselines())

	assert.Zero(t, calc.BugDiscovery(schemas.TestResults{}))
	assert.InDelta(t, 3.0, calc.BugDiscovery(schemas.TestResults{FailedAssertions: 2}), 1e-12)
	all := calc.BugDiscovery(schemas.TestResults{
		FailedAssertions:        1,
		JavaScriptErrors:        1,
		AccessibilityIssues:     1,
		PerformanceIssues:       1,
		SecurityVulnerabilities: 1,
	})
	assert.InDelta(t, 12.5, all, 1e-12)
}

func TestEfficiency(t *testing.T) {
	cases := []struct {
		name  string
		stats schemas.EpisodeStats
		want  float64
	}{
		{"fast and accurate", schemas.EpisodeStats{TotalActions: 10, SuccessfulActions: 9, DurationSeconds: 30}, 2.0},
		{"slow and sloppy", schemas.EpisodeStats{TotalActions: 10, SuccessfulActions: 2, DurationSeconds: 400}, -1.0},
		{"no actions", schemas.EpisodeStats{DurationSeconds: 30}, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calc := NewCalculator(defaultWeights(), defaultBaselines())
			assert.InDelta(t, tc.want, calc.Efficiency(tc.stats), 1e-12)
		})
	}
}

func TestEfficiency_CoveragePerActionBonus(t *testing.T) {
	calc := NewCalculator(defaultWeights(), defaultBaselines())
	// Two fresh pages against a 50 page baseline is 0.04 coverage; with only
	// three actions that clears the 0.01-per-action threshold.
	calc.Exploration(pageWithElements("/a", 0), schemas.Action{Type: schemas.ActionClick}, true)
	calc.Exploration(pageWithElements("/b", 0), schemas.Action{Type: schemas.ActionClick}, true)

	got := calc.Efficiency(schemas.EpisodeStats{TotalActions: 3, SuccessfulActions: 3, DurationSeconds: 10})
	assert.InDelta(t, fastEpisodeBonus+successRateBonus+coverageGainBonus, got, 1e-12)
}

func TestTotal_WeightedSumExact(t *testing.T) {
	calc := NewCalculator(defaultWeights(), defaultBaselines())
	b := calc.Total(Breakdown{
		Exploration:  10,
		Coverage:     4,
		Quality:      5,
		BugDiscovery: 3,
		Efficiency:   2,
	})
	require.InDelta(t, 10*0.30+4*0.25+5*0.20+3*0.15+2*0.10, b.Total, 1e-12)
}
