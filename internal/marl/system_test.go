// internal/marl/system_test.go
package marl

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
)

// scriptedEnv walks a fixed sequence of pages: every Execute succeeds and
// advances to the next page, wrapping around unless linear is set, in which
// case it stays on the last page. It records the actions it was asked to run
// so tests can reconstruct the expected reward exactly.
type scriptedEnv struct {
	pages    []schemas.Observation
	pos      int
	linear   bool
	executed []schemas.Action
	resets   int
}

func (s *scriptedEnv) Reset(ctx context.Context) error {
	s.pos = 0
	s.resets++
	return nil
}

func (s *scriptedEnv) Observe(ctx context.Context) (schemas.Observation, error) {
	return s.pages[s.pos], nil
}

func (s *scriptedEnv) Execute(ctx context.Context, action schemas.Action) (bool, error) {
	s.executed = append(s.executed, action)
	if s.linear {
		if s.pos < len(s.pages)-1 {
			s.pos++
		}
	} else {
		s.pos = (s.pos + 1) % len(s.pages)
	}
	return true, nil
}

func scriptedPages(n int) []schemas.Observation {
	pages := make([]schemas.Observation, n)
	for i := range pages {
		pages[i] = schemas.Observation{
			URL:   "https://shop.example.com/p" + string(rune('a'+i)),
			Title: "Page " + string(rune('A'+i)),
		}
	}
	return pages
}

func testSystemConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Training.MaxSteps = 6
	cfg.Training.UpdateFrequency = 1
	return cfg
}

func idleActionCount(actions []schemas.Action) int {
	count := 0
	for _, a := range actions {
		switch a.Type {
		case schemas.ActionWait, schemas.ActionScrollUp, schemas.ActionScrollDown:
			count++
		}
	}
	return count
}

func TestRunEpisode_FiveScriptedPagesExactReward(t *testing.T) {
	cfg := testSystemConfig()
	sys := NewSystem(cfg, rand.New(rand.NewSource(21)))
	env := &scriptedEnv{pages: scriptedPages(5)}

	report, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)

	require.Equal(t, 1, env.resets)
	require.Equal(t, 6, report.Stats.TotalActions)
	require.Equal(t, 6, report.Stats.SuccessfulActions)

	// Each action is scored against the page it ran on, so all five pages
	// land in the visited set: coverage is exactly 5 of the 50 baseline.
	cov := sys.Calculator().Tracker().Coverage()
	assert.Len(t, cov.PagesVisited, 5)
	assert.InDelta(t, 5.0/50.0, cov.PageCoverage, 1e-12)

	// Pages carry no elements, so the element and interaction terms vanish
	// and the coverage score reduces to the page term alone.
	wantCoverage := (5.0 / 50.0) * 0.4 * 10.0
	assert.InDelta(t, wantCoverage, report.Reward.Coverage, 1e-12)

	// Every action succeeded (+1 each), five page discoveries (+2 each), and
	// each wait/scroll pick cost the idle penalty.
	wantExploration := 6.0*1.0 + 5.0*2.0 - 0.1*float64(idleActionCount(env.executed))
	assert.InDelta(t, wantExploration, report.Reward.Exploration, 1e-9)

	// Instant episode, perfect success rate, page coverage per action
	// 0.1/6 > 0.01: all three efficiency bonuses land.
	assert.InDelta(t, 1.0+1.0+0.5, report.Reward.Efficiency, 1e-12)

	// No tests were executed, so no bug discovery component.
	assert.Zero(t, report.Reward.BugDiscovery)

	// Scenario quality is non-negative by construction; its exact value
	// depends on the sampled pattern and is folded into the total below.
	assert.GreaterOrEqual(t, report.Reward.Quality, 0.0)

	wantTotal := 0.30*report.Reward.Exploration +
		0.25*report.Reward.Coverage +
		0.20*report.Reward.Quality +
		0.15*report.Reward.BugDiscovery +
		0.10*report.Reward.Efficiency
	assert.InDelta(t, wantTotal, report.Reward.Total, 1e-9)

	assert.NotEmpty(t, report.Scenario.Name)
}

func TestRunEpisode_LinearPagesAllEnterCoverage(t *testing.T) {
	cfg := testSystemConfig()
	sys := NewSystem(cfg, rand.New(rand.NewSource(26)))
	env := &scriptedEnv{pages: scriptedPages(5), linear: true}

	report, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, 6, report.Stats.TotalActions)

	// The sequence never loops back, so the entry page is only ever the page
	// an action ran on, never a post-action observation. It must still be
	// counted: five distinct pages, coverage 5 of the 50 baseline.
	cov := sys.Calculator().Tracker().Coverage()
	assert.Len(t, cov.PagesVisited, 5)
	assert.InDelta(t, 5.0/50.0, cov.PageCoverage, 1e-12)

	// Six successes, five discoveries, minus whatever idle picks cost.
	wantExploration := 6.0*1.0 + 5.0*2.0 - 0.1*float64(idleActionCount(env.executed))
	assert.InDelta(t, wantExploration, report.Reward.Exploration, 1e-9)
}

func TestRunEpisode_ErrorURLTerminatesEarly(t *testing.T) {
	cfg := testSystemConfig()
	sys := NewSystem(cfg, rand.New(rand.NewSource(22)))
	pages := scriptedPages(3)
	pages[1].URL = "https://shop.example.com/error?code=500"
	env := &scriptedEnv{pages: pages}

	report, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)

	// The first action lands on the error page; the loop must stop there
	// instead of running out the step budget.
	assert.Equal(t, 1, report.Stats.TotalActions)
	assert.Contains(t, report.FinalURL, "error")
}

func TestRunEpisode_CoverageAccumulatesAcrossEpisodes(t *testing.T) {
	cfg := testSystemConfig()
	sys := NewSystem(cfg, rand.New(rand.NewSource(23)))
	env := &scriptedEnv{pages: scriptedPages(5)}

	first, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)
	second, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)

	// Same pages, no new discoveries: the second episode's exploration
	// reward drops to the bare success base minus idle penalties.
	assert.Less(t, second.Reward.Exploration, first.Reward.Exploration)
	assert.Equal(t, 2, second.Episode)
	assert.Len(t, sys.Calculator().Tracker().Coverage().PagesVisited, 5)
}

func TestResetMetrics_ClearsCoverageAndEpisodeCounter(t *testing.T) {
	cfg := testSystemConfig()
	sys := NewSystem(cfg, rand.New(rand.NewSource(24)))
	env := &scriptedEnv{pages: scriptedPages(5)}

	_, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)
	require.NotEmpty(t, sys.Calculator().Tracker().Coverage().PagesVisited)

	sys.ResetMetrics()
	assert.Empty(t, sys.Calculator().Tracker().Coverage().PagesVisited)

	report, err := sys.RunEpisode(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Episode)
}

func TestScoreResults_FeedsBugBonuses(t *testing.T) {
	cfg := testSystemConfig()
	sys := NewSystem(cfg, rand.New(rand.NewSource(25)))

	got := sys.ScoreResults(schemas.TestResults{
		FailedAssertions:        2,
		SecurityVulnerabilities: 1,
	})
	assert.InDelta(t, 3.0+5.0, got, 1e-12)
}
