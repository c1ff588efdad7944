// File: api/schemas/interfaces.go
// Description: Contracts between the learning core and its collaborators.
// Keeping these here lets the core be wired against a real browser session,
// a scripted fake, or anything else without import cycles.

package schemas

import "context"

// Observation is the raw material the environment hands back each tick.
type Observation struct {
	URL      string
	Title    string
	Elements []UIElement
	User     UserContext
}

// Environment is the browser-shaped collaborator the orchestrator drives.
// Implementations must tolerate stale element references in Execute and
// report failure rather than crash the caller.
type Environment interface {
	// Reset navigates to the application's entry point for a fresh episode.
	Reset(ctx context.Context) error
	// Observe returns the current page observation.
	Observe(ctx context.Context) (Observation, error)
	// Execute performs one action and reports whether it succeeded. A false
	// return is an expected outcome, not an error; err is reserved for the
	// environment itself becoming unusable.
	Execute(ctx context.Context, action Action) (bool, error)
}

// ScenarioWriter renders an ordered list of scenarios into an external test
// runner's script format.
type ScenarioWriter interface {
	Render(scenarios []TestScenario) (string, error)
}
