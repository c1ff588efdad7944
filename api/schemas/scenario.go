// File: api/schemas/scenario.go
// Description: Records describing a synthesized test scenario and the outcome
// of executing one. Scenarios are built once by the test-generation agent and
// never mutated afterwards, except by deliberate field overrides from a
// calling collaborator.

package schemas

// TestPattern names a scenario template the generation agent knows how to
// expand.
type TestPattern string

const (
	PatternLoginFlow        TestPattern = "login_flow"
	PatternRegistrationFlow TestPattern = "registration_flow"
	PatternProductSearch    TestPattern = "product_search"
	PatternAddToBasket      TestPattern = "add_to_basket"
	PatternCheckoutFlow     TestPattern = "checkout_flow"
	PatternUserProfile      TestPattern = "user_profile"
	PatternAdminFunctions   TestPattern = "admin_functions"
	PatternErrorHandling    TestPattern = "error_handling"
	PatternSecurityTests    TestPattern = "security_tests"
	PatternAccessibility    TestPattern = "accessibility_tests"
)

// TestPatterns is the fixed pattern space the policy head samples over;
// sampled indices are reduced modulo its length.
var TestPatterns = []TestPattern{
	PatternLoginFlow, PatternRegistrationFlow, PatternProductSearch,
	PatternAddToBasket, PatternCheckoutFlow, PatternUserProfile,
	PatternAdminFunctions, PatternErrorHandling, PatternSecurityTests,
	PatternAccessibility,
}

// TestStep is one concrete step of a scenario. Optional fields are zero when
// unused; consumers treat zero values as "not set".
type TestStep struct {
	Action    ActionType `json:"action"`
	Target    string     `json:"target,omitempty"`
	Value     string     `json:"value,omitempty"`
	Duration  int        `json:"duration,omitempty"` // seconds, wait steps only
	Condition string     `json:"condition,omitempty"`
}

// AssertionType names a verification kind the serializer knows how to render.
type AssertionType string

const (
	AssertURLContains        AssertionType = "url_contains"
	AssertElementVisible     AssertionType = "element_visible"
	AssertElementCount       AssertionType = "element_count"
	AssertTextContains       AssertionType = "text_contains"
	AssertAttributeEquals    AssertionType = "attribute_equals"
	AssertCSSProperty        AssertionType = "css_property"
	AssertPerformanceMetric  AssertionType = "performance_metric"
	AssertAccessibilityCheck AssertionType = "accessibility_check"
)

// TestAssertion is one expected outcome of a scenario.
type TestAssertion struct {
	Type      AssertionType `json:"type"`
	Target    string        `json:"target,omitempty"`
	Attribute string        `json:"attribute,omitempty"`
	Value     string        `json:"value,omitempty"`
	Min       int           `json:"min,omitempty"`
	Max       int           `json:"max,omitempty"`
}

// TestScenario is a fully expanded test case ready for serialization.
type TestScenario struct {
	Name       string            `json:"name"`
	Pattern    TestPattern       `json:"pattern"`
	Steps      []TestStep        `json:"steps"`
	Assertions []TestAssertion   `json:"assertions"`
	TestData   map[string]string `json:"test_data,omitempty"`
	Priority   string            `json:"priority"`
}

// TestResults summarizes what happened when generated tests were executed.
// Counters are additive inputs to the bug-discovery reward; every field
// defaulting to zero keeps missing results harmless.
type TestResults struct {
	FailedAssertions        int `json:"failed_assertions"`
	JavaScriptErrors        int `json:"javascript_errors"`
	AccessibilityIssues     int `json:"accessibility_issues"`
	PerformanceIssues       int `json:"performance_issues"`
	SecurityVulnerabilities int `json:"security_vulnerabilities"`
}

// EpisodeStats aggregates one episode's exploration for the efficiency reward
// and the generation agent's summary features.
type EpisodeStats struct {
	TotalActions      int     `json:"total_actions"`
	SuccessfulActions int     `json:"successful_actions"`
	DurationSeconds   float64 `json:"duration_seconds"`
}

// SuccessRate returns successful/total actions, or 0 for an empty episode.
func (s EpisodeStats) SuccessRate() float64 {
	if s.TotalActions == 0 {
		return 0
	}
	return float64(s.SuccessfulActions) / float64(s.TotalActions)
}
