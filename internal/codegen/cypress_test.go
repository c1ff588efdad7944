// internal/codegen/cypress_test.go
package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

func loginScenario() schemas.TestScenario {
	return schemas.TestScenario{
		Name:    "marl_generated_login_flow_abc12345",
		Pattern: schemas.PatternLoginFlow,
		Steps: []schemas.TestStep{
			{Action: schemas.ActionNavigate, Target: "/login"},
			{Action: schemas.ActionInput, Target: "email", Value: "test@example.com"},
			{Action: schemas.ActionInput, Target: "password", Value: "password123"},
			{Action: schemas.ActionClick, Target: "login_button"},
		},
		Assertions: []schemas.TestAssertion{
			{Type: schemas.AssertURLContains, Value: "/search"},
			{Type: schemas.AssertElementVisible, Target: "user_menu"},
		},
		Priority: "medium",
	}
}

func TestRender_LoginFlowSpec(t *testing.T) {
	out, err := NewCypressWriter().Render([]schemas.TestScenario{loginScenario()})
	require.NoError(t, err)

	assert.Contains(t, out, "describe('User login flow'")
	assert.Contains(t, out, "it('marl_generated_login_flow_abc12345'")
	assert.Contains(t, out, "cy.visit('/login');")
	assert.Contains(t, out, "cy.get('#email').clear().type('test@example.com');")
	assert.Contains(t, out, "cy.get('#login-button').click();")
	assert.Contains(t, out, "cy.url().should('include', '/search');")
	assert.Contains(t, out, "cy.get('#user-menu').should('be.visible');")
}

func TestRender_MultipleScenariosEachGetABlock(t *testing.T) {
	scenarios := []schemas.TestScenario{
		loginScenario(),
		{Name: "s2", Pattern: schemas.PatternProductSearch},
		{Name: "s3", Pattern: schemas.PatternAccessibility},
	}
	out, err := NewCypressWriter().Render(scenarios)
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(out, "describe("))
	assert.Equal(t, 3, strings.Count(out, "it("))
	assert.Contains(t, out, "Scenarios: 3")
}

func TestRender_UnknownPatternGetsDefaultDescription(t *testing.T) {
	out, err := NewCypressWriter().Render([]schemas.TestScenario{
		{Name: "odd", Pattern: schemas.TestPattern("made_up")},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "describe('Generated scenario (made_up)'")
}

func TestRender_EscapesSingleQuotesInValues(t *testing.T) {
	out, err := NewCypressWriter().Render([]schemas.TestScenario{
		{
			Name:    "sqli_probe",
			Pattern: schemas.PatternErrorHandling,
			Steps: []schemas.TestStep{
				{Action: schemas.ActionInput, Target: "email", Value: "' OR 1=1--"},
			},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `type('\' OR 1=1--')`)
	assert.NotContains(t, out, "type('' OR")
}

func TestRender_SelectorPassthroughAndMapping(t *testing.T) {
	cases := []struct {
		target string
		want   string
	}{
		{"login_button", "#login-button"},
		{".product-card", ".product-card"},
		{"#raw-id", "#raw-id"},
		{".product-card:first-child", ".product-card:first-child"},
		{"", "body"},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, selectorFor(tc.target), "target %q", tc.target)
	}
}

func TestRender_WaitAndScrollCommands(t *testing.T) {
	out, err := NewCypressWriter().Render([]schemas.TestScenario{
		{
			Name:    "misc",
			Pattern: schemas.PatternProductSearch,
			Steps: []schemas.TestStep{
				{Action: schemas.ActionWait, Duration: 2},
				{Action: schemas.ActionWait},
				{Action: schemas.ActionScrollDown},
				{Action: schemas.ActionNavigateBack},
			},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "cy.wait(2000);")
	assert.Contains(t, out, "cy.wait(1000);")
	assert.Contains(t, out, "cy.scrollTo('bottom');")
	assert.Contains(t, out, "cy.go('back');")
}

func TestRender_AttributeAndCSSAssertionsCarryExpectedValue(t *testing.T) {
	out, err := NewCypressWriter().Render([]schemas.TestScenario{
		{
			Name:    "attrs",
			Pattern: schemas.PatternErrorHandling,
			Assertions: []schemas.TestAssertion{
				{Type: schemas.AssertAttributeEquals, Target: "login_button", Attribute: "disabled", Value: "disabled"},
				{Type: schemas.AssertCSSProperty, Target: ".error", Attribute: "color", Value: "rgb(255, 0, 0)"},
			},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "cy.get('#login-button').should('have.attr', 'disabled', 'disabled');")
	assert.Contains(t, out, "cy.get('.error').should('have.css', 'color', 'rgb(255, 0, 0)');")
}

func TestRender_EmptyScenarioListStillRendersHeader(t *testing.T) {
	out, err := NewCypressWriter().Render(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated UI test suite")
	assert.NotContains(t, out, "describe(")
}
