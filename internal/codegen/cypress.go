// File: internal/codegen/cypress.go
// Description: Renders generated scenarios into a runnable Cypress spec file.
// Mapping step/assertion records to cy.* command chains happens in Go; the
// template only owns the file layout.

package codegen

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

const specTemplate = `// Generated UI test suite
// Generated at: {{ .GeneratedAt }}
// Scenarios: {{ len .Scenarios }}

{{ range .Scenarios -}}
describe('{{ js .Description }}', () => {
  it('{{ js .Title }}', () => {
{{- range .Commands }}
    {{ . }}
{{- end }}
{{- range .Assertions }}
    {{ . }}
{{- end }}
  });
});

{{ end -}}`

// patternDescriptions gives each known pattern a human-readable suite name.
// Unknown patterns fall back to a generic description.
var patternDescriptions = map[schemas.TestPattern]string{
	schemas.PatternLoginFlow:        "User login flow",
	schemas.PatternRegistrationFlow: "New user registration",
	schemas.PatternProductSearch:    "Product search",
	schemas.PatternAddToBasket:      "Add product to basket",
	schemas.PatternCheckoutFlow:     "Checkout flow",
	schemas.PatternUserProfile:      "User profile management",
	schemas.PatternAdminFunctions:   "Admin functions",
	schemas.PatternErrorHandling:    "Error handling and invalid input",
	schemas.PatternSecurityTests:    "Security probes",
	schemas.PatternAccessibility:    "Accessibility checks",
}

type scenarioView struct {
	Description string
	Title       string
	Commands    []string
	Assertions  []string
}

type specView struct {
	GeneratedAt string
	Scenarios   []scenarioView
}

// CypressWriter renders scenarios as a Cypress spec. It implements
// schemas.ScenarioWriter.
type CypressWriter struct {
	tmpl *template.Template
}

var _ schemas.ScenarioWriter = (*CypressWriter)(nil)

// NewCypressWriter compiles the Cypress spec file template once.
func NewCypressWriter() *CypressWriter {
	tmpl := template.Must(template.New("cypress").
		Funcs(template.FuncMap{"js": escapeJS}).
		Parse(specTemplate))
	return &CypressWriter{tmpl: tmpl}
}

// Render produces the full spec file contents for the given scenarios.
func (w *CypressWriter) Render(scenarios []schemas.TestScenario) (string, error) {
	view := specView{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Scenarios:   make([]scenarioView, 0, len(scenarios)),
	}
	for _, sc := range scenarios {
		view.Scenarios = append(view.Scenarios, buildScenarioView(sc))
	}

	var b strings.Builder
	if err := w.tmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("render cypress spec: %w", err)
	}
	return b.String(), nil
}

func buildScenarioView(sc schemas.TestScenario) scenarioView {
	desc, ok := patternDescriptions[sc.Pattern]
	if !ok {
		desc = "Generated scenario (" + string(sc.Pattern) + ")"
	}

	view := scenarioView{
		Description: desc,
		Title:       sc.Name,
	}
	for _, step := range sc.Steps {
		if cmd := commandFor(step); cmd != "" {
			view.Commands = append(view.Commands, cmd)
		}
	}
	for _, a := range sc.Assertions {
		if cmd := assertionFor(a); cmd != "" {
			view.Assertions = append(view.Assertions, cmd)
		}
	}
	return view
}

// commandFor maps one step onto a cy.* call chain. Steps the runner cannot
// express map to empty and are skipped.
func commandFor(step schemas.TestStep) string {
	switch step.Action {
	case schemas.ActionNavigate:
		return fmt.Sprintf("cy.visit('%s');", escapeJS(step.Target))
	case schemas.ActionInput:
		return fmt.Sprintf("cy.get('%s').clear().type('%s');",
			escapeJS(selectorFor(step.Target)), escapeJS(step.Value))
	case schemas.ActionClick:
		return fmt.Sprintf("cy.get('%s').click();", escapeJS(selectorFor(step.Target)))
	case schemas.ActionSelect:
		return fmt.Sprintf("cy.get('%s').select('%s');",
			escapeJS(selectorFor(step.Target)), escapeJS(step.Value))
	case schemas.ActionWait:
		millis := step.Duration * 1000
		if millis <= 0 {
			millis = 1000
		}
		return fmt.Sprintf("cy.wait(%d);", millis)
	case schemas.ActionScrollUp:
		return "cy.scrollTo('top');"
	case schemas.ActionScrollDown:
		return "cy.scrollTo('bottom');"
	case schemas.ActionHover:
		return fmt.Sprintf("cy.get('%s').trigger('mouseover');", escapeJS(selectorFor(step.Target)))
	case schemas.ActionNavigateBack:
		return "cy.go('back');"
	case schemas.ActionNavigateForward:
		return "cy.go('forward');"
	case schemas.ActionRefresh:
		return "cy.reload();"
	default:
		return ""
	}
}

func assertionFor(a schemas.TestAssertion) string {
	switch a.Type {
	case schemas.AssertURLContains:
		return fmt.Sprintf("cy.url().should('include', '%s');", escapeJS(a.Value))
	case schemas.AssertElementVisible:
		return fmt.Sprintf("cy.get('%s').should('be.visible');", escapeJS(selectorFor(a.Target)))
	case schemas.AssertElementCount:
		return fmt.Sprintf("cy.get('%s').should('have.length.of.at.least', %d);",
			escapeJS(selectorFor(a.Target)), max(a.Min, 1))
	case schemas.AssertTextContains:
		return fmt.Sprintf("cy.get('%s').should('contain.text', '%s');",
			escapeJS(selectorFor(a.Target)), escapeJS(a.Value))
	case schemas.AssertAttributeEquals:
		return fmt.Sprintf("cy.get('%s').should('have.attr', '%s', '%s');",
			escapeJS(selectorFor(a.Target)), escapeJS(a.Attribute), escapeJS(a.Value))
	case schemas.AssertCSSProperty:
		return fmt.Sprintf("cy.get('%s').should('have.css', '%s', '%s');",
			escapeJS(selectorFor(a.Target)), escapeJS(a.Attribute), escapeJS(a.Value))
	case schemas.AssertPerformanceMetric:
		return fmt.Sprintf("// performance check (manual): %s", escapeJS(a.Value))
	case schemas.AssertAccessibilityCheck:
		return "cy.injectAxe(); cy.checkA11y();"
	default:
		return ""
	}
}

// selectorFor resolves a step target to a CSS selector. Targets that already
// look like selectors pass through; bare names address an id in kebab case.
func selectorFor(target string) string {
	if target == "" {
		return "body"
	}
	if strings.HasPrefix(target, ".") || strings.HasPrefix(target, "#") ||
		strings.HasPrefix(target, "[") || strings.ContainsAny(target, " >:") {
		return target
	}
	return "#" + strings.ReplaceAll(target, "_", "-")
}

// escapeJS makes a string safe inside a single-quoted JS literal.
func escapeJS(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
