// File: internal/browser/scripted.go
// Description: A deterministic in-memory environment. It serves a fixed page
// graph so the learning loop can run with no browser at all; the demo command
// and the integration tests both drive it.

package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

// ScriptedPage is one node of the scripted page graph. Link elements whose
// href names another page's URL move the environment there when clicked.
type ScriptedPage struct {
	URL      string
	Title    string
	Elements []schemas.UIElement
	User     schemas.UserContext
}

// ScriptedEnvironment implements schemas.Environment over a fixed page graph.
type ScriptedEnvironment struct {
	pages   map[string]ScriptedPage
	entry   string
	current string
	history []string
}

var _ schemas.Environment = (*ScriptedEnvironment)(nil)

// NewScriptedEnvironment builds an environment over the given pages. The
// first page is the entry point.
func NewScriptedEnvironment(pages ...ScriptedPage) (*ScriptedEnvironment, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("scripted environment needs at least one page")
	}
	index := make(map[string]ScriptedPage, len(pages))
	for _, p := range pages {
		index[p.URL] = p
	}
	return &ScriptedEnvironment{pages: index, entry: pages[0].URL, current: pages[0].URL}, nil
}

// Reset returns to the entry page and clears history.
func (e *ScriptedEnvironment) Reset(ctx context.Context) error {
	e.current = e.entry
	e.history = e.history[:0]
	return nil
}

// Observe returns the current page verbatim.
func (e *ScriptedEnvironment) Observe(ctx context.Context) (schemas.Observation, error) {
	page := e.pages[e.current]
	return schemas.Observation{
		URL:      page.URL,
		Title:    page.Title,
		Elements: page.Elements,
		User:     page.User,
	}, nil
}

// Execute applies one action against the page graph. Clicking a link whose
// href resolves to a known page navigates there; everything else succeeds in
// place when it targets an interactable element.
func (e *ScriptedEnvironment) Execute(ctx context.Context, action schemas.Action) (bool, error) {
	switch action.Type {
	case schemas.ActionClick:
		if action.Target == nil || !action.Target.Interactable {
			return false, nil
		}
		if href := action.Target.Attr("href"); href != "" {
			return e.navigate(href), nil
		}
		return true, nil

	case schemas.ActionInput, schemas.ActionSelect, schemas.ActionHover:
		return action.Target != nil && action.Target.Interactable, nil

	case schemas.ActionScrollUp, schemas.ActionScrollDown, schemas.ActionWait, schemas.ActionRefresh:
		return true, nil

	case schemas.ActionNavigateBack:
		if len(e.history) == 0 {
			return false, nil
		}
		e.current = e.history[len(e.history)-1]
		e.history = e.history[:len(e.history)-1]
		return true, nil

	case schemas.ActionNavigateForward:
		return false, nil

	case schemas.ActionNavigate:
		target := action.Value
		if target == "" && action.Target != nil {
			target = action.Target.Attr("href")
		}
		return e.navigate(target), nil

	default:
		return false, nil
	}
}

func (e *ScriptedEnvironment) navigate(href string) bool {
	for url := range e.pages {
		if url == href || strings.HasSuffix(url, href) {
			e.history = append(e.history, e.current)
			e.current = url
			return true
		}
	}
	return false
}

// DemoShop returns a small scripted storefront: home, login, search, a
// product page, and a basket. Enough surface for the full learning loop to
// find novelty without a live target.
func DemoShop() *ScriptedEnvironment {
	const base = "https://demo.shop.test"

	link := func(text, href string) schemas.UIElement {
		return schemas.UIElement{
			Tag: "a", Text: text, Type: schemas.ElementLink,
			Attributes: map[string]string{"href": href},
			Visible:    true, Enabled: true, Interactable: true,
			XPath: "//a[text()='" + text + "']", CSSSelector: "a",
		}
	}
	button := func(text, id string) schemas.UIElement {
		return schemas.UIElement{
			Tag: "button", Text: text, Type: schemas.ElementButton,
			Attributes: map[string]string{"id": id},
			Visible:    true, Enabled: true, Interactable: true,
			XPath: "//button[@id='" + id + "']", CSSSelector: "#" + id,
		}
	}
	input := func(id, typ string) schemas.UIElement {
		return schemas.UIElement{
			Tag: "input", Type: schemas.ElementInput,
			Attributes: map[string]string{"id": id, "type": typ},
			Visible:    true, Enabled: true, Interactable: true,
			XPath: "//input[@id='" + id + "']", CSSSelector: "#" + id,
		}
	}

	env, _ := NewScriptedEnvironment(
		ScriptedPage{
			URL: base + "/", Title: "Demo Shop",
			Elements: []schemas.UIElement{
				link("Login", base + "/login"),
				link("Search", base + "/search"),
				link("Basket", base + "/basket"),
				button("Deals of the day", "deals"),
			},
		},
		ScriptedPage{
			URL: base + "/login", Title: "Login - Demo Shop",
			Elements: []schemas.UIElement{
				input("email", "email"),
				input("password", "password"),
				button("Login", "login-button"),
				link("Back", base + "/"),
			},
		},
		ScriptedPage{
			URL: base + "/search", Title: "Search - Demo Shop",
			Elements: []schemas.UIElement{
				input("q", "text"),
				button("Search", "search-button"),
				link("Apple Juice", base + "/product/1"),
				link("Home", base + "/"),
			},
		},
		ScriptedPage{
			URL: base + "/product/1", Title: "Apple Juice - Demo Shop",
			Elements: []schemas.UIElement{
				button("Add to Basket", "add-to-basket"),
				link("Basket", base + "/basket"),
				link("Home", base + "/"),
			},
		},
		ScriptedPage{
			URL: base + "/basket", Title: "Your Basket - Demo Shop",
			Elements: []schemas.UIElement{
				button("Checkout", "checkout-button"),
				link("Continue shopping", base + "/"),
			},
			User: schemas.UserContext{HasItemsInBasket: true},
		},
	)
	return env
}
