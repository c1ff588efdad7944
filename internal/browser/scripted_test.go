// internal/browser/scripted_test.go
package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

func clickLink(t *testing.T, env *ScriptedEnvironment, text string) {
	t.Helper()
	obs, err := env.Observe(context.Background())
	require.NoError(t, err)
	for i := range obs.Elements {
		el := obs.Elements[i]
		if el.Type == schemas.ElementLink && el.Text == text {
			ok, err := env.Execute(context.Background(), schemas.Action{Type: schemas.ActionClick, Target: &el})
			require.NoError(t, err)
			require.True(t, ok, "click on %q", text)
			return
		}
	}
	t.Fatalf("no link %q on current page", text)
}

func TestDemoShop_LinkClicksNavigateTheGraph(t *testing.T) {
	env := DemoShop()
	require.NoError(t, env.Reset(context.Background()))

	clickLink(t, env, "Search")
	obs, err := env.Observe(context.Background())
	require.NoError(t, err)
	assert.Contains(t, obs.URL, "/search")

	clickLink(t, env, "Apple Juice")
	obs, err = env.Observe(context.Background())
	require.NoError(t, err)
	assert.Contains(t, obs.URL, "/product/1")

	// Back returns to the search page.
	ok, err := env.Execute(context.Background(), schemas.Action{Type: schemas.ActionNavigateBack})
	require.NoError(t, err)
	require.True(t, ok)
	obs, err = env.Observe(context.Background())
	require.NoError(t, err)
	assert.Contains(t, obs.URL, "/search")
}

func TestScriptedEnvironment_ResetReturnsToEntry(t *testing.T) {
	env := DemoShop()
	require.NoError(t, env.Reset(context.Background()))
	clickLink(t, env, "Login")

	require.NoError(t, env.Reset(context.Background()))
	obs, err := env.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://demo.shop.test/", obs.URL)

	// History is gone after a reset.
	ok, err := env.Execute(context.Background(), schemas.Action{Type: schemas.ActionNavigateBack})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScriptedEnvironment_RejectsNonInteractableTargets(t *testing.T) {
	env := DemoShop()
	require.NoError(t, env.Reset(context.Background()))

	dead := schemas.UIElement{Tag: "div", Type: schemas.ElementDiv}
	ok, err := env.Execute(context.Background(), schemas.Action{Type: schemas.ActionClick, Target: &dead})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.Execute(context.Background(), schemas.Action{Type: schemas.ActionClick})
	require.NoError(t, err)
	assert.False(t, ok)
}
