// File: internal/state/encoder.go
// Description: Turns a raw page observation into the fixed-width numeric
// vector the agents learn on, and classifies pages into coarse categories.

package state

import (
	"strings"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

// Sub-block widths of the encoded vector. The encoder broadcasts each scalar
// feature across its block so downstream function approximators see a wider,
// smoother input than a bare histogram would give.
const (
	elementTypeBlock = 10
	attributeBlock   = 5
	pageContextBlock = 10
	userContextBlock = 5
)

// VectorSize is the exact length of every encoded state vector.
// 11 element types x 10 + 7 attribute types x 5 + 10 + 5 = 160.
var VectorSize = len(schemas.ElementTypes)*elementTypeBlock +
	len(schemas.AttributeTypes)*attributeBlock +
	pageContextBlock + userContextBlock

// Fixed normalization constants for the user-context scalars.
const (
	userIDNorm            = 1000.0
	sessionDurationNorm   = 3600.0 // seconds
	pageViewsNorm         = 100.0
	failedLoginsNorm      = 10.0
	successfulActionsNorm = 50.0
	urlLengthNorm         = 100.0
)

// Encoder converts page states into numeric vectors.
type Encoder struct {
	// maxElements caps the element-count ratio feature; matches the
	// environment's element extraction limit.
	maxElements int
}

// NewEncoder returns an Encoder. maxElements must match the environment's
// element cap; values <= 0 fall back to 100.
func NewEncoder(maxElements int) *Encoder {
	if maxElements <= 0 {
		maxElements = 100
	}
	return &Encoder{maxElements: maxElements}
}

// Encode returns the fixed-width feature vector for a page state. The result
// always has exactly VectorSize finite entries; a page with zero elements
// yields zeros for the per-type and per-attribute blocks rather than dividing
// by zero.
func (e *Encoder) Encode(page schemas.PageState) []float64 {
	vec := make([]float64, VectorSize)
	idx := 0
	n := len(page.Elements)

	// Element type occupancy, normalized by element count and broadcast
	// across each type's block.
	counts := make(map[schemas.ElementType]int, len(schemas.ElementTypes))
	for _, el := range page.Elements {
		counts[el.Type]++
	}
	for _, t := range schemas.ElementTypes {
		var ratio float64
		if n > 0 {
			ratio = float64(counts[t]) / float64(n)
		}
		for i := 0; i < elementTypeBlock; i++ {
			vec[idx+i] = ratio
		}
		idx += elementTypeBlock
	}

	// Attribute presence ratios.
	for _, attr := range schemas.AttributeTypes {
		var ratio float64
		if n > 0 {
			present := 0
			for _, el := range page.Elements {
				if el.Attr(attr) != "" {
					present++
				}
			}
			ratio = float64(present) / float64(n)
		}
		for i := 0; i < attributeBlock; i++ {
			vec[idx+i] = ratio
		}
		idx += attributeBlock
	}

	// Page context scalars.
	vec[idx+0] = float64(n) / float64(e.maxElements)
	vec[idx+1] = boolFeature(page.Type == schemas.PageLogin)
	vec[idx+2] = boolFeature(page.Type == schemas.PageProduct)
	vec[idx+3] = boolFeature(page.Type == schemas.PageBasket)
	vec[idx+4] = boolFeature(page.Type == schemas.PageAdmin)
	vec[idx+5] = float64(len(page.URL)) / urlLengthNorm
	vec[idx+6] = boolFeature(page.User.LoggedIn)
	vec[idx+7] = boolFeature(page.User.IsAdmin)
	vec[idx+8] = boolFeature(page.User.HasItemsInBasket)
	vec[idx+9] = boolFeature(page.User.IsDeluxeUser)
	idx += pageContextBlock

	// User context scalars.
	vec[idx+0] = float64(page.User.UserID) / userIDNorm
	vec[idx+1] = page.User.SessionDuration.Seconds() / sessionDurationNorm
	vec[idx+2] = float64(page.User.PageViews) / pageViewsNorm
	vec[idx+3] = float64(page.User.FailedLogins) / failedLoginsNorm
	vec[idx+4] = float64(page.User.SuccessfulActions) / successfulActionsNorm

	return vec
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// ClassifyPage determines a page's category from its URL, title, and element
// text. Checks run in a fixed priority order; the first match wins.
func ClassifyPage(url, title string, elements []schemas.UIElement) schemas.PageType {
	urlLower := strings.ToLower(url)
	titleLower := strings.ToLower(title)

	switch {
	case strings.Contains(urlLower, "login") || strings.Contains(titleLower, "login"):
		return schemas.PageLogin
	case strings.Contains(urlLower, "register") || strings.Contains(titleLower, "register"):
		return schemas.PageRegister
	case strings.Contains(urlLower, "basket") || strings.Contains(urlLower, "cart"):
		return schemas.PageBasket
	case strings.Contains(urlLower, "product") || anyElementMentions(elements, "product"):
		return schemas.PageProduct
	case strings.Contains(urlLower, "admin") || strings.Contains(titleLower, "administration"):
		return schemas.PageAdmin
	case strings.Contains(urlLower, "profile") || strings.Contains(urlLower, "account"):
		return schemas.PageProfile
	case strings.Contains(urlLower, "search"):
		return schemas.PageSearch
	default:
		return schemas.PageGeneral
	}
}

func anyElementMentions(elements []schemas.UIElement, keyword string) bool {
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Text), keyword) {
			return true
		}
	}
	return false
}
