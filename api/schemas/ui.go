// File: api/schemas/ui.go
// Description: Shared domain records describing observed pages, their elements,
// and the actions agents may take against them.

package schemas

import "time"

// ElementType categorizes a UI element into one of a fixed set of kinds.
type ElementType string

const (
	ElementButton   ElementType = "button"
	ElementInput    ElementType = "input"
	ElementLink     ElementType = "link"
	ElementSelect   ElementType = "select"
	ElementTextarea ElementType = "textarea"
	ElementCheckbox ElementType = "checkbox"
	ElementRadio    ElementType = "radio"
	ElementImage    ElementType = "image"
	ElementDiv      ElementType = "div"
	ElementSpan     ElementType = "span"
	ElementOther    ElementType = "other"
)

// ElementTypes lists every known element type in a fixed order. The state
// encoder indexes its occupancy histogram by position in this slice.
var ElementTypes = []ElementType{
	ElementButton, ElementInput, ElementLink, ElementSelect, ElementTextarea,
	ElementCheckbox, ElementRadio, ElementImage, ElementDiv, ElementSpan,
	ElementOther,
}

// AttributeTypes lists the element attributes the encoder tracks presence of.
var AttributeTypes = []string{"id", "class", "type", "value", "placeholder", "href", "src"}

// BoundingBox is an element's position and size in page coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UIElement is an immutable record of one element observed on a page.
// The two locators exist only so the environment can address the element
// later; a locator going stale is an execution failure, not a schema error.
type UIElement struct {
	Tag            string            `json:"tag"`
	Text           string            `json:"text"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Box            BoundingBox       `json:"box"`
	Visible        bool              `json:"visible"`
	Enabled        bool              `json:"enabled"`
	Interactable   bool              `json:"interactable"`
	Type           ElementType       `json:"type"`
	XPath          string            `json:"xpath"`
	CSSSelector    string            `json:"css_selector"`
}

// Attr returns the named attribute, or "" when absent. Missing attributes are
// an expected condition, never an error.
func (e *UIElement) Attr(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}

// PageType is the coarse category a page is classified into.
type PageType string

const (
	PageLogin    PageType = "login"
	PageRegister PageType = "register"
	PageBasket   PageType = "basket"
	PageProduct  PageType = "product"
	PageAdmin    PageType = "admin"
	PageProfile  PageType = "profile"
	PageSearch   PageType = "search"
	PageGeneral  PageType = "general"
)

// UserContext carries session facts that color a page observation. The zero
// value is a logged-out, empty session.
type UserContext struct {
	LoggedIn          bool          `json:"logged_in"`
	IsAdmin           bool          `json:"is_admin"`
	HasItemsInBasket  bool          `json:"has_items_in_basket"`
	IsDeluxeUser      bool          `json:"is_deluxe_user"`
	UserID            int           `json:"user_id"`
	SessionDuration   time.Duration `json:"session_duration"`
	PageViews         int           `json:"page_views"`
	FailedLogins      int           `json:"failed_logins"`
	SuccessfulActions int           `json:"successful_actions"`
}

// PageState is one observation tick of the application under test. Element
// order is discovery order, capped by the environment's element limit. The
// orchestrator owns each instance for the duration of its tick.
type PageState struct {
	URL       string      `json:"url"`
	Title     string      `json:"title"`
	Elements  []UIElement `json:"elements"`
	User      UserContext `json:"user"`
	Type      PageType    `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// ActionType enumerates the moves the exploration agent can make.
type ActionType string

const (
	ActionClick           ActionType = "click"
	ActionInput           ActionType = "type"
	ActionSelect          ActionType = "select"
	ActionScrollUp        ActionType = "scroll_up"
	ActionScrollDown      ActionType = "scroll_down"
	ActionWait            ActionType = "wait"
	ActionNavigateBack    ActionType = "navigate_back"
	ActionNavigateForward ActionType = "navigate_forward"
	ActionRefresh         ActionType = "refresh"
	ActionHover           ActionType = "hover"
	// ActionNavigate appears only in generated scenario steps; direct URL
	// navigation is not part of the exploration action space.
	ActionNavigate ActionType = "navigate"
)

// ActionTypes lists every action type in a fixed order; the exploration
// agent's value head is indexed by position in this slice.
var ActionTypes = []ActionType{
	ActionClick, ActionInput, ActionSelect, ActionScrollUp, ActionScrollDown,
	ActionWait, ActionNavigateBack, ActionNavigateForward, ActionRefresh,
	ActionHover,
}

// ActionTypeIndex maps an action type to its position in ActionTypes, or -1
// for an unknown type.
func ActionTypeIndex(t ActionType) int {
	for i, at := range ActionTypes {
		if at == t {
			return i
		}
	}
	return -1
}

// Action is one concrete move. Target is a weak reference: the environment
// resolves its locator at execution time and reports failure if it has gone
// stale.
type Action struct {
	Type       ActionType     `json:"type"`
	Target     *UIElement     `json:"target,omitempty"`
	Value      string         `json:"value,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}
