// File: internal/browser/dom.go
// Description: Turns a raw HTML snapshot into the element records the agents
// reason about: classification, locator generation, and the element cap.

package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
)

// observedTags are the tags worth surfacing to the agents. Everything else is
// page furniture.
var observedTags = map[string]struct{}{
	"a": {}, "button": {}, "input": {}, "select": {}, "textarea": {},
	"img": {}, "form": {}, "div": {}, "span": {}, "label": {},
}

// ExtractElements parses an HTML document and returns up to maxElements
// element records in document order. A malformed document is parsed as far as
// the tokenizer allows; only a completely unreadable one is an error.
func ExtractElements(htmlContent string, maxElements int) ([]schemas.UIElement, error) {
	doc, err := htmlquery.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var elements []schemas.UIElement
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if maxElements > 0 && len(elements) >= maxElements {
			return
		}
		if n.Type == html.ElementNode {
			if _, ok := observedTags[n.Data]; ok {
				if el, keep := buildElement(n); keep {
					elements = append(elements, el)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return elements, nil
}

func buildElement(n *html.Node) (schemas.UIElement, bool) {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}

	kind := classifyElement(n.Data, attrs)

	// Bare containers with no text and no identity are noise; surfacing them
	// just burns element budget.
	text := elementText(n)
	if (kind == schemas.ElementDiv || kind == schemas.ElementSpan || kind == schemas.ElementOther) &&
		text == "" && attrs["id"] == "" && attrs["class"] == "" {
		return schemas.UIElement{}, false
	}

	visible := !isHidden(attrs)
	_, disabled := attrs["disabled"]
	enabled := !disabled

	el := schemas.UIElement{
		Tag:          n.Data,
		Text:         text,
		Attributes:   attrs,
		Visible:      visible,
		Enabled:      enabled,
		Interactable: visible && enabled && isInteractableKind(kind),
		Type:         kind,
		XPath:        buildXPath(n),
		CSSSelector:  buildCSSSelector(n, attrs),
	}
	return el, true
}

// classifyElement maps a tag plus its attributes to an element kind. Inputs
// split further by their type attribute.
func classifyElement(tag string, attrs map[string]string) schemas.ElementType {
	switch tag {
	case "button":
		return schemas.ElementButton
	case "a":
		return schemas.ElementLink
	case "select":
		return schemas.ElementSelect
	case "textarea":
		return schemas.ElementTextarea
	case "img":
		return schemas.ElementImage
	case "div":
		return schemas.ElementDiv
	case "span":
		return schemas.ElementSpan
	case "input":
		switch strings.ToLower(attrs["type"]) {
		case "checkbox":
			return schemas.ElementCheckbox
		case "radio":
			return schemas.ElementRadio
		case "button", "submit", "reset", "image":
			return schemas.ElementButton
		default:
			return schemas.ElementInput
		}
	default:
		return schemas.ElementOther
	}
}

func isInteractableKind(kind schemas.ElementType) bool {
	switch kind {
	case schemas.ElementButton, schemas.ElementInput, schemas.ElementLink,
		schemas.ElementSelect, schemas.ElementTextarea,
		schemas.ElementCheckbox, schemas.ElementRadio:
		return true
	}
	return false
}

func isHidden(attrs map[string]string) bool {
	if _, ok := attrs["hidden"]; ok {
		return true
	}
	if strings.EqualFold(attrs["type"], "hidden") {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attrs["style"]), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// elementText collects the node's direct and nested text, collapsed to single
// spaces and truncated so one giant wall of text can't dominate a record.
func elementText(n *html.Node) string {
	text := strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
	const maxText = 120
	if len(text) > maxText {
		cut := maxText
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// buildXPath produces an absolute positional XPath for the node, the locator
// of record for re-finding the element at execution time.
func buildXPath(n *html.Node) string {
	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		idx := 1
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == cur.Data {
				idx++
			}
		}
		segments = append([]string{fmt.Sprintf("%s[%d]", cur.Data, idx)}, segments...)
	}
	return "/" + strings.Join(segments, "/")
}

// buildCSSSelector prefers a stable id, falls back to tag plus first class,
// and finally the bare tag. Cosmetic; XPath is what execution resolves.
func buildCSSSelector(n *html.Node, attrs map[string]string) string {
	if id := attrs["id"]; id != "" {
		return "#" + id
	}
	if class := attrs["class"]; class != "" {
		if first := strings.Fields(class); len(first) > 0 {
			return n.Data + "." + first[0]
		}
	}
	return n.Data
}
