package declare

import (
	"context"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/elements/pkg/element"
)

// EventPrefix marks an attribute as an event delegate.
const EventPrefix = "on-"

// ParseHostEvents normalizes the host event delegates declared on the
// element: "on-click", "ON-Click" and "click" all name the click event.
// Every delegate must name a handler, and spellings of the same event
// must agree on it.
func ParseHostEvents() element.Transform {
	return element.TransformFunc(func(_ context.Context, d *element.Draft) error {
		delegates := make(map[string]string, len(d.Delegates))
		spelled := make(map[string]string, len(d.Delegates))
		for _, key := range slices.Sorted(maps.Keys(d.Delegates)) {
			event := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), EventPrefix)
			handler := strings.TrimSpace(d.Delegates[key])
			if event == "" || handler == "" {
				return errf(d, "event delegate %q has no handler", key)
			}
			if prev, ok := delegates[event]; ok && prev != handler {
				return errf(d, "event %q is delegated to both %q (%s) and %q (%s)",
					event, prev, spelled[event], handler, key)
			}
			delegates[event] = handler
			spelled[event] = key
		}
		d.Delegates = delegates
		return nil
	})
}

// ParseLocalEvents collects the event names bound with on-* attributes
// inside the declaration's template.
func ParseLocalEvents() element.Transform {
	return element.TransformFunc(func(_ context.Context, d *element.Draft) error {
		if strings.TrimSpace(d.Declaration.Template) == "" {
			return nil
		}
		events, err := TemplateEvents(d.Declaration.Template)
		if err != nil {
			return wrapf(d, err, "parse template")
		}
		d.LocalEvents = append(d.LocalEvents, events...)
		return nil
	})
}

// TemplateEvents returns the event names bound in template markup, in
// document order. Duplicates are kept.
func TemplateEvents(template string) ([]string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(template), body)
	if err != nil {
		return nil, err
	}

	var events []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if name, ok := strings.CutPrefix(a.Key, EventPrefix); ok && name != "" {
					events = append(events, name)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return events, nil
}
