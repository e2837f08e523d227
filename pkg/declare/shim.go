package declare

import (
	"context"
	"regexp"
	"strings"

	"github.com/vango-dev/elements/pkg/element"
)

// ShimStyles scopes the type's styles to its elements: every selector is
// prefixed with the element's scope selector and :host is rewritten to
// the scope itself. Types extending an intrinsic tag are scoped as
// tag[is="name"].
func ShimStyles() element.Transform {
	return element.TransformFunc(func(_ context.Context, d *element.Draft) error {
		if len(d.Styles) == 0 {
			return nil
		}
		scope := ScopeSelector(d.Declaration.Name, d.Extends)
		for i, css := range d.Styles {
			d.Styles[i] = ScopeCSS(css, scope)
		}
		return nil
	})
}

// ScopeSelector returns the selector matching elements of type name.
func ScopeSelector(name, extends string) string {
	if extends != "" && !element.IsCustomName(extends) {
		return extends + `[is="` + name + `"]`
	}
	return name
}

var cssComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

// ScopeCSS rewrites every rule selector in css under scope. Rules nested
// in @media and @supports are scoped too; other at-rules are copied
// unchanged.
func ScopeCSS(css, scope string) string {
	var b strings.Builder
	scopeBlock(&b, cssComment.ReplaceAllString(css, ""), scope)
	return strings.TrimSpace(b.String())
}

func scopeBlock(b *strings.Builder, css, scope string) {
	for {
		open := strings.IndexByte(css, '{')
		if open < 0 {
			return
		}
		prelude := strings.TrimSpace(css[:open])
		end := matchBrace(css, open)
		body := css[open+1 : end]
		if end < len(css) {
			css = css[end+1:]
		} else {
			css = ""
		}

		switch {
		case strings.HasPrefix(prelude, "@media"), strings.HasPrefix(prelude, "@supports"):
			b.WriteString(prelude)
			b.WriteString(" {\n")
			scopeBlock(b, body, scope)
			b.WriteString("}\n")
		case strings.HasPrefix(prelude, "@"):
			b.WriteString(prelude)
			b.WriteString(" {")
			b.WriteString(body)
			b.WriteString("}\n")
		default:
			b.WriteString(scopeSelectors(prelude, scope))
			b.WriteString(" {")
			b.WriteString(body)
			b.WriteString("}\n")
		}
	}
}

// matchBrace returns the index of the brace closing the one at open, or
// len(css) if it is unterminated.
func matchBrace(css string, open int) int {
	depth := 0
	for i := open; i < len(css); i++ {
		switch css[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(css)
}

func scopeSelectors(list, scope string) string {
	parts := strings.Split(list, ",")
	for i, sel := range parts {
		parts[i] = scopeSelector(strings.TrimSpace(sel), scope)
	}
	return strings.Join(parts, ", ")
}

func scopeSelector(sel, scope string) string {
	rest, ok := strings.CutPrefix(sel, ":host")
	if !ok {
		return scope + " " + sel
	}
	if strings.HasPrefix(rest, "(") {
		if end := strings.IndexByte(rest, ')'); end > 0 {
			return scope + rest[1:end] + rest[end+1:]
		}
	}
	return scope + rest
}
