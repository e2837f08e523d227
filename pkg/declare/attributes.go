package declare

import (
	"context"
	"strings"

	"github.com/vango-dev/elements/pkg/element"
)

// PublishMember is the definition member holding a map of published
// attribute names to defaults.
const PublishMember = "publish"

// ParseAttributes publishes the names listed in the declaration's
// attributes list and in the definition's publish member. Defaults given
// in the declaration's publish map win over the publish member; names
// only listed in the attributes list default to nil.
func ParseAttributes() element.Transform {
	return element.TransformFunc(func(_ context.Context, d *element.Draft) error {
		if m, ok := d.Members[PublishMember]; ok {
			publish, ok := m.(map[string]any)
			if !ok {
				return errf(d, "member %q must be a map, got %T", PublishMember, m)
			}
			for name, def := range publish {
				if _, exists := d.Attributes[name]; !exists {
					d.Publish(name, def)
				}
			}
		}
		for _, name := range SplitAttributes(d.Declaration.Attributes) {
			if _, exists := d.Attributes[name]; !exists {
				d.Publish(name, nil)
			}
		}
		return nil
	})
}

// SplitAttributes splits an attribute list on whitespace and commas.
func SplitAttributes(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
