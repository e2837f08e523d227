// Package declare implements the declarative features folded into a
// component type while it is being composed: published attributes, host
// and template event delegates, external stylesheets, and style scoping.
//
// Each feature is an element.Transform. Pipeline returns them in the
// order they must run:
//
//	eng := element.New(doc, element.WithTransforms(declare.Pipeline(fetcher)...))
package declare
