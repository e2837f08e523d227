// Package loader reads declaration documents and feeds them to an
// element engine.
//
// A document carries element declarations (the markup side of a
// component type) and script definitions (its members). Documents are
// JSON, YAML, or HCL:
//
//	element "fancy-button" {
//	  extends    = "button"
//	  attributes = "label size"
//	  events     = { click = "onActivate" }
//	}
//
//	script "fancy-button" {
//	  members = { greeting = "hello" }
//	}
//
// Sources are files, directories (scanned for supported extensions), or
// s3://bucket/prefix URIs. Documents are fetched concurrently and applied
// in the order their fetches complete; the engine's order independence
// makes every interleaving equivalent.
//
// Watch keeps a loader running against directory sources and applies
// new documents as they appear.
package loader
