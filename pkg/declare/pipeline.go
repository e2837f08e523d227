package declare

import "github.com/vango-dev/elements/pkg/element"

// Pipeline returns the declarative transforms in the order they run:
// attributes, host events, template events, external sheets, then style
// scoping. A nil fetcher skips sheet installation.
func Pipeline(fetcher SheetFetcher) []element.Transform {
	ts := []element.Transform{
		ParseAttributes(),
		ParseHostEvents(),
		ParseLocalEvents(),
	}
	if fetcher != nil {
		ts = append(ts, InstallSheets(fetcher))
	}
	return append(ts, ShimStyles())
}
