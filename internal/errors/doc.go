// Package errors provides structured, coded errors for the element
// registration engine and its tooling.
//
// Every error carries a stable code (e.g. "E201") that maps to a short
// message and a longer explanation. Errors raised
// while loading declaration documents also carry the source location of
// the offending declaration.
//
// # Error Categories
//
//   - registration: request lifecycle problems (invalid names, lost waiters)
//   - composition: prototype assembly failures (missing supertype base)
//   - platform: native registration rejected the type
//   - transform: a declarative transform step failed
//   - loader: declaration documents could not be fetched or decoded
//   - server: inspection API errors
//   - config: configuration file or flag problems
//
// # Usage
//
//	err := errors.New("E201").
//	    WithElement("fancy-widget").
//	    WithDetail(`no intrinsic or registered prototype for "fancy-bas"`).
//	    WithSuggestion("Check the extends attribute for typos")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E201: Missing supertype base
//	//
//	//   element: fancy-widget
//	//
//	//   no intrinsic or registered prototype for "fancy-bas"
//	//
//	//   Hint: Check the extends attribute for typos
package errors
