// Package element implements the registration engine for declarative
// component types.
//
// A component type becomes usable once two things have happened: its
// Definition (the member set contributed by script) has been declared with
// Define, and a Declaration asking for the name has been submitted with
// RequestRegistration. The two may arrive in any order. When the
// declaration extends another custom element, registration additionally
// waits until that supertype has itself been registered.
//
// # Lifecycle
//
// Every registration request moves through a small state machine:
//
//	Created → AwaitingDefinition → AwaitingSupertype → Composing → Registered
//
// A request that cannot advance is parked in the Wait Ledger and resumed by
// the notifier when the missing definition or supertype appears. Requests
// that fail composition or native registration end in Failed; requests
// whose dependencies never arrive stay pending forever and are visible via
// Engine.Pending.
//
// # Composition
//
// The final Prototype for a type is built by merging, in order of
// increasing precedence:
//
//  1. the supertype's registered prototype, or the platform's intrinsic
//     prototype for a built-in base tag;
//  2. the base capability set, inserted as its own link exactly once per
//     chain;
//  3. the definition's own members.
//
// Published attribute and event delegate tables are inherited the same way:
// a subtype sees the union of its ancestors' tables and its own, with its
// own entries winning.
//
// # Scheduling
//
// The engine is cooperative. Every public call runs to completion under a
// single lock, and waiters are resumed synchronously from inside the call
// that satisfied them. Work scheduled for "after the current task" (the
// no-script fallback) runs when the outermost Batch returns:
//
//	eng := element.New(platform.New(), element.WithTransforms(declare.Pipeline(nil)...))
//
//	var h *element.Handle
//	err := eng.Batch(ctx, func(tx *element.Tx) error {
//	    var err error
//	    h, err = tx.RequestRegistration(element.Declaration{Name: "x-note", NoScript: true})
//	    if err != nil {
//	        return err
//	    }
//	    // a definition declared here still wins over the empty fallback
//	    return tx.Define("x-note", &element.Definition{Members: element.Members{"text": "hi"}})
//	})
//	fmt.Println(h.Status()) // registered
package element
