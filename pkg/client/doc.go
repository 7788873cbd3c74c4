// Package client implements the browser-side half of the update protocol
// in Go: the event pipeline with its handler modifiers, the patch applier,
// and the supporting response cache, state bus, and draft persistence
// hook. It backs native Go clients and the protocol's test suite.
//
// Everything runs on a single cooperative Loop: debounce and throttle
// timers are callbacks scheduled on that loop, and optimistic mutation and
// patch application are synchronous loop operations, so an optimistic
// write can never tear against an arriving patch.
//
// For a handler decorated with several modifiers the pipeline applies
// them in a fixed order: optimistic feedback first, then debounce or
// throttle gate the network send, the cache is consulted at send time,
// and client-state keys are published last with the value that actually
// went out.
package client
