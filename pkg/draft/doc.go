// Package draft defines the key-value persistence hook for recoverable
// in-progress input, with in-memory and S3-backed implementations.
//
// The client pipeline writes a draft whenever a debounced input handler is
// waiting to fire and clears it once the server acknowledges the event, so
// a crashed or reloaded client can offer to restore what the user typed.
package draft
