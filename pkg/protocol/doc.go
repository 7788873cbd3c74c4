// Package protocol defines the livetree wire contract and the handler
// modifier model shared by server and client.
//
// # Messages
//
// All messages are JSON. The client sends EventMessage; the server answers
// every event with either an UpdateMessage (ordered patches, plus any
// handler metadata not yet transmitted on this connection) or an
// ErrorMessage. A BootMessage carrying the initial tree and the full
// handler metadata registry is sent once when a connection is established.
//
// # Modifiers
//
// A Modifier declares client-side event behavior for a handler: debounce,
// throttle, optimistic update, response caching, or client-state
// publication. Modifier lists are declared server-side, validated once at
// bind time by NewRegistry, and shipped to the client, which enforces them
// in a fixed pipeline order before an event ever reaches the network.
package protocol
