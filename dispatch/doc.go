// Package dispatch implements the typed event dispatcher: a pub/sub
// registry keyed by envelope type, with per-binding priority, one-shot
// bindings, and wildcard subscriptions. It is independent of the transport
// and safe for concurrent use.
package dispatch
