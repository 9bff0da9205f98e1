// Package queue implements the bounded outgoing message queue: messages
// produced while the connection is down are held here, ordered by priority
// and age, aged out by TTL, and drained once per transition into the
// connected state.
//
// Persistence is optional: a Store implementation (see pgstore for the
// Postgres-backed one) receives a snapshot after each mutation so a
// restarted process can pick up its undelivered outbox.
package queue
