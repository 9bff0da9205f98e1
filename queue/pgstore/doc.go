// Package pgstore persists the outgoing message queue in Postgres, so a
// restarted process resumes its undelivered outbox. It implements
// queue.Store over a pgx connection pool.
package pgstore
