package queue

import "context"

// Store persists the queue contents so a restarted process can resume its
// undelivered outbox. Save receives a full snapshot after each mutation;
// implementations decide how to make that cheap.
type Store interface {
	// Save replaces the persisted outbox with the snapshot.
	Save(ctx context.Context, msgs []Message) error

	// Load returns the persisted outbox.
	Load(ctx context.Context) ([]Message, error)
}
