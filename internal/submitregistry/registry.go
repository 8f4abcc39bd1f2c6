// Package submitregistry implements the idempotency table keyed by
// local_message_id (spec §4.3, §3 Submit registry entry). A client that
// retries a submit after a dropped ack must get back the exact same
// SubmitResult rather than a second commit.
package submitregistry

import (
	"context"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Store is the durable backing for registered submits.
type Store interface {
	// Lookup returns the previously recorded result for localMessageID, if any.
	Lookup(ctx context.Context, localMessageID uuid.UUID) (*model.SubmitResult, bool, error)
	// Register durably records the outcome of a just-processed submit. It
	// must be called after the commit log append so a concurrent retry that
	// observes the registry entry can always find the corresponding commit.
	Register(ctx context.Context, localMessageID uuid.UUID, result model.SubmitResult) error
}

// Registry is the typed facade over Store.
type Registry struct {
	store Store
}

func New(store Store) *Registry {
	return &Registry{store: store}
}

// CheckDuplicate returns (result, true, nil) if localMessageID was already
// processed (spec §4.4 submit pipeline step 1).
func (r *Registry) CheckDuplicate(ctx context.Context, localMessageID uuid.UUID) (*model.SubmitResult, bool, error) {
	return r.store.Lookup(ctx, localMessageID)
}

// Register records the outcome of a submit so future retries are idempotent
// (spec §4.4 submit pipeline step 11).
func (r *Registry) Register(ctx context.Context, localMessageID uuid.UUID, result model.SubmitResult) error {
	return r.store.Register(ctx, localMessageID, result)
}
