package participant

import (
	"context"

	"github.com/webitel/im-sync-core/internal/domain/model"
)

// NoopDirectory is the default Directory binding: it returns the peer
// unchanged. The real contact/identity lookup is an external collaborator
// (spec §6.2) with no generated client in this module's retrieval pack;
// BreakerDirectory still wraps this so swapping in a real client later
// doesn't change the enrichment call sites.
type NoopDirectory struct{}

func NewNoopDirectory() Directory { return NoopDirectory{} }

func (NoopDirectory) LookupPeer(_ context.Context, peer model.Peer, _ int64) (model.Peer, error) {
	return peer, nil
}
