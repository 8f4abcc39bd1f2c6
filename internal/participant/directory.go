// Package participant resolves channel membership and enriches business
// peers (names, routing identifiers) for the sync engine and message
// router, and tracks per-user unread counters. Adapted from the teacher's
// internal/service/peer_enricher.go + enricher_middleware.go.
package participant

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Directory is the external collaborator that resolves a Peer's display
// identity (spec §6.2 external collaborator contracts). In the teacher this
// was a generated contact/v1 gRPC client; no .proto sources for it exist in
// this module's retrieval pack (see DESIGN.md), so it is expressed here as
// a plain interface any directory backend can satisfy.
type Directory interface {
	LookupPeer(ctx context.Context, peer model.Peer, domainID int64) (model.Peer, error)
}

// BreakerDirectory wraps a Directory with a circuit breaker so a failing
// directory service degrades to "return the peer unresolved" instead of
// stalling every submit behind a dead external dependency.
type BreakerDirectory struct {
	next    Directory
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerDirectory(next Directory) *BreakerDirectory {
	settings := gobreaker.Settings{
		Name:        "participant-directory",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
	return &BreakerDirectory{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (d *BreakerDirectory) LookupPeer(ctx context.Context, peer model.Peer, domainID int64) (model.Peer, error) {
	result, err := d.breaker.Execute(func() (any, error) {
		return d.next.LookupPeer(ctx, peer, domainID)
	})
	if err != nil {
		// [RESILIENCE] Graceful fallback: keep the message moving with the
		// unresolved peer rather than failing the whole submit/delivery.
		return peer, nil
	}
	return result.(model.Peer), nil
}
