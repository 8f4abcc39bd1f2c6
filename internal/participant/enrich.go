package participant

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/webitel/im-sync-core/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Enricher augments business peers with display identity ahead of fan-out
// (spec §4.4 submit pipeline step 7's SenderInfo, carried here generalized
// to both From/To peers).
type Enricher struct {
	directory Directory
	cache     *lru.Cache[string, model.Peer]
}

func NewEnricher(directory Directory) *Enricher {
	cache, _ := lru.New[string, model.Peer](10_000)
	return &Enricher{directory: directory, cache: cache}
}

// ResolvePeers concurrently resolves From and To (errgroup fans the two
// lookups out and waits for both, exactly as the teacher's PeerEnricher does).
func (e *Enricher) ResolvePeers(ctx context.Context, from, to model.Peer, domainID int64) (model.Peer, model.Peer, error) {
	g, gCtx := errgroup.WithContext(ctx)

	resFrom, resTo := from, to
	g.Go(func() error {
		var err error
		resFrom, err = e.ResolvePeer(gCtx, from, domainID)
		return err
	})
	g.Go(func() error {
		var err error
		resTo, err = e.ResolvePeer(gCtx, to, domainID)
		return err
	})

	if err := g.Wait(); err != nil {
		return from, to, fmt.Errorf("resolve peers: %w", err)
	}
	return resFrom, resTo, nil
}

// ResolvePeer performs a cache-aside lookup, dispatching on PeerType.
func (e *Enricher) ResolvePeer(ctx context.Context, peer model.Peer, domainID int64) (model.Peer, error) {
	if peer.ID.String() == "" {
		return peer, nil
	}

	key := peer.ID.String()
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	var (
		enriched model.Peer
		err      error
	)

	switch peer.Type {
	case model.PeerUser:
		enriched, err = e.directory.LookupPeer(ctx, peer, domainID)
	case model.PeerGroup:
		enriched = placeholder(peer, "Group")
	case model.PeerChannel:
		enriched = placeholder(peer, "Channel")
	default:
		enriched = peer
	}

	if err == nil {
		e.cache.Add(key, enriched)
	}
	return enriched, err
}

func placeholder(peer model.Peer, kind string) model.Peer {
	if peer.Name == "" {
		short := peer.ID.String()
		if len(short) > 8 {
			short = short[:8]
		}
		peer.Name = fmt.Sprintf("%s (%s)", kind, short)
	}
	return peer
}
