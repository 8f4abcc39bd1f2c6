// Package msgindex maintains a per-user pts -> server_msg_id mapping,
// populated by the sync engine's fan-out. The catch-up worker does not read
// it; it drains the offline queue instead. Grounded on
// original_source/src/model/pts.rs::UserMessageIndex.
package msgindex

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Index is an in-process, per-user map of pts -> server_msg_id.
type Index struct {
	mu    sync.RWMutex
	byUser map[uuid.UUID]map[uint64]uint64
}

func New() *Index {
	return &Index{byUser: make(map[uuid.UUID]map[uint64]uint64)}
}

// Add records that userID's channel reached pts via serverMsgID.
func (idx *Index) Add(userID uuid.UUID, pts, serverMsgID uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	m, ok := idx.byUser[userID]
	if !ok {
		m = make(map[uint64]uint64)
		idx.byUser[userID] = m
	}
	m[pts] = serverMsgID
}

// Range returns server_msg_ids for pts in [fromPts, toPts], ascending.
func (idx *Index) Range(userID uuid.UUID, fromPts, toPts uint64) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, toPts-fromPts+1)
	for pts := fromPts; pts <= toPts; pts++ {
		if id, ok := m[pts]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Above returns the server_msg_id -> pts map for every entry with pts > minPts.
func (idx *Index) Above(userID uuid.UUID, minPts uint64) map[uint64]uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.byUser[userID]
	if !ok {
		return nil
	}
	out := make(map[uint64]uint64, len(m))
	for pts, id := range m {
		if pts > minPts {
			out[id] = pts
		}
	}
	return out
}

// Trim keeps only the keepLatest most recent pts entries for userID,
// bounding memory for chatty channels (mirrors pts.rs::cleanup).
func (idx *Index) Trim(userID uuid.UUID, keepLatest int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	m, ok := idx.byUser[userID]
	if !ok || len(m) <= keepLatest {
		return
	}
	ptsList := make([]uint64, 0, len(m))
	for pts := range m {
		ptsList = append(ptsList, pts)
	}
	sort.Slice(ptsList, func(i, j int) bool { return ptsList[i] < ptsList[j] })
	remove := len(ptsList) - keepLatest
	for _, pts := range ptsList[:remove] {
		delete(m, pts)
	}
}
