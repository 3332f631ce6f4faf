// Package window implements the in-memory sliding window used by the rate
// limit rule detector: for each (api_id, client_ip) key, the set of recent
// event timestamps within the configured window. State is ephemeral by
// design — it is lost on restart and never persisted.
package window

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const shardCount = 64

// Store is a sharded map of sliding windows, keyed by (api_id, client_ip).
// Sharding by key hash bounds lock contention to one shard per key instead
// of a single global mutex; the background sweeper walks shards one at a
// time so it never blocks more than a fraction of concurrent ingest traffic.
type Store struct {
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.Mutex
	windows map[string][]float64
}

// New creates an empty Store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{windows: make(map[string][]float64)}
	}
	return s
}

func key(apiID uuid.UUID, clientIP string) string {
	return apiID.String() + "|" + clientIP
}

func (s *Store) shardFor(k string) *shard {
	h := fnv.New32a()
	h.Write([]byte(k))
	return s.shards[h.Sum32()%shardCount]
}

// RecordAndCount appends tsEvent to the window for (apiID, clientIP), prunes
// any timestamp at or before tsEvent-windowSeconds, and returns the
// resulting count. Insertion and pruning are atomic against concurrent
// readers of the same key; other keys are unaffected.
func (s *Store) RecordAndCount(apiID uuid.UUID, clientIP string, tsEvent float64, windowSeconds int) int {
	k := key(apiID, clientIP)
	sh := s.shardFor(k)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	cutoff := tsEvent - float64(windowSeconds)
	events := append(sh.windows[k], tsEvent)
	events = pruneBefore(events, cutoff)
	sh.windows[k] = events

	return len(events)
}

func pruneBefore(events []float64, cutoff float64) []float64 {
	out := events[:0]
	for _, ts := range events {
		if ts > cutoff {
			out = append(out, ts)
		}
	}
	return out
}

// Sweep prunes every window against now-windowSeconds*2 (the invariant
// margin noted in the data model: retained timestamps satisfy ts > now -
// 2*window, since different keys may be evaluated against different
// request-time "now" values between sweeps) and deletes windows left empty.
// Called by a background loop every 5 minutes.
func (s *Store) Sweep(now float64, windowSeconds int) {
	cutoff := now - float64(windowSeconds)*2
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, events := range sh.windows {
			pruned := pruneBefore(events, cutoff)
			if len(pruned) == 0 {
				delete(sh.windows, k)
			} else {
				sh.windows[k] = pruned
			}
		}
		sh.mu.Unlock()
	}
}

// RunSweeper blocks, sweeping every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, windowSeconds int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(float64(time.Now().Unix()), windowSeconds)
		}
	}
}
