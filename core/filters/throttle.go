package filters

import (
	"context"
	"sync"
	"time"

	"github.com/jdelaire/botflow/core"
)

type throttleRecord struct {
	hits []time.Time
}

// Throttle skips a chat's updates once it has produced more than max passing
// updates within the sliding window. Payloads without a chat pass untouched.
func Throttle(max int, window time.Duration) core.Filter {
	var (
		mu      sync.Mutex
		records = make(map[int64]*throttleRecord)
	)
	now := time.Now

	return func(_ context.Context, su *core.SubUpdate) (core.FilterResult, error) {
		chat, ok := chatOf(su.Payload)
		if !ok {
			return core.Pass(), nil
		}

		mu.Lock()
		defer mu.Unlock()

		r := records[chat.ID]
		if r == nil {
			r = &throttleRecord{}
			records[chat.ID] = r
		}

		// Prune hits outside the window.
		cutoff := now().Add(-window)
		fresh := r.hits[:0]
		for _, t := range r.hits {
			if t.After(cutoff) {
				fresh = append(fresh, t)
			}
		}
		r.hits = fresh

		if len(r.hits) >= max {
			return core.Skip(), nil
		}
		r.hits = append(r.hits, now())
		return core.Pass(), nil
	}
}
