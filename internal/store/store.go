// Package store holds the webhook log store and its backends.
//
// Every backend keeps entries in arrival order and never mutates an entry
// after Append. Clear is atomic with respect to concurrent Append calls: an
// append lands entirely before the clear (and is removed and counted) or
// entirely after it (and survives).
package store

import (
	"context"
	"sort"

	"github.com/akave-ai/hooklog/internal/model"
)

// Store is the persistence interface behind the webhook log service.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores e at the end of the log and sets e.Seq.
	Append(ctx context.Context, e *model.WebhookLogEntry) error
	// List returns entries in arrival order together with the total count.
	// The zero ListQuery returns every entry.
	List(ctx context.Context, q model.ListQuery) (model.LogPage, error)
	// Clear removes every entry and returns what was removed.
	Clear(ctx context.Context) ([]model.WebhookLogEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// paginate applies q to entries already ordered by Seq.
func paginate(entries []model.WebhookLogEntry, q model.ListQuery) ([]model.WebhookLogEntry, int64) {
	start := 0
	if q.After > 0 {
		start = sort.Search(len(entries), func(i int) bool { return entries[i].Seq > q.After })
	}
	page := entries[start:]
	if !q.Paginated() || len(page) <= q.Limit {
		return page, 0
	}
	page = page[:q.Limit]
	return page, page[len(page)-1].Seq
}
