package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/hooklog/internal/model"
)

func newEntry(payload string) *model.WebhookLogEntry {
	return &model.WebhookLogEntry{
		ID:         uuid.New(),
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(payload),
	}
}

func appendN(t *testing.T, s Store, n int) []model.WebhookLogEntry {
	t.Helper()
	out := make([]model.WebhookLogEntry, 0, n)
	for i := 0; i < n; i++ {
		e := newEntry(fmt.Sprintf(`{"n":%d}`, i))
		require.NoError(t, s.Append(context.Background(), e))
		out = append(out, *e)
	}
	return out
}

func assertSameEntries(t *testing.T, want, got []model.WebhookLogEntry) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID, "entry %d", i)
		assert.Equal(t, want[i].Seq, got[i].Seq, "entry %d", i)
		assert.WithinDuration(t, want[i].ReceivedAt, got[i].ReceivedAt, time.Microsecond, "entry %d", i)
		assert.JSONEq(t, string(want[i].Payload), string(got[i].Payload), "entry %d", i)
	}
}

// runStoreSuite exercises the behavior every backend must share.
// newStore must return an empty store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("append then list keeps arrival order", func(t *testing.T) {
		s := newStore(t)
		appended := appendN(t, s, 5)

		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Zero(t, page.NextCursor)
		assertSameEntries(t, appended, page.Entries)
		for i := 1; i < len(page.Entries); i++ {
			assert.Greater(t, page.Entries[i].Seq, page.Entries[i-1].Seq)
		}
	})

	t.Run("list is idempotent", func(t *testing.T) {
		s := newStore(t)
		appendN(t, s, 3)

		first, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		second, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, first.Total, second.Total)
		assertSameEntries(t, first.Entries, second.Entries)
	})

	t.Run("clear returns everything and empties the log", func(t *testing.T) {
		s := newStore(t)
		appended := appendN(t, s, 4)

		removed, err := s.Clear(ctx)
		require.NoError(t, err)
		assertSameEntries(t, appended, removed)

		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assert.Empty(t, page.Entries)
		assert.Zero(t, page.Total)

		removed, err = s.Clear(ctx)
		require.NoError(t, err)
		assert.Empty(t, removed)

		e := newEntry(`{"after":"clear"}`)
		require.NoError(t, s.Append(ctx, e))
		assert.Greater(t, e.Seq, appended[len(appended)-1].Seq, "sequence keeps growing across clears")
	})

	t.Run("payload is kept opaque", func(t *testing.T) {
		s := newStore(t)
		payloads := []string{`{"event":"ping","nested":{"a":[1,2,null]}}`, `[1,"two",3.5]`, `"just a string"`, `42`, `null`}
		for _, p := range payloads {
			require.NoError(t, s.Append(ctx, newEntry(p)))
		}
		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		require.Len(t, page.Entries, len(payloads))
		for i, p := range payloads {
			assert.JSONEq(t, p, string(page.Entries[i].Payload))
		}
	})

	t.Run("cursor pages concatenate to the full log", func(t *testing.T) {
		s := newStore(t)
		appended := appendN(t, s, 7)

		var got []model.WebhookLogEntry
		q := model.ListQuery{Limit: 3}
		for pages := 0; ; pages++ {
			require.Less(t, pages, 10, "pagination did not terminate")
			page, err := s.List(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, 7, page.Total)
			got = append(got, page.Entries...)
			if page.NextCursor == 0 {
				break
			}
			q.After = page.NextCursor
		}
		assertSameEntries(t, appended, got)
	})

	t.Run("concurrent appends lose nothing", func(t *testing.T) {
		s := newStore(t)
		const n = 1000

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.Append(ctx, newEntry(fmt.Sprintf(`{"i":%d}`, i)))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, n, page.Total)
		require.Len(t, page.Entries, n)

		seen := make(map[string]bool, n)
		for _, e := range page.Entries {
			seen[string(e.Payload)] = true
		}
		assert.Len(t, seen, n, "every payload is present exactly once")
	})

	t.Run("clear racing appends accounts for every entry", func(t *testing.T) {
		s := newStore(t)
		const n = 300

		var wg sync.WaitGroup
		var mu sync.Mutex
		cleared := 0
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Append(ctx, newEntry(fmt.Sprintf(`{"i":%d}`, i))))
				if i%50 == 0 {
					removed, err := s.Clear(ctx)
					assert.NoError(t, err)
					mu.Lock()
					cleared += len(removed)
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, n, cleared+page.Total)
	})
}
