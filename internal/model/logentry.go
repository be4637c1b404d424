package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookLogEntry is one captured webhook notification.
// Payload is stored and returned verbatim.
type WebhookLogEntry struct {
	ID         uuid.UUID       `json:"id"`
	Seq        int64           `json:"seq"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// ListQuery selects a page of entries. The zero value selects everything.
type ListQuery struct {
	After int64 `query:"after" validate:"gte=0"`
	Limit int   `query:"limit" validate:"gte=0,lte=1000"`
}

// Paginated reports whether the query asks for a bounded page.
func (q ListQuery) Paginated() bool { return q.Limit > 0 }

// LogPage is what a store returns for a list call.
type LogPage struct {
	Entries []WebhookLogEntry
	// Total is the number of entries held by the store, regardless of the page.
	Total int
	// NextCursor is non-zero when more entries follow the page.
	NextCursor int64
}

// WebhookLogList is the list response body.
type WebhookLogList struct {
	Logs       []WebhookLogEntry `json:"logs"`
	Count      int               `json:"count"`
	LastUpdate time.Time         `json:"lastUpdate"`
	NextCursor *int64            `json:"nextCursor,omitempty"`
}
