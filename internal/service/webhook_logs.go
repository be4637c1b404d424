package service

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akave-ai/hooklog/internal/errs"
	"github.com/akave-ai/hooklog/internal/metrics"
	"github.com/akave-ai/hooklog/internal/model"
	"github.com/akave-ai/hooklog/internal/store"
)

const archiveTimeout = 30 * time.Second

// Archiver receives the entries drained by a clear.
type Archiver interface {
	Archive(ctx context.Context, entries []model.WebhookLogEntry) (key string, err error)
}

// WebhookLogService captures inbound webhook payloads into a store.
type WebhookLogService struct {
	store    store.Store
	archiver Archiver
	hub      *Hub
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*WebhookLogService)

// WithArchiver uploads every cleared batch through a.
func WithArchiver(a Archiver) Option {
	return func(s *WebhookLogService) { s.archiver = a }
}

// WithHub publishes every appended entry to h.
func WithHub(h *Hub) Option {
	return func(s *WebhookLogService) { s.hub = h }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *WebhookLogService) { s.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *WebhookLogService) { s.now = now }
}

func NewWebhookLogService(st store.Store, logger zerolog.Logger, opts ...Option) *WebhookLogService {
	s := &WebhookLogService{
		store:  st,
		logger: logger.With().Str("component", "webhook_logs").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores body as a new entry. Bodies that are empty, not valid JSON or
// not UTF-8 are rejected with an InvalidPayload error and never reach the store.
func (s *WebhookLogService) Append(ctx context.Context, body []byte) (model.WebhookLogEntry, error) {
	payload := bytes.TrimSpace(body)
	if len(payload) == 0 {
		s.metrics.ObserveAppend("invalid")
		return model.WebhookLogEntry{}, errs.NewInvalidPayload("Request body is empty", nil)
	}
	// json.Valid lets invalid UTF-8 through inside strings
	if !json.Valid(payload) || !utf8.Valid(payload) {
		s.metrics.ObserveAppend("invalid")
		return model.WebhookLogEntry{}, errs.NewInvalidPayload("Invalid JSON payload", nil)
	}

	entry := model.WebhookLogEntry{
		ID:         uuid.New(),
		ReceivedAt: s.now().UTC(),
		Payload:    json.RawMessage(bytes.Clone(payload)),
	}
	if err := s.store.Append(ctx, &entry); err != nil {
		s.metrics.ObserveAppend("error")
		s.logger.Error().Err(err).Str("id", entry.ID.String()).Msg("append webhook log failed")
		return model.WebhookLogEntry{}, errs.NewBackendUnavailable("append", err)
	}
	s.metrics.ObserveAppend("ok")

	// published after the store returns, so the tail is not ordered by seq
	if s.hub != nil {
		s.hub.Publish(entry)
	}
	s.logger.Debug().
		Str("id", entry.ID.String()).
		Int64("seq", entry.Seq).
		Int("bytes", len(entry.Payload)).
		Msg("webhook log appended")
	return entry, nil
}

// List returns the requested page. LastUpdate is the time of the call.
func (s *WebhookLogService) List(ctx context.Context, q model.ListQuery) (model.WebhookLogList, error) {
	page, err := s.store.List(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("list webhook logs failed")
		return model.WebhookLogList{}, errs.NewBackendUnavailable("list", err)
	}

	out := model.WebhookLogList{
		Logs:       page.Entries,
		Count:      page.Total,
		LastUpdate: s.now().UTC(),
	}
	if out.Logs == nil {
		out.Logs = []model.WebhookLogEntry{}
	}
	if page.NextCursor != 0 {
		next := page.NextCursor
		out.NextCursor = &next
	}
	return out, nil
}

// Clear removes every entry and returns how many were removed. When an
// archiver is set the removed batch is uploaded; an upload failure is logged
// and does not fail the clear.
func (s *WebhookLogService) Clear(ctx context.Context) (int, error) {
	removed, err := s.store.Clear(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("clear webhook logs failed")
		return 0, errs.NewBackendUnavailable("clear", err)
	}
	s.metrics.ObserveClear(len(removed))
	s.logger.Info().Int("count", len(removed)).Msg("webhook logs cleared")

	if s.archiver != nil && len(removed) > 0 {
		s.archive(ctx, removed)
	}
	return len(removed), nil
}

func (s *WebhookLogService) archive(ctx context.Context, entries []model.WebhookLogEntry) {
	// the request may go away once the clear has answered
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key, err := s.archiver.Archive(ctx, entries)
	if err != nil {
		s.metrics.ObserveArchive("error")
		s.logger.Error().Err(err).Int("count", len(entries)).Msg("archive cleared webhook logs failed")
		return
	}
	s.metrics.ObserveArchive("ok")
	s.logger.Info().Str("key", key).Int("count", len(entries)).Msg("archived cleared webhook logs")
}

// Subscribe registers a live tail subscriber. It returns a closed channel
// when the service has no hub.
func (s *WebhookLogService) Subscribe() (<-chan model.WebhookLogEntry, func()) {
	if s.hub == nil {
		ch := make(chan model.WebhookLogEntry)
		close(ch)
		return ch, func() {}
	}
	return s.hub.Subscribe()
}

// Ping checks that the store is reachable.
func (s *WebhookLogService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
