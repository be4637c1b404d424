package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/hooklog/internal/errs"
	"github.com/akave-ai/hooklog/internal/model"
	"github.com/akave-ai/hooklog/internal/response"
	"github.com/akave-ai/hooklog/internal/storage"
)

var validate = validator.New()

// WebhookLogService is what the handler needs from the service layer.
type WebhookLogService interface {
	Append(ctx context.Context, body []byte) (model.WebhookLogEntry, error)
	List(ctx context.Context, q model.ListQuery) (model.WebhookLogList, error)
	Clear(ctx context.Context) (int, error)
	Subscribe() (<-chan model.WebhookLogEntry, func())
}

// ArchiveReader reads batches archived by clears.
type ArchiveReader interface {
	Prefix() string
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	GetObjectLogs(ctx context.Context, key string) ([]model.WebhookLogEntry, error)
}

// WebhookLogHandler handles /api/webhook-logs. Archives is nil when
// archiving is not configured.
type WebhookLogHandler struct {
	Service  WebhookLogService
	Archives ArchiveReader
	Logger   zerolog.Logger
}

// List returns the captured webhook logs (GET /api/webhook-logs).
// Without limit every entry is returned.
func (h *WebhookLogHandler) List(c echo.Context) error {
	var q model.ListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return response.BadRequest(c, "limit and after must be integers")
	}
	if err := validate.Struct(q); err != nil {
		return response.BadRequest(c, "limit must be between 0 and 1000 and after must not be negative")
	}

	list, err := h.Service.List(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, list)
}

// Append captures the request body as a new log entry (POST /api/webhook-logs).
func (h *WebhookLogHandler) Append(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return response.BadRequest(c, "Failed to read request body")
	}

	if _, err := h.Service.Append(c.Request().Context(), body); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, response.Result{Success: true})
}

// Clear removes every captured log (DELETE /api/webhook-logs).
func (h *WebhookLogHandler) Clear(c echo.Context) error {
	n, err := h.Service.Clear(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fmt.Sprintf("Cleared %d logs", n))
}

// ListArchives lists archived batches (GET /api/webhook-logs/archives).
func (h *WebhookLogHandler) ListArchives(c echo.Context) error {
	if h.Archives == nil {
		return response.OK(c, map[string]any{"objects": []storage.ObjectInfo{}})
	}
	prefix := c.QueryParam("prefix")
	if prefix == "" {
		prefix = h.Archives.Prefix()
	}
	list, err := h.Archives.ListObjects(c.Request().Context(), prefix)
	if err != nil {
		h.Logger.Error().Err(err).Str("prefix", prefix).Msg("list archives failed")
		return response.InternalError(c, "Failed to list archives")
	}
	return response.OK(c, map[string]any{"objects": list})
}

// GetArchive returns the entries of one archived batch (GET /api/webhook-logs/archives/content?key=).
func (h *WebhookLogHandler) GetArchive(c echo.Context) error {
	if h.Archives == nil {
		return response.BadRequest(c, "Archiving is not configured")
	}
	key := c.QueryParam("key")
	if key == "" {
		return response.BadRequest(c, "Query parameter key is required")
	}
	logs, err := h.Archives.GetObjectLogs(c.Request().Context(), key)
	if err != nil {
		h.Logger.Error().Err(err).Str("key", key).Msg("read archive failed")
		return response.InternalError(c, "Failed to read archive")
	}
	return response.OK(c, map[string]any{"logs": logs, "key": key})
}

func (h *WebhookLogHandler) fail(c echo.Context, err error) error {
	var invalid *errs.InvalidPayloadError
	switch {
	case errors.As(err, &invalid):
		return response.BadRequest(c, invalid.Error())
	case errors.Is(err, errs.ErrBackendUnavailable):
		// already logged with its cause by the service
		return response.InternalError(c, "Webhook log store unavailable")
	default:
		h.Logger.Error().Err(err).Str("path", c.Path()).Msg("webhook log request failed")
		return response.InternalError(c, "Internal server error")
	}
}
