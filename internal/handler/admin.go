package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/hooklog/internal/config"
	"github.com/akave-ai/hooklog/internal/response"
)

const readyTimeout = 2 * time.Second

// redacted request headers are never echoed back
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// AdminHandler serves the operational endpoints: health, readiness, the
// debug echo, the observability probe and the beta redirect.
type AdminHandler struct {
	Config *config.Config
	Store  Pinger
	// ArchiveEnabled is reported by the observability probe.
	ArchiveEnabled bool
	Logger         zerolog.Logger
}

// Health reports liveness (GET /healthz).
func (h *AdminHandler) Health(c echo.Context) error {
	return response.OK(c, map[string]string{"status": "ok"})
}

// Ready pings the store backend (GET /readyz).
func (h *AdminHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.Warn().Err(err).Msg("readiness check failed")
		return response.ServiceUnavailable(c, "Webhook log store unavailable")
	}
	return response.OK(c, map[string]string{"status": "ready"})
}

// DebugContext echoes what the server saw of the request
// (GET|POST /api/debug/context).
func (h *AdminHandler) DebugContext(c echo.Context) error {
	req := c.Request()

	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if redactedHeaders[name] {
			continue
		}
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}

	out := map[string]any{
		"method":     req.Method,
		"path":       req.URL.Path,
		"query":      c.QueryParams(),
		"headers":    headers,
		"remoteIp":   c.RealIP(),
		"requestId":  c.Response().Header().Get(echo.HeaderXRequestID),
		"receivedAt": time.Now().UTC(),
	}

	if req.Method == http.MethodPost {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return response.BadRequest(c, "Failed to read request body")
		}
		var body any
		if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
			out["body"] = body
		} else {
			out["body"] = string(raw)
		}
	}
	return response.OK(c, out)
}

// ObservabilityConfig reports which telemetry integrations are active
// (GET /api/observability/config). Secrets are never included.
func (h *AdminHandler) ObservabilityConfig(c echo.Context) error {
	obs := h.Config.Observability
	return response.OK(c, map[string]any{
		"serviceName":     obs.ServiceName,
		"environment":     obs.Environment,
		"logLevel":        obs.LogLevel,
		"newRelicEnabled": obs.NewRelicEnabled(),
		"metricsEnabled":  obs.MetricsEnabled,
		"storeBackend":    h.Config.Store.Backend,
		"archiveEnabled":  h.ArchiveEnabled,
	})
}

// BetaRedirect sends /beta to the configured page.
func (h *AdminHandler) BetaRedirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.Config.Server.BetaRedirectTo)
}
