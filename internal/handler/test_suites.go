package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/hooklog/internal/errs"
	"github.com/akave-ai/hooklog/internal/model"
	"github.com/akave-ai/hooklog/internal/response"
)

type TestSuiteLister interface {
	List(ctx context.Context) ([]model.TestSuite, error)
}

// TestSuiteHandler serves /api/test-suites. Repo is nil when no database is configured.
type TestSuiteHandler struct {
	Repo   TestSuiteLister
	Logger zerolog.Logger
}

// List returns every test suite. Failures are logged with detail and
// answered with a generic message.
func (h *TestSuiteHandler) List(c echo.Context) error {
	if h.Repo == nil {
		h.Logger.Error().Msg("test suites requested but no database is configured")
		return response.InternalError(c, "Failed to fetch test suites")
	}
	suites, err := h.Repo.List(c.Request().Context())
	if err != nil {
		err = errs.NewUpstreamQuery("list test suites", err)
		h.Logger.Error().Err(err).Msg("fetch test suites failed")
		return response.InternalError(c, "Failed to fetch test suites")
	}
	return response.OK(c, map[string]any{"testSuites": suites})
}
