package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akave-ai/hooklog/internal/metrics"
)

// routeLabel keeps the path label bounded to registered routes.
func routeLabel(c echo.Context) string {
	if c.Response().Status == http.StatusNotFound || c.Path() == "" {
		return "unmatched"
	}
	return c.Path()
}

func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			m.ObserveRequest(
				c.Request().Method,
				routeLabel(c),
				strconv.Itoa(c.Response().Status),
				time.Since(start).Seconds(),
			)
			return nil
		}
	}
}
