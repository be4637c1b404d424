package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// newRelicMiddleware records one web transaction per request and puts it on
// the request context, where nrpgx5 finds it for datastore segments.
func newRelicMiddleware(app *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			txn := app.StartTransaction(req.Method + " " + c.Path())
			defer txn.End()

			txn.SetWebRequestHTTP(req)
			c.SetRequest(req.WithContext(newrelic.NewContext(req.Context(), txn)))
			if websocket.IsWebSocketUpgrade(req) {
				txn.AddAttribute("websocket", true)
			}

			if err := next(c); err != nil {
				c.Error(err)
				if c.Response().Status >= http.StatusInternalServerError {
					txn.NoticeError(err)
				}
			}
			// the writer is not wrapped so websocket hijacking keeps working
			txn.SetWebResponse(nil).WriteHeader(c.Response().Status)
			return nil
		}
	}
}
