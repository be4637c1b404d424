package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the standard error response shape.
type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

// Result is the body of write operations that only report success.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// pathFromContext returns the request path from Echo context.
func pathFromContext(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// OK sends a 200 response with data as the whole body.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// Success sends 200 {"success":true,"message":...}.
func Success(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, Result{Success: true, Message: message})
}

// Error sends a JSON error response using APIError.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, APIError{
		Success: false,
		Error:   message,
		Path:    pathFromContext(c),
		Status:  status,
	})
}

// BadRequest sends 400 with message.
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// InternalError sends 500 with message. Never pass backend error text here.
func InternalError(c echo.Context, message string) error {
	return Error(c, http.StatusInternalServerError, message)
}

// ServiceUnavailable sends 503 with message.
func ServiceUnavailable(c echo.Context, message string) error {
	return Error(c, http.StatusServiceUnavailable, message)
}
