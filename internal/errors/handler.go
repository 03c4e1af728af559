package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewHTTPErrorHandler returns the echo error handler that renders every
// failure as an ErrorResponse, or as a field map for validation failures.
func NewHTTPErrorHandler(logger *zap.Logger, now func() time.Time) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := fromEcho(err)
		if he == nil {
			he = MapErrorToHTTP(err)
		}

		req := c.Request()
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.String("remote_addr", req.RemoteAddr),
			zap.Int("status", he.StatusCode),
			zap.Error(err),
		}
		if he.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Warn("request rejected", fields...)
		}

		var writeErr error
		switch {
		case req.Method == http.MethodHead:
			writeErr = c.NoContent(he.StatusCode)
		case he.Fields != nil:
			writeErr = c.JSON(he.StatusCode, he.Fields)
		default:
			writeErr = c.JSON(he.StatusCode, he.ToErrorResponse(req.URL.Path, now()))
		}
		if writeErr != nil {
			logger.Error("write error response", zap.Error(writeErr))
		}
	}
}

// fromEcho converts errors raised by echo itself (routing, binding, middleware).
func fromEcho(err error) *HTTPError {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return nil
	}
	if he.Internal != nil {
		// Errors produced by our own middleware and wrapped by echo keep their kind.
		if mapped := MapErrorToHTTP(he.Internal); mapped.StatusCode != http.StatusInternalServerError {
			return mapped
		}
	}
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		msg = m
	} else if he.Message != nil {
		msg = fmt.Sprint(he.Message)
	}
	return NewHTTPError(he.Code, msg)
}
