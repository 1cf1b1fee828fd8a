// Package http builds the Echo server the API handlers mount on: the shared
// middleware stack, the error shape, and graceful shutdown.
package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
)

// NewEchoServer creates an Echo server with the standard middleware stack.
func NewEchoServer(cfg config.ServerConfig) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{
				nethttp.MethodGet,
				nethttp.MethodPost,
				nethttp.MethodDelete,
				nethttp.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
			},
		}))
	}

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(cfg.RateLimit),
		)))
	}

	return e
}

// Start runs the server with the configured timeouts. Blocks until the
// server stops.
func Start(e *echo.Echo, cfg config.ServerConfig) error {
	s := &nethttp.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	common.Logger.WithField("addr", s.Addr).Info("http server listening")
	return e.StartServer(s)
}

// Shutdown stops the server gracefully within the timeout.
func Shutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	common.Logger.Info("http server stopped")
	return nil
}

// ErrorResponse is the JSON error shape for all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HTTPErrorHandler renders every error as an ErrorResponse.
func HTTPErrorHandler(err error, c echo.Context) {
	code := nethttp.StatusInternalServerError
	message := err.Error()

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == nethttp.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if err := c.JSON(code, ErrorResponse{
		Error:   nethttp.StatusText(code),
		Message: message,
	}); err != nil {
		common.Logger.WithError(err).Warn("failed to send error response")
	}
}
