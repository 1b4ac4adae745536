package httpadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/PabloGalante/arcana/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// NewServer builds the echo instance with the webhook routes and the
// standard middleware chain. handlerTimeout bounds each event; zero means
// no deadline.
func NewServer(events EventHandler, handlerTimeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(withRequestID)
	e.Use(withLogging)
	if handlerTimeout > 0 {
		e.Use(withTimeout(handlerTimeout))
	}

	RegisterRoutes(e, events)
	return e
}

// withRequestID reuses the caller's request id or mints one, and puts it on
// the request context for the logger.
func withRequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(requestIDHeader, id)

		ctx := observability.WithRequestID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// withLogging logs every request once it completes.
func withLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		observability.LoggerFromContext(c.Request().Context()).Info("http request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration", time.Since(start).String(),
		)
		return nil
	}
}

func withTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
