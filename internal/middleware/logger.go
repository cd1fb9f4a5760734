package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ContextLogger is the context key of the request-scoped logger.
const ContextLogger = "logger"

// Logger returns the logger RequestLogger attached to c, tagged with the
// request id.  Outside RequestLogger it falls back to zap.L().
func Logger(c echo.Context) *zap.Logger {
	if l, ok := c.Get(ContextLogger).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}

// RequestLogger logs one line per request with method, path, status,
// latency and request id.  Handlers reach the same logger through Logger.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				c.Set(ContextLogger, log.With(zap.String("request_id", id)))
			} else {
				c.Set(ContextLogger, log)
			}
			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is known.
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if uid := UserID(c); uid != "" {
				fields = append(fields, zap.String("user_id", uid))
			}
			switch {
			case res.Status >= 500:
				log.Error("request", append(fields, zap.Error(err))...)
			case res.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}

// Timeout bounds the request context so store calls give up after d.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d <= 0 {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
