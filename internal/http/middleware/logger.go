package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docvault/internal/logger"
)

// LoggerLocalKey is the Fiber locals key holding the request-scoped logger.
const LoggerLocalKey = "logger"

// Logger logs one JSON line per request with request_id, method, path,
// status and latency (milliseconds, float). It also derives a request-scoped
// logger, stored in locals and in the user context, that carries request_id.
func Logger(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		reqLog := base.With(zap.String("request_id", rid))
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.HasTraceID() {
			reqLog = reqLog.With(zap.String("trace_id", sc.TraceID().String()))
		}
		c.Locals(LoggerLocalKey, reqLog)
		c.SetUserContext(logger.WithContext(c.UserContext(), reqLog))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		level := zapcore.InfoLevel
		if status >= fiber.StatusInternalServerError {
			level = zapcore.ErrorLevel
		}
		if ce := reqLog.Check(level, "http_request"); ce != nil {
			ce.Write(
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Float64("latency", float64(time.Since(start).Microseconds())/1000),
			)
		}
		return err
	}
}

// LoggerWithWriter is Logger backed by a JSON logger writing to w.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.NewWithWriter(w, loc))
}

// RequestLogger returns the logger stored by Logger, or a no-op logger.
func RequestLogger(c *fiber.Ctx) *zap.Logger {
	if l, ok := c.Locals(LoggerLocalKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
