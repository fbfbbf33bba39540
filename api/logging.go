package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// zapFormatter plugs zap into chi's RequestLogger middleware.
type zapFormatter struct {
	log *zap.Logger
}

func (f zapFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &zapEntry{log: f.log.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
	)}
}

type zapEntry struct {
	log *zap.Logger
}

func (e *zapEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case status >= 500:
		e.log.Error("request", fields...)
	case status >= 400:
		e.log.Warn("request", fields...)
	default:
		e.log.Info("request", fields...)
	}
}

func (e *zapEntry) Panic(v any, stack []byte) {
	e.log.Error("panic", zap.Any("panic", v), zap.ByteString("stack", stack))
}
