package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const consoleTimeFormat = "15:04:05"

// New builds the root logger. Console output is meant for local runs;
// everything else gets JSON lines on stdout.
func New(level string, console bool) zerolog.Logger {
	return newWithWriter(os.Stdout, level, console)
}

func newWithWriter(out io.Writer, level string, console bool) zerolog.Logger {
	zerolog.ErrorFieldName = "err"

	w := out
	if console {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GinMiddleware logs one line per request, replacing gin's default logger.
// The request context carries a logger that later middleware may enrich
// through zerolog.Ctx; the final line includes those fields.
func GinMiddleware(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With().Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))
		c.Next()

		reqLog = *zerolog.Ctx(c.Request.Context())
		status := c.Writer.Status()
		ev := reqLog.Info()
		switch {
		case status >= 500:
			ev = reqLog.Error()
		case status >= 400:
			ev = reqLog.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
