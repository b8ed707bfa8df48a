package utils

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"
)

// SetupLogger replaces the process-wide phuslu logger.
func SetupLogger(cfg LoggingConfig) {
	logger := log.Logger{
		Level:      log.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
	}
	if cfg.Format == "json" {
		logger.Writer = &log.IOWriter{Writer: os.Stderr}
	} else {
		logger.Writer = &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: log.IsTerminal(os.Stderr.Fd()),
		}
	}
	log.DefaultLogger = logger
}

// GinLogger logs one line per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.Info()
		if status >= 500 {
			entry = log.Warn()
		}
		entry.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("http request")
	}
}
