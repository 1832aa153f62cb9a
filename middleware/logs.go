package middleware

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	// Enable console logging
	Console bool
	// Enable file logging
	File bool
	// Log file path
	LogFilePath string
	// Log format: "json" or "text"
	Format string
	// Include request body in logs
	IncludeBody bool
	// Include user ID in logs
	IncludeUserID bool
	// Only log responses with status >= 400 or a handler error
	ErrorsOnly bool
	// Skip logging for specific paths
	SkipPaths []string
	// Extra sink, used in tests
	Output io.Writer
}

// DefaultLogConfig returns a default configuration for the logging middleware
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Console:       true,
		File:          true,
		LogFilePath:   "logs/requests.log",
		Format:        "json",
		IncludeUserID: true,
		SkipPaths:     []string{"/health", "/metrics"},
	}
}

// LoggingMiddleware creates a new logging middleware with the given configuration
func LoggingMiddleware(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	logger := newRequestLogger(cfg)

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}
		start := time.Now()

		var requestBody interface{}
		if cfg.IncludeBody && c.Method() != fiber.MethodGet {
			if body := c.Body(); len(body) > 0 {
				var parsed interface{}
				if err := json.Unmarshal(body, &parsed); err == nil {
					requestBody = parsed
				} else {
					requestBody = string(body)
				}
			}
		}

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		if cfg.ErrorsOnly && err == nil && status < 400 {
			return nil
		}

		fields := log.Fields{
			"method":         c.Method(),
			"path":           c.Path(),
			"url":            c.OriginalURL(),
			"status":         status,
			"latency":        time.Since(start).String(),
			"ip":             c.IP(),
			"user_agent":     c.Get(fiber.HeaderUserAgent),
			"request_id":     c.Get(fiber.HeaderXRequestID),
			"content_length": len(c.Response().Body()),
		}
		if requestBody != nil {
			fields["request_body"] = requestBody
		}
		if cfg.IncludeUserID {
			if user, ok := CurrentUser(c); ok {
				fields["user_id"] = user.ID
				fields["username"] = user.Username
			}
		}

		entry := logger.WithFields(fields)
		if err != nil {
			entry = entry.WithError(err)
		}
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
		return err
	}
}

func newRequestLogger(cfg LogConfig) *log.Logger {
	logger := log.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, os.Stdout)
	}
	if cfg.File {
		if f, err := openLogFile(cfg.LogFilePath); err != nil {
			log.WithError(err).WithField("path", cfg.LogFilePath).Error("cannot open request log file")
		} else {
			writers = append(writers, f)
		}
	}
	if cfg.Output != nil {
		writers = append(writers, cfg.Output)
	}
	if len(writers) == 0 {
		logger.SetOutput(io.Discard)
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// RequestLogger creates a middleware that logs detailed request information
// to the console and to dir/requests.log.
func RequestLogger(dir string) fiber.Handler {
	return LoggingMiddleware(LogConfig{
		Console:       true,
		File:          dir != "",
		LogFilePath:   filepath.Join(dir, "requests.log"),
		Format:        "json",
		IncludeUserID: true,
		SkipPaths:     []string{"/health", "/metrics"},
	})
}

// ErrorLogger creates a middleware that only logs errors, to dir/errors.log.
func ErrorLogger(dir string) fiber.Handler {
	return LoggingMiddleware(LogConfig{
		File:          dir != "",
		LogFilePath:   filepath.Join(dir, "errors.log"),
		Format:        "json",
		IncludeBody:   true,
		IncludeUserID: true,
		ErrorsOnly:    true,
	})
}
