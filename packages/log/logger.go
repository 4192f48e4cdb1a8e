package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format represents the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Field keys shared by the HTTP clients and the journal hook.
const (
	CorrelationIDKey = "correlation_id"
	DirectionKey     = "direction"
	MethodKey        = "method"
	URLKey           = "url"
	StatusKey        = "status"
	BodyKey          = "body"
)

// Directions of a diagnostic exchange line.
const (
	Outbound = "outbound"
	Inbound  = "inbound"
)

// Config holds the logging configuration.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format is text or json. Default: text
	Format Format `yaml:"format"`

	// Output defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: FormatText,
		Output: os.Stderr,
	}
}

// FromEnv creates a Config from the defaults and the environment.
func FromEnv() *Config {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overrides cfg from environment variables:
//   - QAKIT_DEBUG: true/1 forces debug level
//   - QAKIT_LOG_LEVEL: trace, debug, info, warn, error
//   - QAKIT_LOG_FORMAT: text, json
func ApplyEnv(cfg *Config) *Config {
	if level := os.Getenv("QAKIT_LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	}

	debug := os.Getenv("QAKIT_DEBUG")
	if debug == "true" || debug == "1" {
		cfg.Level = "debug"
	}

	if format := os.Getenv("QAKIT_LOG_FORMAT"); format != "" {
		cfg.Format = Format(strings.ToLower(format))
	}

	return cfg
}

// New creates a logrus logger from the given configuration.
func New(cfg *Config) *logrus.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := logrus.New()
	logger.SetLevel(ParseLevel(cfg.Level))

	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	}

	switch cfg.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// Nop returns a logger that discards everything. Clients use it when no
// logger is supplied.
func Nop() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// ParseLevel converts a level name to a logrus level, falling back to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithCorrelationID returns an entry tagged with the correlation id. An empty
// id leaves the logger untagged.
func WithCorrelationID(logger logrus.FieldLogger, id string) logrus.FieldLogger {
	if id == "" {
		return logger
	}
	return logger.WithField(CorrelationIDKey, id)
}

// Safe runs fn and drops any panic raised by the logging sink.
func Safe(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
