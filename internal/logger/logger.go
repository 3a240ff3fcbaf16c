package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig is read from the environment alongside the server configuration.
type LogConfig struct {
	// trace, debug, info, warn, error
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// text, json
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	// stdout, file, both
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`

	// Rotation: size in MB, age in days.
	MaxSize    int  `env:"LOG_MAX_SIZE" envDefault:"100"`
	MaxBackups int  `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAge     int  `env:"LOG_MAX_AGE" envDefault:"7"`
	Compress   bool `env:"LOG_COMPRESS" envDefault:"true"`

	Path string `env:"LOG_PATH" envDefault:"./logs"`
	File string `env:"LOG_FILE" envDefault:"app.log"`
}

var (
	mu  sync.Mutex
	log *logrus.Logger
)

// ConfigFromEnv parses LogConfig, falling back to defaults on malformed values.
func ConfigFromEnv() LogConfig {
	cfg := LogConfig{}
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log configuration, using defaults: %v\n", err)
		return LogConfig{Level: "info", Format: "text", Output: "stdout"}
	}
	return cfg
}

// Init builds the process logger. It may be called again to reconfigure.
func Init(cfg LogConfig) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	output := strings.ToLower(cfg.Output)
	if output == "file" || output == "both" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Path, cfg.File),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	if output != "file" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))

	mu.Lock()
	log = l
	mu.Unlock()
	return nil
}

// Get returns the process logger, creating a stdout logger on first use.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = logrus.New()
	}
	return log
}

func WithModule(module string) *logrus.Entry {
	return Get().WithField("module", module)
}

func WithError(err error) *logrus.Entry {
	return Get().WithError(err)
}

// Context keys set by the middleware and read back here.
const (
	RequestIDKey = "requestId"
	UserIDKey    = "userId"
	AdminIDKey   = "adminId"
)

// WithRequest returns an entry carrying the request id, route and caller identity.
func WithRequest(c *gin.Context) *logrus.Entry {
	fields := logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"ip":     c.ClientIP(),
	}
	if rid := c.GetString(RequestIDKey); rid != "" {
		fields["request_id"] = rid
	}
	if uid := c.GetString(UserIDKey); uid != "" {
		fields["user_id"] = uid
	}
	if aid := c.GetString(AdminIDKey); aid != "" {
		fields["admin_id"] = aid
	}
	return Get().WithFields(fields)
}
