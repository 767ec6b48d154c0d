package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger represents the application logger
type Logger struct {
	*logrus.Logger
	config LogConfig
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level       string
	Format      string // "json", "text" or "custom"
	LogToFile   bool
	LogFilePath string
}

// NewLogger creates a new logger instance
func NewLogger(config LogConfig) (*Logger, error) {
	log := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	log.SetLevel(level)

	log.SetOutput(os.Stdout)

	// Set log format based on configuration
	switch strings.ToLower(config.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			ForceColors:     true,
			DisableQuote:    true,
		})
	default:
		log.SetFormatter(&CustomFormatter{})
	}

	// Optionally also log to file (in addition to stdout)
	if config.LogToFile && config.LogFilePath != "" {
		logDir := filepath.Dir(config.LogFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
		file, err := os.OpenFile(config.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFilePath, err)
		}
		log.SetOutput(io.MultiWriter(os.Stdout, file))
	}

	return &Logger{
		Logger: log,
		config: config,
	}, nil
}

// Wrap adapts an existing logrus logger, mainly for tests using logrus/hooks/test
func Wrap(log *logrus.Logger) *Logger {
	return &Logger{Logger: log}
}

// CustomFormatter provides a clean, timestamped format for console output
type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	level := strings.ToUpper(entry.Level.String())

	var levelColor string
	switch entry.Level {
	case logrus.DebugLevel:
		levelColor = "\033[36m" // Cyan
	case logrus.InfoLevel:
		levelColor = "\033[32m" // Green
	case logrus.WarnLevel:
		levelColor = "\033[33m" // Yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = "\033[31m" // Red
	default:
		levelColor = "\033[0m" // Reset
	}

	resetColor := "\033[0m"

	msg := fmt.Sprintf("%s [%s%s%s] %s",
		timestamp,
		levelColor,
		level,
		resetColor,
		entry.Message)

	// Fields are sorted so repeated runs print identically
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for key := range entry.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		msg += " |"
		for _, key := range keys {
			msg += fmt.Sprintf(" %s=%v", key, entry.Data[key])
		}
	}

	msg += "\n"
	return []byte(msg), nil
}

// Section prints a banner line separating phases of a run
func (l *Logger) Section(title string) {
	l.Info(strings.Repeat("=", 60))
	l.Info(title)
	l.Info(strings.Repeat("=", 60))
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithAccount returns a logger with token account context
func (l *Logger) WithAccount(address string) *logrus.Entry {
	return l.WithField("account", address)
}

// LogAccountDiscovered logs when the scanner finds an untracked token account
func (l *Logger) LogAccountDiscovered(address, mint, owner, category, signature string) {
	l.WithFields(logrus.Fields{
		"event":     "account_discovered",
		"account":   address,
		"mint":      mint,
		"owner":     owner,
		"category":  category,
		"signature": signature,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("🔍 New token account discovered")
}

// LogAccountStatus logs the monitor's classification of one account
func (l *Logger) LogAccountStatus(address, status string, lamports, tokenBalance uint64) {
	l.WithFields(logrus.Fields{
		"event":         "account_status",
		"account":       address,
		"status":        status,
		"lamports":      lamports,
		"token_balance": tokenBalance,
		"timestamp":     time.Now().Format(time.RFC3339),
	}).Debug("📋 Account checked")
}

// LogReclaimSuccess logs a confirmed close-account transaction
func (l *Logger) LogReclaimSuccess(address, signature string, lamports uint64) {
	l.WithFields(logrus.Fields{
		"event":     "reclaim_success",
		"account":   address,
		"signature": signature,
		"lamports":  lamports,
		"sol":       float64(lamports) / 1_000_000_000,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("✅ Rent reclaimed")
}

// LogReclaimDryRun logs a simulated reclaim
func (l *Logger) LogReclaimDryRun(address string) {
	l.WithFields(logrus.Fields{
		"event":     "reclaim_dry_run",
		"account":   address,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("🧪 Dry run: account would be closed")
}

// LogError logs general errors with context
func (l *Logger) LogError(component, operation string, err error, fields logrus.Fields) {
	logFields := logrus.Fields{
		"event":     "error",
		"component": component,
		"operation": operation,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	// Merge additional fields
	for k, v := range fields {
		logFields[k] = v
	}

	l.WithFields(logFields).WithError(err).Error("💥 Component error")
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(version, network, rpcUrl, operator string, dryRun bool) {
	l.WithFields(logrus.Fields{
		"event":     "startup",
		"version":   version,
		"network":   network,
		"rpc_url":   rpcUrl,
		"operator":  operator,
		"dry_run":   dryRun,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("🚀 Rent reclaim bot starting up")
}

// LogShutdown logs application shutdown information
func (l *Logger) LogShutdown(reason string) {
	l.WithFields(logrus.Fields{
		"event":     "shutdown",
		"reason":    reason,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("🛑 Rent reclaim bot shutting down")
}

// LogLatency logs operation latency
func (l *Logger) LogLatency(operation string, duration time.Duration) {
	l.WithFields(logrus.Fields{
		"event":     "latency",
		"operation": operation,
		"duration":  duration.Milliseconds(),
		"unit":      "ms",
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("⏱️ Operation latency")
}
