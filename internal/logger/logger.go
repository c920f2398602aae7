// Package logger is a small leveled key/value logger.  Values are redacted
// by key name before they are written so that credentials and personal data
// never reach the log stream: passwords and codes are dropped, tokens are
// truncated and email addresses are masked.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Logger writes one line per entry: `[LEVEL] msg { k=v, ... }`.
type Logger struct {
	mu    sync.RWMutex
	level Level
	out   *log.Logger
}

var (
	defaultLogger = New(os.Stdout, INFO)
	exit          = os.Exit
)

// New builds a Logger writing to w.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the process-wide logger.  Tests use it to capture output.
func SetDefault(l *Logger) { defaultLogger = l }

// SetLevel updates the minimum level of the process-wide logger.
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defaultLogger.level = level
	defaultLogger.mu.Unlock()
}

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func maskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "****"
	}
	local, domain := parts[0], parts[1]
	if len(local) <= 2 {
		return "****@" + domain
	}
	return local[:1] + "****" + local[len(local)-1:] + "@" + domain
}

func truncate(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

func redact(key string, value interface{}) interface{} {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "password"), strings.Contains(k, "secret"), strings.Contains(k, "code"):
		return "[REDACTED]"
	case strings.Contains(k, "token"):
		return truncate(fmt.Sprintf("%v", value))
	case strings.Contains(k, "email"):
		return maskEmail(fmt.Sprintf("%v", value))
	}
	if s, ok := value.(string); ok && strings.Contains(s, "@") && !strings.Contains(s, " ") {
		return maskEmail(s)
	}
	return value
}

func (l *Logger) format(level Level, msg string, kv ...interface{}) string {
	var b strings.Builder
	b.WriteString("[" + level.String() + "] " + msg)
	if len(kv) > 0 {
		b.WriteString(" {")
		for i := 0; i < len(kv); i += 2 {
			if i > 0 {
				b.WriteString(",")
			}
			key := fmt.Sprintf("%v", kv[i])
			var value interface{} = ""
			if i+1 < len(kv) {
				value = kv[i+1]
			}
			fmt.Fprintf(&b, " %s=%v", key, redact(key, value))
		}
		b.WriteString(" }")
	}
	return b.String()
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) log(level Level, msg string, kv ...interface{}) {
	if l.enabled(level) {
		l.out.Println(l.format(level, msg, kv...))
	}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(DEBUG, msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(INFO, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(WARN, msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(ERROR, msg, kv...) }

// Package-level shortcuts on the default logger.

func Debug(msg string, kv ...interface{}) { defaultLogger.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { defaultLogger.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { defaultLogger.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { defaultLogger.Error(msg, kv...) }

// Fatal logs at ERROR regardless of level and exits the process.
func Fatal(msg string, kv ...interface{}) {
	defaultLogger.out.Println(defaultLogger.format(ERROR, msg, kv...))
	exit(1)
}
