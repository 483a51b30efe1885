package logger

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a centralized structured logger. Every line carries the module
// that produced it and is scrubbed by Anonymize before it is written.
type Logger struct {
	out *logrus.Logger
}

// root backs every Logger returned by New, so one SetLevel call applies to
// all packages.
var root = newLogrus(os.Stderr)

// New returns a Logger writing JSON lines to stderr so that page output on
// stdout stays readable.
func New() *Logger {
	return &Logger{out: root}
}

// NewWithOutput creates a standalone Logger writing to w.
func NewWithOutput(w io.Writer) *Logger {
	return &Logger{out: newLogrus(w)}
}

// SetLevel sets the level of every Logger returned by New.
func SetLevel(name string) {
	(&Logger{out: root}).SetLevel(name)
}

func newLogrus(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel accepts debug, info or error. Unknown names leave the level alone.
func (l *Logger) SetLevel(name string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return
	}
	l.out.SetLevel(lvl)
}

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex  = regexp.MustCompile(`eyJ[^\s"]+`)
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"]+`)
	userIDRegex = regexp.MustCompile(`\buser_id\s*=\s*\d+\b`)
)

// Anonymize replaces sensitive information in logs (emails, tokens, IDs)
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = bearerRegex.ReplaceAllString(s, "Bearer [REDACTED_TOKEN]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = userIDRegex.ReplaceAllString(s, "user_id=[USER_ID]")
	return s
}

func (l *Logger) entry(module string) *logrus.Entry {
	return l.out.WithField("module", module)
}

// --- Convenient methods ---
func (l *Logger) Info(module, msg string) {
	l.entry(module).Info(Anonymize(msg))
}

func (l *Logger) Debug(module, msg string) {
	l.entry(module).Debug(Anonymize(msg))
}

func (l *Logger) Error(module, msg string, err error) {
	e := l.entry(module)
	if err != nil {
		e = e.WithField("error", Anonymize(err.Error()))
	}
	e.Error(Anonymize(msg))
}
