package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Init configures JSON output on stdout at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func Init(level string) {
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "msg",
		},
	})

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	base.Info("logger initialized")
}

// SetOutput redirects log output; tests use it to capture entries.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

func entry(fields map[string]any) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}

func Debug(msg string, fields map[string]any) {
	entry(fields).Debug(msg)
}

func Info(msg string, fields map[string]any) {
	entry(fields).Info(msg)
}

func Warn(msg string, fields map[string]any) {
	entry(fields).Warn(msg)
}

func Error(msg string, fields map[string]any) {
	entry(fields).Error(msg)
}

func Fatal(msg string, fields map[string]any) {
	entry(fields).Fatal(msg)
}
