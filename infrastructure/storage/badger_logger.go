package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var _ badger.Logger = (*BadgerLogger)(nil)

// BadgerLogger redirects badger's printf-style logs to the application slog.Logger.
// Every entry carries component=badger.
type BadgerLogger struct {
	log *slog.Logger
}

func NewBadgerLogger(log *slog.Logger) *BadgerLogger {
	return &BadgerLogger{log: log.With("component", "badger")}
}

func (b *BadgerLogger) Errorf(format string, args ...any) {
	b.log.Error(message(format, args))
}

func (b *BadgerLogger) Warningf(format string, args ...any) {
	b.log.Warn(message(format, args))
}

func (b *BadgerLogger) Infof(format string, args ...any) {
	b.log.Info(message(format, args))
}

func (b *BadgerLogger) Debugf(format string, args ...any) {
	b.log.Debug(message(format, args))
}

// badger terminates most lines with a newline
func message(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
