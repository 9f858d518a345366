// Package log defines the logger used across simple-debug.
package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger is implemented by anything that can receive leveled log lines.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

type writerLogger struct {
	mu     sync.Mutex
	writer io.Writer
	now    func() time.Time
}

var _ Logger = &writerLogger{}

// New returns a Logger that appends one line per call to w.
func New(w io.Writer) Logger {
	return &writerLogger{
		writer: w,
		now:    time.Now,
	}
}

// Nop returns a Logger that drops everything.
func Nop() Logger {
	return New(io.Discard)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

func (l *writerLogger) Infof(format string, args ...interface{}) {
	l.writeLog("INFO", fmt.Sprintf(format, args...))
}

func (l *writerLogger) Debugf(format string, args ...interface{}) {
	l.writeLog("DEBUG", fmt.Sprintf(format, args...))
}

func (l *writerLogger) Warnf(format string, args ...interface{}) {
	l.writeLog("WARN", fmt.Sprintf(format, args...))
}

func (l *writerLogger) Errorf(format string, args ...interface{}) {
	l.writeLog("ERROR", fmt.Sprintf(format, args...))
}

func (l *writerLogger) Info(args ...interface{}) {
	l.writeLog("INFO", fmt.Sprint(args...))
}

func (l *writerLogger) Debug(args ...interface{}) {
	l.writeLog("DEBUG", fmt.Sprint(args...))
}

func (l *writerLogger) Warn(args ...interface{}) {
	l.writeLog("WARN", fmt.Sprint(args...))
}

func (l *writerLogger) Error(args ...interface{}) {
	l.writeLog("ERROR", fmt.Sprint(args...))
}

func (l *writerLogger) writeLog(level string, msg string) {
	if l.writer == io.Discard {
		return
	}
	line := l.now().Format("2006-01-02 15:04:05") + " " + level + " " + msg + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write([]byte(line))
}
