// Package kfmt provides the logging facade used by kernel subsystems and
// device drivers.
package kfmt

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the interface that kernel code logs through, so we can plug
// different sinks (early console, serial port, test buffers) easily.
type Logger interface {
	Info(...interface{})
	Warn(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	SetLevel(level logrus.Level)
	GetLevel() logrus.Level
	SetOutput(writer io.Writer)
	SetFormatter(formatter logrus.Formatter)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger()
)

// NewLogger returns a logger writing to stderr.
func NewLogger() Logger {
	return logrus.New()
}

// NewWriterLogger returns a logger that writes plain, timestamp-free lines to
// w. It is the format used when logging to a terminal or a serial port.
func NewWriterLogger(w io.Writer) Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	})
	return logger
}

// NewNullLogger will return a logger that discards all logs, used mainly for testing
func NewNullLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return logger
}

// NewBufferLogger will return a logger that stores all logs in a buffer, used mainly for testing
func NewBufferLogger(b *bytes.Buffer) Logger {
	logger := logrus.New()
	logger.SetOutput(b)
	return logger
}

// DebugLevel returns the logrus debug level.
func DebugLevel() logrus.Level {
	return logrus.DebugLevel
}

// Default returns the logger used by code that has no logger of its own.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the default logger. Passing nil restores a logger that
// writes to stderr.
func SetDefault(l Logger) {
	if l == nil {
		l = NewWriterLogger(os.Stderr)
	}

	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}
