package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	base *zap.SugaredLogger
	once sync.Once
)

// Init builds the process logger. Development mode enables the console
// encoder and debug level; production is JSON at info level, so Debug
// calls are dropped there.
func Init(development bool) {
	once.Do(func() {
		var l *zap.Logger
		var err error
		if development {
			l, err = zap.NewDevelopment(zap.AddCallerSkip(1))
		} else {
			l, err = zap.NewProduction(zap.AddCallerSkip(1))
		}
		if err != nil {
			l = zap.NewNop()
		}
		base = l.Sugar()
	})
}

func get() *zap.SugaredLogger {
	if base == nil {
		Init(os.Getenv("ENVIRONMENT") != "production")
	}
	return base
}

func Info(format string, v ...interface{}) {
	get().Infof(format, v...)
}

func Warn(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

func Error(format string, v ...interface{}) {
	get().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	get().Debugf(format, v...)
}

// Sync flushes buffered entries; call it on shutdown.
func Sync() {
	if base != nil {
		base.Sync()
	}
}
