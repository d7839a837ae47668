package definition

import (
	"github.com/jabolina/actor-mesh/pkg/actor/types"
	"github.com/sirupsen/logrus"
)

// NewDefaultLogger builds the logger used when the caller does not
// supply its own implementation of types.Logger. It wraps a logrus
// entry so callers get structured, leveled output for free.
func NewDefaultLogger() *DefaultLogger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{entry: logrus.NewEntry(log)}
}

// DefaultLogger adapts a logrus entry to the types.Logger contract.
type DefaultLogger struct {
	entry *logrus.Entry
}

func (l *DefaultLogger) Info(v ...interface{}) { l.entry.Info(v...) }

func (l *DefaultLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }

func (l *DefaultLogger) Warn(v ...interface{}) { l.entry.Warn(v...) }

func (l *DefaultLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }

func (l *DefaultLogger) Error(v ...interface{}) { l.entry.Error(v...) }

func (l *DefaultLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }

func (l *DefaultLogger) Debug(v ...interface{}) { l.entry.Debug(v...) }

func (l *DefaultLogger) Debugf(format string, v ...interface{}) { l.entry.Debugf(format, v...) }

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return value
}

func (l *DefaultLogger) Fatal(v ...interface{}) { l.entry.Fatal(v...) }

func (l *DefaultLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }

var _ types.Logger = (*DefaultLogger)(nil)
