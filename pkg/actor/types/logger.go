package types

// Logger is the logging facility contract used throughout the
// container. It is an out-of-scope collaborator per the
// specification: callers may supply any implementation, the
// definition package only ships a default.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}
