package client

// Logger is an optional package logger. *logrus.Entry and *logrus.Logger
// satisfy it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// prefixLogger tags every line of one run.
type prefixLogger struct {
	prefix string
	next   Logger
}

func (l prefixLogger) Debugf(format string, args ...any) { l.next.Debugf(l.prefix+format, args...) }
func (l prefixLogger) Infof(format string, args ...any)  { l.next.Infof(l.prefix+format, args...) }
func (l prefixLogger) Warnf(format string, args ...any)  { l.next.Warnf(l.prefix+format, args...) }
func (l prefixLogger) Errorf(format string, args ...any) { l.next.Errorf(l.prefix+format, args...) }
