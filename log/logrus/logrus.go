// Package logrus adapts a logrus entry to nscache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/nscache"
)

// Logger forwards nscache log calls to a logrus entry. An error value stored
// under "err" is attached with WithError so logrus formatters treat it as one.
type Logger struct{ E *logrus.Entry }

var _ nscache.Logger = Logger{}

// New wraps l, tagging every record with component=nscache. A nil l uses
// logrus.StandardLogger().
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{E: l.WithField("component", "nscache")}
}

func (l Logger) entry(f nscache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	e := l.E
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		fields[k] = v
	}
	return e.WithFields(fields)
}

func (l Logger) Debug(msg string, f nscache.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f nscache.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f nscache.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f nscache.Fields) { l.entry(f).Error(msg) }
