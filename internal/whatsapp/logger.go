package whatsapp

import (
	"fmt"

	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// logrusLogger routes whatsmeow's internal logging into logrus.
type logrusLogger struct {
	entry *logrus.Entry
}

func newLogger(module string) waLog.Logger {
	return &logrusLogger{entry: logrus.WithField("module", module)}
}

func (l *logrusLogger) Debugf(msg string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(msg, args...))
}

func (l *logrusLogger) Infof(msg string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(msg, args...))
}

func (l *logrusLogger) Warnf(msg string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(msg, args...))
}

func (l *logrusLogger) Errorf(msg string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(msg, args...))
}

func (l *logrusLogger) Sub(module string) waLog.Logger {
	parent, _ := l.entry.Data["module"].(string)
	if parent != "" {
		module = parent + "/" + module
	}
	return &logrusLogger{entry: l.entry.WithField("module", module)}
}

var _ waLog.Logger = (*logrusLogger)(nil)
