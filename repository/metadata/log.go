package metadata

import (
	"github.com/sirupsen/logrus"
)

type sqlLogger struct {
	logger logrus.FieldLogger
}

func (l *sqlLogger) Printf(fmt string, args ...interface{}) {
	l.logger.WithField("component", "gorm").Debugf(fmt, args...)
}
