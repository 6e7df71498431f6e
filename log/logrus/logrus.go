package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/rediskit"
)

// Logger adapts a *logrus.Entry to the rediskit Logger seam.
type Logger struct{ E *logrus.Entry }

var _ rediskit.Logger = Logger{}

func (l Logger) Debug(msg string, f rediskit.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l Logger) Info(msg string, f rediskit.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f rediskit.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f rediskit.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
