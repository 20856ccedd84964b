// Package logging builds the structured logrus logger shared by every
// component: one *logrus.Logger configured from a level string, each
// component deriving its own *logrus.Entry from it.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger at the requested level, writing to out (or
// os.Stdout if out is nil).
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	if out == nil {
		out = os.Stdout
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

// For returns a *logrus.Entry scoped to a component/name pair, mirroring the
// "component"/"name" field convention used throughout this codebase.
func For(log *logrus.Logger, component, name string) *logrus.Entry {
	return log.WithFields(logrus.Fields{"component": component, "name": name})
}
