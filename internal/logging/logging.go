// Package logging configures the process-wide logrus logger.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init sets the output, level and formatter of the standard logrus logger.
// Debug enables debug-level state-transition logs.
func Init(debug bool, format string) {
	logrus.SetOutput(os.Stdout)

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if strings.EqualFold(format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}

// For returns a logger entry tagged with the component name.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
