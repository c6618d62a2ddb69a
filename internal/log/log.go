// Package log provides the leveled, dependency-free logger used across
// this module, mirroring rclone's own fs.Logf/Debugf/Infof: a small level
// enum over the standard library's log package rather than a third-party
// logging library, because that is what rclone's own core does (logrus
// only ever arrives transitively through a cloud SDK dependency, never
// from rclone's own logging calls).
package log

import (
	"fmt"
	"log"
	"os"
)

// Level controls verbosity.
type Level int

// Levels, from quietest to loudest.
const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

var (
	current = LevelInfo
	std     = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLevel changes the process-wide verbosity.
func SetLevel(l Level) { current = l }

func logf(l Level, prefix string, format string, args ...interface{}) {
	if l > current {
		return
	}
	std.Output(3, prefix+" "+fmt.Sprintf(format, args...)) //nolint:errcheck
}

// Errorf always logs.
func Errorf(format string, args ...interface{}) { logf(LevelError, "ERROR:", format, args...) }

// Infof logs at LevelInfo and louder.
func Infof(format string, args ...interface{}) { logf(LevelInfo, "INFO :", format, args...) }

// Debugf logs at LevelDebug only.
func Debugf(format string, args ...interface{}) { logf(LevelDebug, "DEBUG:", format, args...) }
