// Package logutil gates debug logging behind the --verbose flag.
package logutil

import (
	"log"
)

var isVerbose bool

// SetVerbose switches debug logging on or off.
func SetVerbose(verbose bool) {
	isVerbose = verbose
}

// IsVerbose reports whether debug logging is on.
func IsVerbose() bool {
	return isVerbose
}

// Debugf logs only when verbose logging is on.
func Debugf(format string, args ...interface{}) {
	if isVerbose {
		log.Printf("[DEBUG] "+format, args...)
	}
}
