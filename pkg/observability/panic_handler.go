package observability

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic logs a recovered panic with its stack and swallows it.
// It must be deferred directly:
//
//	defer observability.RecoverPanic(logger, "journal subscriber")
func RecoverPanic(logger *logrus.Logger, where string) {
	r := recover()
	if r == nil {
		return
	}
	OrDefault(logger).WithFields(logrus.Fields{
		"panic": r,
		"stack": string(debug.Stack()),
		"where": where,
	}).Error("PANIC recovered")
}
