package authproxy

import (
	"fmt"
	"runtime/debug"

	"github.com/op/go-logging"
)

// RecoverToLog runs f, recovering and logging any panic instead of
// letting it escape. The Windows supervisor wraps each per-connection
// goroutine with it, so one bad connection can't take the rest of the
// listener down with it. cmd/proxyd's own top-level recover re-panics
// after logging instead, since there the process should still die; it
// is not built on this helper for that reason.
func RecoverToLog(f func(), log *logging.Logger) {
	defer func() {
		if x := recover(); x != nil {
			if log != nil {
				log.Error(Red(fmt.Sprintf("run time panic: %v", x)))
				log.Error(string(debug.Stack()))
			}
		}
	}()
	f()
}
