package authproxy

import (
	"fmt"
)

// Sentinel errors for the per-connection error taxonomy.
// Startup errors are fatal; all others are contained to one connection.
var (
	ErrStartup               = fmt.Errorf("startup failed")
	ErrAcceptTransient       = fmt.Errorf("spurious accept readiness")
	ErrAdmissionRefusal      = fmt.Errorf("peer admission refused")
	ErrUpstreamConnectFailed = fmt.Errorf("upstream agent connect failed")
	ErrPump                  = fmt.Errorf("pump failed")
	ErrEndOfStream           = fmt.Errorf("end of stream")
	ErrSpawnFailure          = fmt.Errorf("notifier spawn failed")
	ErrPoolExhausted         = fmt.Errorf("connection pool exhausted")
)
