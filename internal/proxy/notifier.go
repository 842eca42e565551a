package proxy

import (
	"fmt"
	"os"
	"os/exec"

	"krypt.co/authproxy"
)

// SpawnNotifier forks and execs the configured notifier program with its
// configured arguments: stdin redirected from /dev/null,
// stdout/stderr inherited, and SSH_CONN_PID (mandated) plus SSH_CONN_ID
// exported.
//
// The caller never waits on the returned process: SIGCHLD is ignored
// process-wide at startup (see cmd/proxyd), which on POSIX systems causes
// the kernel to reap the child the instant it exits, with no zombie and
// no further bookkeeping — the Go-idiomatic equivalent of the original's
// sigaction(SIGCHLD, SIG_IGN, SA_NOCLDSTOP|SA_NOCLDWAIT). Calling Wait
// here would race that auto-reap and routinely fail with ECHILD.
func SpawnNotifier(program string, args []string, peerPID int32, connID string) (pid int, err error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", authproxy.ErrSpawnFailure, os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(program, args...)
	cmd.Stdin = devNull
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SSH_CONN_PID=%d", peerPID),
		fmt.Sprintf("SSH_CONN_ID=%s", connID),
	)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %v", authproxy.ErrSpawnFailure, err)
	}
	return cmd.Process.Pid, nil
}
