// +build !windows

package proxy

import (
	"fmt"

	"golang.org/x/sys/unix"

	"krypt.co/authproxy"
)

// pumpResult reports what happened during one readiness-driven pump
// call, mirroring original_source/agent-beeper.c's pump() return values
// of 1 (continue), 0 (orderly EOF), -1 (fatal).
type pumpResult int

const (
	pumpContinue pumpResult = iota
	pumpEOF
	pumpFatal
)

// pump reads once from src and writes the bytes read to dst, matching
// agent-beeper.c's pump: a single recv followed by a write loop that
// retries on partial writes and EINTR. buf is a scratch buffer owned by
// the caller and reused across calls; the supervisor is single-threaded
// so this is safe. The returned error is nil for pumpContinue, and for
// pumpEOF/pumpFatal wraps authproxy.ErrEndOfStream/authproxy.ErrPump so
// callers can test the cause with errors.Is.
func pump(src, dst int, buf []byte) (pumpResult, error) {
	n, err := unix.Read(src, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return pumpContinue, nil
		}
		return pumpFatal, fmt.Errorf("%w: read: %v", authproxy.ErrPump, err)
	}
	if n == 0 {
		return pumpEOF, fmt.Errorf("%w", authproxy.ErrEndOfStream)
	}

	pos := 0
	for pos < n {
		written, err := unix.Write(dst, buf[pos:n])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			// Matches agent-beeper.c's pump: any other send error,
			// EAGAIN/EWOULDBLOCK included, is fatal rather than
			// buffered or retried. A non-blocking destination whose
			// kernel buffer is full drops the connection instead of
			// growing unbounded state outside the fixed-capacity pool.
			return pumpFatal, fmt.Errorf("%w: write: %v", authproxy.ErrPump, err)
		}
		if written == 0 {
			return pumpEOF, fmt.Errorf("%w", authproxy.ErrEndOfStream)
		}
		pos += written
	}
	return pumpContinue, nil
}
