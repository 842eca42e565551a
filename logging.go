package authproxy

import (
	stdlog "log"
	"log/syslog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("")

var syslogFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`,
)
var stderrFormat = logging.MustStringFormatter(
	`%{color}proxyd ▶ %{message}%{color:reset}`,
)

// SetupLogging wires a leveled op/go-logging logger: syslog when
// trySyslog succeeds, otherwise a colorized stderr backend (colorable on
// Windows consoles, plain ANSI elsewhere; isatty gates color entirely
// when stderr is redirected to a file). The level is overridable by
// PROXYD_LOG_LEVEL regardless of defaultLogLevel.
func SetupLogging(prefix string, defaultLogLevel logging.Level, trySyslog bool) *logging.Logger {
	var backend logging.Backend
	if trySyslog {
		var err error
		backend, err = logging.NewSyslogBackendPriority(prefix, syslog.LOG_NOTICE)
		if err == nil {
			logging.SetFormatter(syslogFormat)
			if syslogBackend, ok := backend.(*logging.SyslogBackend); ok {
				stdlog.SetOutput(syslogBackend.Writer)
			}
		} else {
			backend = nil
		}
	}
	if backend == nil {
		out := colorable.NewColorableStderr()
		if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			out = colorable.NewNonColorable(os.Stderr)
		}
		backend = logging.NewLogBackend(out, prefix, 0)
		logging.SetFormatter(stderrFormat)
	}
	leveled := logging.AddModuleLevel(backend)
	switch os.Getenv("PROXYD_LOG_LEVEL") {
	case "CRITICAL":
		leveled.SetLevel(logging.CRITICAL, prefix)
	case "ERROR":
		leveled.SetLevel(logging.ERROR, prefix)
	case "WARNING":
		leveled.SetLevel(logging.WARNING, prefix)
	case "NOTICE":
		leveled.SetLevel(logging.NOTICE, prefix)
	case "INFO":
		leveled.SetLevel(logging.INFO, prefix)
	case "DEBUG":
		leveled.SetLevel(logging.DEBUG, prefix)
	default:
		leveled.SetLevel(defaultLogLevel, prefix)
	}

	logging.SetBackend(leveled)
	return logging.MustGetLogger(prefix)
}

// UseSyslog reports whether PROXYD_LOG_SYSLOG opts out of syslog; syslog
// is tried by default, matching krd's useSyslog().
func UseSyslog() bool {
	env := os.Getenv("PROXYD_LOG_SYSLOG")
	if env != "" {
		return env == "true"
	}
	return true
}
