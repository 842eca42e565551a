// +build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"krypt.co/authproxy/internal/proxy"
)

func run(listenPath, agentPath, notifierProgram string, notifierArgs []string) error {
	// SIGCHLD ignored so the kernel auto-reaps every notifier process;
	// SpawnNotifier deliberately never calls Wait (see notifier.go).
	signal.Ignore(syscall.SIGCHLD)
	// A write to a peer or agent socket that has already hung up raises
	// SIGPIPE by default; ignoring it process-wide means unix.Write
	// reports EPIPE instead of killing proxyd, since unix.Write (unlike
	// unix.Send) has no per-call MSG_NOSIGNAL equivalent.
	signal.Ignore(syscall.SIGPIPE)

	sup, err := proxy.NewSupervisor(proxy.Config{
		ListenPath:      listenPath,
		AgentPath:       agentPath,
		NotifierProgram: notifierProgram,
		NotifierArgs:    notifierArgs,
		Log:             log,
	})
	if err != nil {
		return err
	}
	defer sup.Close()

	dumpSignal := make(chan os.Signal, 1)
	signal.Notify(dumpSignal, syscall.SIGUSR1)
	go func() {
		for range dumpSignal {
			sup.DumpNotifiers()
		}
	}()

	return sup.Run()
}
