// Command proxyd intercepts connections to an authentication-agent
// socket, admitting only same-uid peers, splicing each onto a fresh
// connection to the real agent, and spawning an unprivileged notifier
// program per accepted connection.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/op/go-logging"

	"krypt.co/authproxy"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: proxyd <listen-path> <agent-path> <notifier-program> [notifier-arg...]")
}

var log = authproxy.SetupLogging("proxyd", logging.INFO, authproxy.UseSyslog())

func main() {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
			panic(x)
		}
	}()

	if len(os.Args) < 4 {
		usage()
		os.Exit(1)
	}
	listenPath := os.Args[1]
	agentPath := os.Args[2]
	notifierProgram := os.Args[3]
	notifierArgs := os.Args[4:]

	version, err := authproxy.ParsedVersion()
	if err != nil {
		log.Fatal(err)
	}
	runID := authproxy.RunID()
	log.Notice(authproxy.Green(fmt.Sprintf("proxyd %s run=%s starting, listen=%s agent=%s", version, runID, listenPath, agentPath)))

	if err := run(listenPath, agentPath, notifierProgram, notifierArgs); err != nil {
		log.Error(authproxy.Red(err.Error()))
		os.Exit(1)
	}
}
