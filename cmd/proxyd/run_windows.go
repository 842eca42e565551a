// +build windows

package main

import (
	"krypt.co/authproxy/internal/proxy"
)

func run(listenPath, agentPath, notifierProgram string, notifierArgs []string) error {
	sup, err := proxy.NewWindowsSupervisor(proxy.WindowsConfig{
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

	return sup.Run()
}
