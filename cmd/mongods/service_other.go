//go:build !windows

package main

import (
	"fmt"
	"os"
)

func isRunningAsService() bool {
	return false
}

func runAsService() {}

func serviceCommand(name string) {
	fmt.Printf("'%s' is only available on Windows. Use your init system to manage mongods.\n", name)
	os.Exit(1)
}
