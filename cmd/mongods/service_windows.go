package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const serviceName = "mongods"

// exitServeFailed is reported to the service manager when serve returns an error.
const exitServeFailed = 1

type serviceRunner struct{}

// Execute runs serve under the service manager. A failed start is reported as
// a service specific exit code instead of terminating the process.
func (serviceRunner) Execute(_ []string, changeReq <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	status <- svc.Status{State: svc.StartPending}

	// .env and the audit database are resolved relative to the executable.
	if exe, err := os.Executable(); err == nil {
		_ = os.Chdir(filepath.Dir(exe))
	}

	stop := make(chan struct{})
	result := make(chan error, 1)
	go func() { result <- serve(stop) }()

	status <- svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}

	for {
		select {
		case err := <-result:
			if err != nil {
				return true, exitServeFailed
			}
			return false, 0
		case c := <-changeReq:
			switch c.Cmd {
			case svc.Interrogate:
				status <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				status <- svc.Status{State: svc.StopPending, WaitHint: uint32((shutdownTimeout + time.Second) / time.Millisecond)}
				close(stop)
				<-result
				return false, 0
			}
		}
	}
}

func isRunningAsService() bool {
	ok, err := svc.IsWindowsService()
	return err == nil && ok
}

func runAsService() {
	if err := svc.Run(serviceName, serviceRunner{}); err != nil {
		fmt.Printf("Failed to run as service: %v\n", err)
		os.Exit(1)
	}
}

var serviceActions = map[string]func(*mgr.Mgr) error{
	"install": installService,
	"uninstall": func(m *mgr.Mgr) error {
		return withService(m, (*mgr.Service).Delete)
	},
	"start": func(m *mgr.Mgr) error {
		return withService(m, func(s *mgr.Service) error { return s.Start() })
	},
	"stop": func(m *mgr.Mgr) error {
		return withService(m, func(s *mgr.Service) error {
			_, err := s.Control(svc.Stop)
			return err
		})
	},
}

func serviceCommand(name string) {
	m, err := mgr.Connect()
	if err != nil {
		fmt.Printf("Failed to connect to service manager: %v\nRun this command as Administrator.\n", err)
		os.Exit(1)
	}
	defer m.Disconnect()

	if err := serviceActions[name](m); err != nil {
		fmt.Printf("%s: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("%s: service '%s' ok\n", name, serviceName)
}

// installService registers the executable to run "serve" at boot.
func installService(m *mgr.Mgr) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if s, err := m.OpenService(serviceName); err == nil {
		s.Close()
		return fmt.Errorf("service '%s' is already installed", serviceName)
	}

	s, err := m.CreateService(serviceName, exe, mgr.Config{
		DisplayName: "mongods MongoDB Data Source Adapter",
		Description: "Settings editor, query editor and query forwarding sidecar for the MongoDB data source",
		StartType:   mgr.StartAutomatic,
	}, "serve")
	if err != nil {
		return err
	}
	return s.Close()
}

func withService(m *mgr.Mgr, fn func(*mgr.Service) error) error {
	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("service '%s' is not installed: %w", serviceName, err)
	}
	defer s.Close()
	return fn(s)
}
