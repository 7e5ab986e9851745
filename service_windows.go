//go:build windows

// Windows service integration via github.com/kardianos/service. Installing
// the service runs the upload API and studio in the background; interactive
// invocations are unaffected.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"
)

// program implements service.Interface. It runs the serve mode under the
// service lifecycle.
type program struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.cancel()
	select {
	case <-p.done:
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timed out waiting for service stop")
	}
}

func (p *program) run() {
	defer close(p.done)
	code := run([]string{os.Args[0], "--web", "--studio"})
	if code != 0 {
		// The service manager restarts us per its policy.
		return
	}
	<-p.ctx.Done()
}

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "Img2ImgDemo",
		DisplayName: "Image-to-Image Generation Demo",
		Description: "Serves the image-to-image diffusion demo (upload API and studio).",
		Arguments:   []string{"--web", "--studio"},
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

func newService() (service.Service, error) {
	s, err := service.New(&program{}, serviceConfig())
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return s, nil
}

// HandleServiceCommand dispatches install/uninstall/start/stop/restart/status
// subcommands. Returns true when a service command was handled.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}

	var action func(service.Service) error
	switch args[1] {
	case "install":
		action = func(s service.Service) error { return s.Install() }
	case "uninstall", "remove":
		action = func(s service.Service) error { return s.Uninstall() }
	case "start":
		action = func(s service.Service) error { return s.Start() }
	case "stop":
		action = func(s service.Service) error { return s.Stop() }
	case "restart":
		action = func(s service.Service) error { return s.Restart() }
	case "status":
		action = printServiceStatus
	default:
		return false
	}

	s, err := newService()
	if err == nil {
		err = action(s)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if args[1] != "status" {
		fmt.Printf("Service %s completed\n", args[1])
	}
	return true
}

func printServiceStatus(s service.Service) error {
	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("query service status: %w", err)
	}
	switch status {
	case service.StatusRunning:
		fmt.Println("Service is running")
	case service.StatusStopped:
		fmt.Println("Service is stopped")
	default:
		fmt.Println("Service status unknown")
	}
	return nil
}
