package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/core"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/core/validation"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/metrics"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/resultstore"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/shutdown"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/studio"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/webapi"
)

// gpuPollInterval is how often the GPU collector samples nvidia-smi
// while serving.
const gpuPollInterval = 10 * time.Second

// runServe starts the upload API and/or the studio and blocks until a
// shutdown signal arrives.
func (a *application) runServe(ctx context.Context) int {
	provider, backend := a.chooseProvider(ctx)

	report := validation.NewPreflight(a.cfg).
		WithProvider(provider).
		Run(ctx)
	if !report.OK {
		a.logger.Error("preflight failed", zap.Error(report.FirstErr()))
		return core.ExitCodeError
	}

	generator, err := a.newGenerator(provider)
	if err != nil {
		a.logger.Error("generator setup failed", zap.Error(err))
		return core.ExitCodeError
	}
	store, err := resultstore.NewStore(a.cfg.ResultsDir)
	if err != nil {
		a.logger.Error("result store setup failed", zap.Error(err))
		return core.ExitCodeError
	}

	coordinator := shutdown.NewCoordinator(a.logger)
	coordinator.Start()

	conn, history := a.openHistory()
	if conn != nil {
		coordinator.Register("database", 30, func(ctx context.Context) error {
			return conn.Close()
		})
	}

	gpuReader := &metrics.NvidiaSMIReader{}
	device := metrics.DetectDevice(ctx, gpuReader)
	metricsStore := metrics.NewStore(device)
	collector := metrics.NewGPUCollector(metricsStore, gpuReader, gpuPollInterval)
	collector.Start()
	coordinator.Register("gpu-collector", 20, func(ctx context.Context) error {
		collector.Stop()
		return nil
	})
	coordinator.Register("logger", 0, func(ctx context.Context) error {
		return a.logger.Sync()
	})

	a.logger.Info("starting servers",
		zap.String("backend", backend),
		zap.String("device", device),
		zap.Bool("web", a.flags.web),
		zap.Bool("studio", a.flags.studio),
	)

	errCh := make(chan error, 2)

	if a.flags.web {
		webConfig := webapi.DefaultServerConfig()
		webConfig.Port = a.cfg.WebPort
		webConfig.MaxUploadBytes = a.cfg.MaxUploadBytes
		webConfig.PasswordHash = a.cfg.WebPassword
		webConfig.Guard = coordinator.Guard

		server := webapi.NewServer(webConfig, generator, store, history, metricsStore, a.logger)
		coordinator.Register("web-server", 10, func(ctx context.Context) error {
			return server.Shutdown(ctx)
		})
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()
		color.New(color.FgGreen).Printf("Upload API listening on http://localhost:%d\n", a.cfg.WebPort)
	}

	if a.flags.studio {
		studioConfig := studio.DefaultServerConfig()
		studioConfig.Port = a.cfg.StudioPort
		studioConfig.Guard = coordinator.Guard

		server := studio.NewServer(studioConfig, generator, store, history, metricsStore, a.logger)
		coordinator.Register("studio-server", 10, func(ctx context.Context) error {
			return server.Shutdown(ctx)
		})
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("studio server: %w", err)
			}
		}()
		color.New(color.FgGreen).Printf("Studio listening on http://localhost:%d\n", a.cfg.StudioPort)
	}

	fmt.Println("Press Ctrl+C to stop.")

	exitCode := core.ExitCodeSuccess
	select {
	case err := <-errCh:
		a.logger.Error("server failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = core.ExitCodeError
	case <-coordinator.Context().Done():
	}

	if err := coordinator.Shutdown(); err != nil {
		a.logger.Error("shutdown finished with errors", zap.Error(err))
		if exitCode == core.ExitCodeSuccess {
			exitCode = core.ExitCodeError
		}
	}
	return exitCode
}
