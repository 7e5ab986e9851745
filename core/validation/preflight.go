package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/core"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/metrics"
)

// MinFreeBytes is the disk headroom required in the results directory.
// A single SDXL output with its sidecar is a few megabytes; 500MB leaves
// room for a long demo session plus downloaded weights overflow.
const MinFreeBytes int64 = 500 * 1024 * 1024

// Preflight orchestrates the startup checks. Construct with NewPreflight,
// tune with the With* methods, then call Run (full) or RunQuick (offline).
type Preflight struct {
	cfg          *core.Config
	provider     imagegen.Provider
	gpuReader    metrics.GPUReader
	envPath      string
	output       io.Writer
	timeout      time.Duration
	minFreeBytes int64
	showProgress bool
	failFast     bool
}

// NewPreflight creates a Preflight for the given configuration.
func NewPreflight(cfg *core.Config) *Preflight {
	return &Preflight{
		cfg:          cfg,
		envPath:      ".env",
		output:       defaultOutput(),
		timeout:      10 * time.Second,
		minFreeBytes: MinFreeBytes,
		showProgress: true,
	}
}

// WithProvider sets the diffusion backend to ping during the full run.
// Without a provider the connectivity check is skipped.
func (p *Preflight) WithProvider(provider imagegen.Provider) *Preflight {
	p.provider = provider
	return p
}

// WithGPUReader overrides how GPU availability is probed. The default
// shells out to nvidia-smi.
func (p *Preflight) WithGPUReader(reader metrics.GPUReader) *Preflight {
	p.gpuReader = reader
	return p
}

// WithEnvPath sets a custom path for the .env file check.
func (p *Preflight) WithEnvPath(path string) *Preflight {
	p.envPath = path
	return p
}

// WithOutput redirects progress rendering, which goes to stdout by default.
func (p *Preflight) WithOutput(w io.Writer) *Preflight {
	p.output = w
	return p
}

// WithTimeout sets the per-check timeout for network probes.
func (p *Preflight) WithTimeout(timeout time.Duration) *Preflight {
	p.timeout = timeout
	return p
}

// WithMinFreeBytes overrides the disk headroom requirement.
func (p *Preflight) WithMinFreeBytes(n int64) *Preflight {
	p.minFreeBytes = n
	return p
}

// WithShowProgress toggles terminal rendering. Disable for tests.
func (p *Preflight) WithShowProgress(show bool) *Preflight {
	p.showProgress = show
	return p
}

// WithFailFast stops the run at the first failed check, marking the
// remaining checks skipped.
func (p *Preflight) WithFailFast(failFast bool) *Preflight {
	p.failFast = failFast
	return p
}

// namedCheck pairs a check with its display name for sequential runs.
type namedCheck struct {
	name string
	fn   checkFunc
}

// Run executes the full preflight: configuration, filesystem, disk space,
// GPU, and backend connectivity.
func (p *Preflight) Run(ctx context.Context) Report {
	if p.showProgress {
		p.printHeader("Preflight Checks")
	}

	checks := append(p.offlineChecks(), []namedCheck{
		{"GPU availability", p.checkGPU(ctx)},
		{"Diffusion backend", p.checkBackend(ctx)},
	}...)

	report := p.runAll(checks)
	if p.showProgress {
		p.printSummary(report)
	}
	return report
}

// RunQuick executes only the offline checks: no network probes, no
// nvidia-smi. Useful before purely local operations like --list-models.
func (p *Preflight) RunQuick() Report {
	if p.showProgress {
		p.printHeader("Preflight Checks (quick)")
	}
	report := p.runAll(p.offlineChecks())
	if p.showProgress {
		p.printSummary(report)
	}
	return report
}

func (p *Preflight) offlineChecks() []namedCheck {
	return []namedCheck{
		{"Environment file", p.checkEnvFile()},
		{"Configuration", p.checkConfig()},
		{"Results directory", p.checkWritableDir(p.cfg.ResultsDir)},
		{"Models directory", p.checkWritableDir(p.cfg.ModelsDir)},
		{"Samples directory", p.checkWritableDir(p.cfg.SamplesDir)},
		{"Disk space", p.checkDiskSpace()},
	}
}

func (p *Preflight) runAll(checks []namedCheck) Report {
	start := time.Now()
	results := make([]Check, 0, len(checks))
	failed := false

	for _, nc := range checks {
		if failed && p.failFast {
			results = append(results, p.skipCheck(nc.name, "skipped after earlier failure"))
			continue
		}
		c := p.runCheck(nc.name, nc.fn)
		if c.Status == StatusFailed {
			failed = true
		}
		results = append(results, c)
	}

	return p.buildReport(results, time.Since(start))
}

// checkEnvFile warns when no .env is present. Every setting has a default,
// so a missing file is informational rather than fatal.
func (p *Preflight) checkEnvFile() checkFunc {
	return func() (bool, bool, string, error) {
		info, err := os.Stat(p.envPath)
		if err != nil {
			return false, true, fmt.Sprintf("%s not found, using built-in defaults", p.envPath), nil
		}
		if info.IsDir() {
			return false, false, "", fmt.Errorf("validation: %s is a directory, expected a file", p.envPath)
		}
		return true, false, "environment file found", nil
	}
}

func (p *Preflight) checkConfig() checkFunc {
	return func() (bool, bool, string, error) {
		if p.cfg == nil {
			return false, false, "", fmt.Errorf("validation: no configuration loaded")
		}
		if err := p.cfg.Validate(); err != nil {
			return false, false, "", fmt.Errorf("validation: configuration invalid: %w", err)
		}
		return true, false, "all values in range", nil
	}
}

// checkWritableDir creates the directory if needed and proves writability
// by creating and removing a probe file.
func (p *Preflight) checkWritableDir(dir string) checkFunc {
	return func() (bool, bool, string, error) {
		if dir == "" {
			return false, false, "", fmt.Errorf("validation: directory path is empty")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, false, "", fmt.Errorf("validation: cannot create %s: %w", dir, err)
		}
		probe := filepath.Join(dir, ".preflight-probe")
		f, err := os.Create(probe)
		if err != nil {
			return false, false, "", fmt.Errorf("validation: %s is not writable: %w", dir, err)
		}
		f.Close()
		os.Remove(probe)
		return true, false, dir, nil
	}
}

func (p *Preflight) checkDiskSpace() checkFunc {
	return func() (bool, bool, string, error) {
		info, err := core.GetDiskSpace(p.cfg.ResultsDir)
		if err != nil {
			// Unsupported platforms report success rather than blocking.
			return false, true, "disk space could not be determined", nil
		}
		if err := core.CheckDiskSpace(p.cfg.ResultsDir, p.minFreeBytes); err != nil {
			return false, false, "", fmt.Errorf("validation: %w", err)
		}
		return true, false, fmt.Sprintf("%s free", info.FreeFormatted), nil
	}
}

// checkGPU probes for CUDA. CPU-only hosts get a warning, not a failure,
// unless the configuration explicitly demands cuda.
func (p *Preflight) checkGPU(ctx context.Context) checkFunc {
	return func() (bool, bool, string, error) {
		reader := p.gpuReader
		if reader == nil {
			reader = &metrics.NvidiaSMIReader{}
		}
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		device := metrics.DetectDevice(probeCtx, reader)
		if device == "cuda" {
			gpu, err := reader.ReadGPUMetrics(probeCtx)
			if err == nil && gpu.Name != "" {
				return true, false, gpu.Name, nil
			}
			return true, false, "CUDA device detected", nil
		}
		if p.cfg.Device == "cuda" {
			return false, false, "", fmt.Errorf("validation: DEVICE=cuda but no CUDA device detected")
		}
		return false, true, "no GPU detected, generation will run on CPU", nil
	}
}

func (p *Preflight) checkBackend(ctx context.Context) checkFunc {
	return func() (bool, bool, string, error) {
		if p.provider == nil {
			return false, true, "no backend configured", nil
		}
		pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		start := time.Now()
		if err := p.provider.Ping(pingCtx); err != nil {
			return false, false, "", fmt.Errorf("validation: backend %q unreachable: %w", p.provider.Name(), err)
		}
		latency := time.Since(start).Round(time.Millisecond)
		return true, false, fmt.Sprintf("%s reachable (%v)", p.provider.Name(), latency), nil
	}
}
