package validation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/core"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/metrics"
)

// testConfig returns a valid configuration rooted in a temp directory.
func testConfig(t *testing.T) *core.Config {
	t.Helper()
	dir := t.TempDir()
	return &core.Config{
		SDWebUIURL:           "http://127.0.0.1:7861",
		ResultsDir:           filepath.Join(dir, "results"),
		ModelsDir:            filepath.Join(dir, "models"),
		SamplesDir:           filepath.Join(dir, "samples"),
		DefaultStrength:      0.75,
		DefaultGuidanceScale: 7.5,
		DefaultSteps:         50,
		MaxImageSize:         1024,
		WebPort:              5000,
		StudioPort:           7860,
		MaxUploadBytes:       16 * 1024 * 1024,
		Device:               "auto",
		MaxRetries:           3,
		RetryDelay:           time.Second,
		GenerationTimeout:    time.Minute,
		MaxConcurrent:        2,
	}
}

func quietPreflight(cfg *core.Config) *Preflight {
	return NewPreflight(cfg).
		WithShowProgress(false).
		WithEnvPath(filepath.Join(os.TempDir(), "no-such-env-file"))
}

type pingProvider struct {
	err  error
	name string
}

func (p *pingProvider) Transform(ctx context.Context, model imagegen.ModelInfo, req imagegen.Request) (*imagegen.ProviderResult, error) {
	return nil, errors.New("not implemented")
}

func (p *pingProvider) Ping(ctx context.Context) error { return p.err }

func (p *pingProvider) Name() string {
	if p.name != "" {
		return p.name
	}
	return "ping-test"
}

type fakeGPUReader struct {
	gpu metrics.GPUMetrics
	err error
}

func (r *fakeGPUReader) ReadGPUMetrics(ctx context.Context) (metrics.GPUMetrics, error) {
	return r.gpu, r.err
}

func TestPreflightBuilder(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t)

	p := NewPreflight(cfg).
		WithOutput(&buf).
		WithTimeout(5 * time.Second).
		WithShowProgress(false).
		WithFailFast(true).
		WithEnvPath("/custom/.env").
		WithMinFreeBytes(1)

	if p.output != &buf {
		t.Error("WithOutput did not set the writer")
	}
	if p.timeout != 5*time.Second {
		t.Error("WithTimeout did not set the timeout")
	}
	if p.showProgress {
		t.Error("WithShowProgress did not disable rendering")
	}
	if !p.failFast {
		t.Error("WithFailFast did not set the flag")
	}
	if p.envPath != "/custom/.env" {
		t.Error("WithEnvPath did not set the path")
	}
	if p.minFreeBytes != 1 {
		t.Error("WithMinFreeBytes did not set the requirement")
	}
}

func TestCheckStatusString(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusWarning, "warning"},
		{StatusSkipped, "skipped"},
		{CheckStatus(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunQuickAllPass(t *testing.T) {
	cfg := testConfig(t)
	report := quietPreflight(cfg).RunQuick()

	if !report.OK {
		t.Fatalf("RunQuick failed: %v", report.Errs())
	}
	if report.Failed != 0 {
		t.Errorf("Failed = %d, want 0", report.Failed)
	}
	// Missing .env is a warning, never a failure.
	if report.Warnings < 1 {
		t.Errorf("Warnings = %d, want at least 1 for missing env file", report.Warnings)
	}
	if report.Total != 6 {
		t.Errorf("Total = %d, want 6 offline checks", report.Total)
	}

	// Directory checks create the directories they probe.
	for _, dir := range []string{cfg.ResultsDir, cfg.ModelsDir, cfg.SamplesDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory %s was not created: %v", dir, err)
		}
	}
}

func TestRunQuickInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultStrength = 3.0

	report := quietPreflight(cfg).RunQuick()

	if report.OK {
		t.Fatal("RunQuick passed with an out-of-range strength")
	}
	if report.FirstErr() == nil {
		t.Error("FirstErr() = nil for a failed run")
	}
	if !strings.Contains(report.FirstErr().Error(), "DEFAULT_STRENGTH") {
		t.Errorf("FirstErr() = %v, want strength range error", report.FirstErr())
	}
}

func TestRunQuickFailFast(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultSteps = 5 // below the valid range

	report := quietPreflight(cfg).WithFailFast(true).RunQuick()

	if report.OK {
		t.Fatal("expected failure")
	}
	var skipped int
	for _, c := range report.Checks {
		if c.Status == StatusSkipped {
			skipped++
		}
	}
	// Configuration is the second check; the four after it are skipped.
	if skipped != 4 {
		t.Errorf("skipped = %d, want 4", skipped)
	}
}

func TestCheckEnvFile(t *testing.T) {
	cfg := testConfig(t)

	t.Run("present", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("WEB_PORT=5000\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		p := NewPreflight(cfg).WithShowProgress(false).WithEnvPath(envPath)
		report := p.RunQuick()
		if report.Checks[0].Status != StatusPassed {
			t.Errorf("env check = %v, want passed", report.Checks[0].Status)
		}
	})

	t.Run("missing is a warning", func(t *testing.T) {
		p := NewPreflight(cfg).WithShowProgress(false).
			WithEnvPath(filepath.Join(t.TempDir(), ".env"))
		report := p.RunQuick()
		if report.Checks[0].Status != StatusWarning {
			t.Errorf("env check = %v, want warning", report.Checks[0].Status)
		}
		if !report.OK {
			t.Error("missing env file should not fail the run")
		}
	})

	t.Run("directory fails", func(t *testing.T) {
		p := NewPreflight(cfg).WithShowProgress(false).WithEnvPath(t.TempDir())
		report := p.RunQuick()
		if report.Checks[0].Status != StatusFailed {
			t.Errorf("env check = %v, want failed", report.Checks[0].Status)
		}
	})
}

func TestRunBackendConnectivity(t *testing.T) {
	tests := []struct {
		name     string
		provider imagegen.Provider
		want     CheckStatus
	}{
		{"reachable", &pingProvider{}, StatusPassed},
		{"unreachable", &pingProvider{err: errors.New("connection refused")}, StatusFailed},
		{"no provider", nil, StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := quietPreflight(testConfig(t)).
				WithGPUReader(&fakeGPUReader{err: errors.New("no nvidia-smi")})
			if tt.provider != nil {
				p = p.WithProvider(tt.provider)
			}
			report := p.Run(context.Background())

			backend := report.Checks[len(report.Checks)-1]
			if backend.Name != "Diffusion backend" {
				t.Fatalf("last check = %q, want Diffusion backend", backend.Name)
			}
			if backend.Status != tt.want {
				t.Errorf("backend check = %v, want %v", backend.Status, tt.want)
			}
		})
	}
}

func TestRunGPUCheck(t *testing.T) {
	t.Run("cuda detected", func(t *testing.T) {
		p := quietPreflight(testConfig(t)).
			WithProvider(&pingProvider{}).
			WithGPUReader(&fakeGPUReader{gpu: metrics.GPUMetrics{Name: "NVIDIA GeForce RTX 3080"}})
		report := p.Run(context.Background())

		gpu := report.Checks[len(report.Checks)-2]
		if gpu.Status != StatusPassed {
			t.Errorf("gpu check = %v, want passed", gpu.Status)
		}
		if !strings.Contains(gpu.Detail, "RTX 3080") {
			t.Errorf("gpu detail = %q, want device name", gpu.Detail)
		}
	})

	t.Run("cpu fallback warns", func(t *testing.T) {
		p := quietPreflight(testConfig(t)).
			WithProvider(&pingProvider{}).
			WithGPUReader(&fakeGPUReader{err: errors.New("exec: nvidia-smi not found")})
		report := p.Run(context.Background())

		gpu := report.Checks[len(report.Checks)-2]
		if gpu.Status != StatusWarning {
			t.Errorf("gpu check = %v, want warning", gpu.Status)
		}
		if !report.OK {
			t.Error("CPU fallback should not fail the run")
		}
	})

	t.Run("cuda required fails", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Device = "cuda"
		p := quietPreflight(cfg).
			WithProvider(&pingProvider{}).
			WithGPUReader(&fakeGPUReader{err: errors.New("exec: nvidia-smi not found")})
		report := p.Run(context.Background())

		gpu := report.Checks[len(report.Checks)-2]
		if gpu.Status != StatusFailed {
			t.Errorf("gpu check = %v, want failed", gpu.Status)
		}
		if report.OK {
			t.Error("DEVICE=cuda without a GPU must fail preflight")
		}
	})
}

func TestReportSummary(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   []string
	}{
		{
			name: "passed",
			report: Report{
				Total: 6, Passed: 5, Warnings: 1, OK: true,
				Elapsed: 120 * time.Millisecond,
			},
			want: []string{"Preflight passed", "5/6 checks passed", "1 warnings"},
		},
		{
			name: "failed",
			report: Report{
				Total: 6, Passed: 4, Failed: 2, OK: false,
				Elapsed: 80 * time.Millisecond,
			},
			want: []string{"Preflight failed", "4/6 checks passed", "2 failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.report.Summary()
			for _, fragment := range tt.want {
				if !strings.Contains(got, fragment) {
					t.Errorf("Summary() = %q, missing %q", got, fragment)
				}
			}
		})
	}
}

func TestReportErrs(t *testing.T) {
	errA := errors.New("check a failed")
	errB := errors.New("check b failed")
	report := Report{Checks: []Check{
		{Name: "a", Status: StatusFailed, Err: errA},
		{Name: "b", Status: StatusPassed},
		{Name: "c", Status: StatusFailed, Err: errB},
	}}

	errs := report.Errs()
	if len(errs) != 2 {
		t.Fatalf("Errs() returned %d errors, want 2", len(errs))
	}
	if !errors.Is(errs[0], errA) || !errors.Is(errs[1], errB) {
		t.Error("Errs() returned errors out of order")
	}
	if !errors.Is(report.FirstErr(), errA) {
		t.Errorf("FirstErr() = %v, want %v", report.FirstErr(), errA)
	}
}

func TestProgressRendering(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t)

	quiet := NewPreflight(cfg).
		WithOutput(&buf).
		WithEnvPath(filepath.Join(t.TempDir(), ".env"))
	quiet.RunQuick()

	out := buf.String()
	for _, fragment := range []string{"Preflight Checks", "Configuration", "Results directory", "Passed"} {
		if !strings.Contains(out, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, out)
		}
	}
}

func TestWritableDirCreatesNested(t *testing.T) {
	cfg := testConfig(t)
	nested := filepath.Join(t.TempDir(), "a", "b", "results")
	cfg.ResultsDir = nested

	report := quietPreflight(cfg).RunQuick()
	if !report.OK {
		t.Fatalf("RunQuick failed: %v", report.Errs())
	}
	if _, err := os.Stat(nested); err != nil {
		t.Errorf("nested results directory not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(nested, ".preflight-probe")); !os.IsNotExist(err) {
		t.Error("probe file left behind")
	}
}
