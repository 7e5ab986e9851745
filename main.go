// Command img2img-demo wraps pretrained image-to-image diffusion pipelines
// behind a CLI, an HTTP upload API, and an interactive studio page.
//
// With no flags it prints usage. Typical invocations:
//
//	img2img-demo --input photo.jpg --prompt "a watercolor painting" --model stable-diffusion
//	img2img-demo --input-dir ./photos --prompt "oil painting" --style oil
//	img2img-demo --demo
//	img2img-demo --web --studio
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/core"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/core/validation"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/logging"
)

// cliFlags holds every parsed command-line flag.
//
// Numeric tunables use -1 as the "not set" sentinel so a run can tell an
// explicit --strength 0 apart from no flag at all; unset tunables fall
// through to the per-model catalog defaults.
type cliFlags struct {
	// Inputs
	input    string
	inputDir string

	// Generation parameters
	prompt         string
	negativePrompt string
	model          string
	style          string
	strength       float64
	guidanceScale  float64
	numSteps       int
	seed           int64

	// Modes
	demo           bool
	listModels     bool
	downloadModels bool
	cleanup        bool
	validate       bool
	web            bool
	studio         bool
	version        bool

	// Tuning
	backend    string
	cleanupAge string
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("img2img-demo", flag.ContinueOnError)

	fs.StringVar(&f.input, "input", "", "input image file to transform")
	fs.StringVar(&f.inputDir, "input-dir", "", "directory of images to transform in batch")
	fs.StringVar(&f.prompt, "prompt", "", "text prompt describing the transformation")
	fs.StringVar(&f.negativePrompt, "negative-prompt", "", "things the model should avoid")
	fs.StringVar(&f.model, "model", "stable-diffusion", "pipeline to use (see --list-models)")
	fs.StringVar(&f.style, "style", "", "style label used in output filenames")
	fs.Float64Var(&f.strength, "strength", -1, "transformation strength 0.0-1.0 (default: per-model)")
	fs.Float64Var(&f.guidanceScale, "guidance-scale", -1, "prompt adherence 1.0-20.0 (default: per-model)")
	fs.IntVar(&f.numSteps, "num-steps", -1, "denoising steps 10-100 (default: per-model)")
	fs.Int64Var(&f.seed, "seed", -1, "random seed, -1 for random")

	fs.BoolVar(&f.demo, "demo", false, "run the built-in demo across sample images")
	fs.BoolVar(&f.listModels, "list-models", false, "list available pipelines and exit")
	fs.BoolVar(&f.downloadModels, "download-models", false, "download missing model checkpoints and exit")
	fs.BoolVar(&f.cleanup, "cleanup", false, "remove old results and exit")
	fs.BoolVar(&f.validate, "validate", false, "run preflight checks and exit")
	fs.BoolVar(&f.web, "web", false, "serve the upload API (default port 5000)")
	fs.BoolVar(&f.studio, "studio", false, "serve the interactive studio (default port 7860)")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.StringVar(&f.backend, "backend", "auto", "diffusion backend: auto, sd-webui, openai, or stub")
	fs.StringVar(&f.cleanupAge, "cleanup-age", "168h", "age threshold for --cleanup (Go duration)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// hasWork reports whether any mode flag was given.
func (f *cliFlags) hasWork() bool {
	return f.input != "" || f.inputDir != "" || f.demo || f.listModels ||
		f.downloadModels || f.cleanup || f.validate || f.web || f.studio || f.version
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	// Service subcommands (install/uninstall/start/stop) short-circuit
	// before anything else; no-op on non-Windows platforms.
	if HandleServiceCommand(args) {
		return core.ExitCodeSuccess
	}

	flags, err := parseFlags(args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return core.ExitCodeSuccess
		}
		return core.ExitCodeError
	}

	if flags.version {
		fmt.Println("img2img-demo", core.VersionInfo())
		return core.ExitCodeSuccess
	}

	if !flags.hasWork() {
		printUsage()
		return core.ExitCodeSuccess
	}

	// .env is optional; every setting has a default.
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded configuration from .env")
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"
	logger, err := logging.NewLogger(isDevelopment, core.EnvOrDefault("LOG_FILE", "img2img-demo.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	cfg, err := core.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return core.ExitCodeError
	}

	printBanner()

	app := &application{cfg: cfg, logger: logger, flags: flags}
	return app.dispatch(context.Background())
}

// application bundles the pieces every mode needs.
type application struct {
	cfg    *core.Config
	logger *logging.Logger
	flags  *cliFlags
}

func (a *application) dispatch(ctx context.Context) int {
	switch {
	case a.flags.listModels:
		return a.runListModels()
	case a.flags.downloadModels:
		return a.runDownloadModels(ctx)
	case a.flags.cleanup:
		return a.runCleanup(ctx)
	case a.flags.validate:
		return a.runValidate(ctx)
	case a.flags.web || a.flags.studio:
		return a.runServe(ctx)
	case a.flags.demo:
		return a.runDemo(ctx)
	case a.flags.inputDir != "":
		return a.runBatch(ctx)
	case a.flags.input != "":
		return a.runSingle(ctx)
	default:
		printUsage()
		return core.ExitCodeSuccess
	}
}

// runValidate runs the full preflight, including backend connectivity.
func (a *application) runValidate(ctx context.Context) int {
	provider, _ := a.chooseProvider(ctx)
	report := validation.NewPreflight(a.cfg).
		WithProvider(provider).
		Run(ctx)
	if !report.OK {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// preflight runs the offline checks that every mode depends on.
func (a *application) preflight() bool {
	report := validation.NewPreflight(a.cfg).WithShowProgress(false).RunQuick()
	if !report.OK {
		a.logger.Error("preflight failed", zap.Error(report.FirstErr()))
		fmt.Fprintln(os.Stderr, report.Summary())
		for _, err := range report.Errs() {
			fmt.Fprintf(os.Stderr, "  - %v\n", err)
		}
		return false
	}
	return true
}

// chooseProvider selects the diffusion backend per the --backend flag.
// "auto" prefers a reachable Stable Diffusion WebUI, then the OpenAI
// image API if a key is configured, and finally the offline stub.
func (a *application) chooseProvider(ctx context.Context) (imagegen.Provider, string) {
	httpClient := providerHTTPClient(a.cfg)

	switch a.flags.backend {
	case "sd-webui":
		return imagegen.NewWebUIProvider(a.cfg.SDWebUIURL, imagegen.WithHTTPClient(httpClient)), "sd-webui"
	case "openai":
		return imagegen.NewOpenAIProvider(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, ""), "openai"
	case "stub":
		return imagegen.NewStubProvider(), "stub"
	}

	webui := imagegen.NewWebUIProvider(a.cfg.SDWebUIURL, imagegen.WithHTTPClient(httpClient))
	pingCtx, cancel := context.WithTimeout(ctx, webuiProbeTimeout)
	defer cancel()
	if err := webui.Ping(pingCtx); err == nil {
		return webui, "sd-webui"
	}

	if a.cfg.OpenAIAPIKey != "" {
		a.logger.Info("sd-webui unreachable, using OpenAI image API",
			zap.String("url", a.cfg.SDWebUIURL))
		return imagegen.NewOpenAIProvider(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, ""), "openai"
	}

	a.logger.Warn("no diffusion backend reachable, using offline stub",
		zap.String("url", a.cfg.SDWebUIURL))
	color.New(color.FgYellow).Fprintln(os.Stderr,
		"No diffusion backend reachable; running with the offline stub. "+
			"Start Stable Diffusion WebUI or set OPENAI_API_KEY for real output.")
	return imagegen.NewStubProvider(), "stub"
}

// providerHTTPClient builds the HTTP client handed to diffusion backends.
// It carries no client-level timeout: a hard deadline here would cap every
// generation regardless of GENERATION_TIMEOUT, and slow CPU renders
// routinely run past 30s. Each attempt is bounded by its request context
// instead.
func providerHTTPClient(cfg *core.Config) *http.Client {
	return core.GetHTTPClient(cfg, 0)
}

// newGenerator builds the generation pipeline for the selected backend.
func (a *application) newGenerator(provider imagegen.Provider) (*imagegen.Generator, error) {
	catalog, err := imagegen.LoadCatalog(core.EnvOrDefault("MODEL_CATALOG", "./models.yaml"))
	if err != nil {
		return nil, err
	}
	return imagegen.NewGenerator(catalog, provider,
		imagegen.WithLogger(a.logger),
		imagegen.WithMaxRetries(a.cfg.MaxRetries),
		imagegen.WithRetryDelay(a.cfg.RetryDelay),
		imagegen.WithTimeout(a.cfg.GenerationTimeout),
		imagegen.WithMaxConcurrent(a.cfg.MaxConcurrent),
	), nil
}

func printBanner() {
	color.New(color.FgCyan, color.Bold).Println("img2img-demo")
	color.New(color.FgHiBlack).Printf("image-to-image generation with pretrained diffusion models (%s)\n\n", core.VersionInfo())
}

func printUsage() {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	bold.Println("img2img-demo - image-to-image generation with pretrained diffusion models")
	fmt.Println()
	fmt.Println("Transform images:")
	dim.Println("  img2img-demo --input photo.jpg --prompt \"a watercolor painting\"")
	dim.Println("  img2img-demo --input-dir ./photos --prompt \"oil painting\" --model stable-diffusion-xl")
	dim.Println("  img2img-demo --demo")
	fmt.Println()
	fmt.Println("Serve:")
	dim.Println("  img2img-demo --web              # upload API on port 5000")
	dim.Println("  img2img-demo --studio           # interactive studio on port 7860")
	fmt.Println()
	fmt.Println("Manage:")
	dim.Println("  img2img-demo --list-models")
	dim.Println("  img2img-demo --download-models")
	dim.Println("  img2img-demo --cleanup --cleanup-age 72h")
	dim.Println("  img2img-demo --validate")
	fmt.Println()
	fmt.Println("Run with --help for the full flag reference.")
}
