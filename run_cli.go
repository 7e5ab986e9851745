package main

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/core"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/db"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/resultstore"
)

// webuiProbeTimeout bounds the backend reachability probe in auto mode.
const webuiProbeTimeout = 3 * time.Second

// requestFromFlags builds a generation request from the parsed flags.
// Precedence for tunables: explicit flag, then explicitly-set environment
// default, then the per-model catalog default. Strength keeps the -1
// sentinel all the way into the request so an explicit --strength 0
// survives; the other tunables use zero, which is outside their ranges.
func requestFromFlags(f *cliFlags, cfg *core.Config, img image.Image, prompt string) imagegen.Request {
	req := imagegen.Request{
		Image:          img,
		Prompt:         prompt,
		NegativePrompt: f.negativePrompt,
		Model:          f.model,
		Strength:       -1,
		Seed:           f.seed,
		Style:          f.style,
	}
	if req.NegativePrompt == "" {
		req.NegativePrompt = cfg.NegativePrompt
	}

	if f.strength >= 0 {
		req.Strength = f.strength
	} else if os.Getenv("DEFAULT_STRENGTH") != "" {
		req.Strength = cfg.DefaultStrength
	}
	if f.guidanceScale >= 0 {
		req.GuidanceScale = f.guidanceScale
	} else if os.Getenv("DEFAULT_GUIDANCE_SCALE") != "" {
		req.GuidanceScale = cfg.DefaultGuidanceScale
	}
	if f.numSteps >= 0 {
		req.Steps = f.numSteps
	} else if os.Getenv("DEFAULT_STEPS") != "" {
		req.Steps = cfg.DefaultSteps
	}
	return req
}

// loadInput reads and decodes one input image, rejecting files larger
// than maxBytes. The returned name is the file stem used in output
// filenames.
func loadInput(path string, maxBytes int64) (image.Image, string, error) {
	if !imaging.IsSupportedFormat(path) {
		return nil, "", fmt.Errorf("unsupported image format: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat input: %w", err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, "", fmt.Errorf("input file %s is %d bytes, exceeds limit of %d", path, info.Size(), maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return img, name, nil
}

// collectInputs lists the supported image files in a directory, sorted.
func collectInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsSupportedFormat(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// openHistory opens the generation history database, running migrations.
// History is best-effort: a nil repository disables it.
func (a *application) openHistory() (*sql.DB, *db.HistoryRepository) {
	if a.cfg.DatabasePath == "" {
		return nil, nil
	}
	if err := db.MigrateUpFromPath(a.cfg.DatabasePath); err != nil {
		a.logger.Warn("history database unavailable", zap.Error(err))
		return nil, nil
	}
	conn, err := db.OpenWithDefaults(a.cfg.DatabasePath)
	if err != nil {
		a.logger.Warn("history database unavailable", zap.Error(err))
		return nil, nil
	}
	return conn, db.NewHistoryRepository(conn)
}

// saveResult persists the generated image, its sidecar, and a history row.
func (a *application) saveResult(ctx context.Context, store *resultstore.Store, history *db.HistoryRepository, sourceName, style string, resp *imagegen.Response) (*resultstore.Result, error) {
	result, err := store.Save(sourceName, style, resp)
	if err != nil {
		return nil, err
	}
	if history != nil {
		rec := db.GenerationRecord{
			Filename:       result.Metadata.Filename,
			SourceName:     sourceName,
			Model:          resp.Model,
			Style:          style,
			Prompt:         resp.Prompt,
			NegativePrompt: resp.NegativePrompt,
			Strength:       resp.Strength,
			GuidanceScale:  resp.GuidanceScale,
			Steps:          resp.Steps,
			Seed:           resp.Seed,
			Device:         resp.Device,
			OutputWidth:    resp.OutputWidth,
			OutputHeight:   resp.OutputHeight,
			GenerationTime: resp.GenerationTime,
		}
		if _, err := history.Insert(ctx, rec); err != nil {
			a.logger.Warn("history insert failed", zap.Error(err))
		}
	}
	return result, nil
}

func printResult(result *resultstore.Result, resp *imagegen.Response) {
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)
	green.Printf("✓ %s\n", result.ImagePath)
	dim.Printf("  model=%s seed=%d %dx%d %.1fs on %s\n",
		resp.Model, resp.Seed, resp.OutputWidth, resp.OutputHeight,
		resp.GenerationTime, resp.Device)
}

// runSingle transforms one input image.
func (a *application) runSingle(ctx context.Context) int {
	if a.flags.prompt == "" {
		fmt.Fprintln(os.Stderr, "Error: --prompt is required with --input")
		return core.ExitCodeError
	}
	if !a.preflight() {
		return core.ExitCodeError
	}

	img, name, err := loadInput(a.flags.input, a.cfg.MaxUploadBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}

	provider, backend := a.chooseProvider(ctx)
	generator, err := a.newGenerator(provider)
	if err != nil {
		a.logger.Error("generator setup failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	store, err := resultstore.NewStore(a.cfg.ResultsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	conn, history := a.openHistory()
	if conn != nil {
		defer conn.Close()
	}

	a.logger.Info("generating",
		zap.String("input", a.flags.input),
		zap.String("model", a.flags.model),
		zap.String("backend", backend),
	)
	fmt.Printf("Transforming %s with %s...\n", a.flags.input, a.flags.model)

	resp, err := generator.Generate(ctx, requestFromFlags(a.flags, a.cfg, img, a.flags.prompt))
	if err != nil {
		a.logger.Error("generation failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}

	result, err := a.saveResult(ctx, store, history, name, a.flags.style, resp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	printResult(result, resp)
	return core.ExitCodeSuccess
}

// runBatch transforms every supported image in --input-dir, continuing
// past individual failures.
func (a *application) runBatch(ctx context.Context) int {
	if a.flags.prompt == "" {
		fmt.Fprintln(os.Stderr, "Error: --prompt is required with --input-dir")
		return core.ExitCodeError
	}
	if !a.preflight() {
		return core.ExitCodeError
	}

	paths, err := collectInputs(a.flags.inputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no supported images in %s\n", a.flags.inputDir)
		return core.ExitCodeError
	}

	provider, backend := a.chooseProvider(ctx)
	generator, err := a.newGenerator(provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	store, err := resultstore.NewStore(a.cfg.ResultsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	conn, history := a.openHistory()
	if conn != nil {
		defer conn.Close()
	}

	fmt.Printf("Transforming %d images with %s (%s backend)...\n", len(paths), a.flags.model, backend)
	start := time.Now()
	var succeeded, failed int

	for i, path := range paths {
		img, name, err := loadInput(path, a.cfg.MaxUploadBytes)
		if err != nil {
			failed++
			color.New(color.FgRed).Printf("✗ [%d/%d] %s: %v\n", i+1, len(paths), path, err)
			continue
		}

		fmt.Printf("  [%d/%d] %s...\n", i+1, len(paths), filepath.Base(path))
		resp, err := generator.Generate(ctx, requestFromFlags(a.flags, a.cfg, img, a.flags.prompt))
		if err != nil {
			failed++
			a.logger.Error("generation failed", zap.String("input", path), zap.Error(err))
			color.New(color.FgRed).Printf("✗ [%d/%d] %s: %v\n", i+1, len(paths), path, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result, err := a.saveResult(ctx, store, history, name, a.flags.style, resp)
		if err != nil {
			failed++
			color.New(color.FgRed).Printf("✗ [%d/%d] %s: %v\n", i+1, len(paths), path, err)
			continue
		}
		succeeded++
		printResult(result, resp)
	}

	fmt.Println()
	fmt.Printf("Batch complete: %d succeeded, %d failed in %v\n",
		succeeded, failed, time.Since(start).Round(time.Second))
	if failed > 0 && succeeded == 0 {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// runDemo generates the synthetic sample images and runs the curated
// prompt/model pairs across them.
func (a *application) runDemo(ctx context.Context) int {
	if !a.preflight() {
		return core.ExitCodeError
	}

	written, err := imaging.WriteSamples(a.cfg.SamplesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	fmt.Printf("Wrote %d sample images to %s\n", len(written), a.cfg.SamplesDir)

	provider, backend := a.chooseProvider(ctx)
	generator, err := a.newGenerator(provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	store, err := resultstore.NewStore(a.cfg.ResultsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	conn, history := a.openHistory()
	if conn != nil {
		defer conn.Close()
	}

	fmt.Printf("Running %d demo transformations (%s backend)...\n\n", len(imagegen.DemoExamples), backend)
	var failed int

	for i, ex := range imagegen.DemoExamples {
		img, err := imaging.GenerateSample(ex.Sample)
		if err != nil {
			failed++
			color.New(color.FgRed).Printf("✗ [%d/%d] %s: %v\n", i+1, len(imagegen.DemoExamples), ex.Sample, err)
			continue
		}

		fmt.Printf("  [%d/%d] %s + %q (%s)...\n", i+1, len(imagegen.DemoExamples), ex.Sample, ex.Prompt, ex.Model)
		resp, err := generator.Generate(ctx, imagegen.Request{
			Image:    img,
			Prompt:   ex.Prompt,
			Model:    ex.Model,
			Strength: -1,
			Seed:     -1,
			Style:    ex.Style,
		})
		if err != nil {
			failed++
			a.logger.Error("demo generation failed", zap.String("sample", ex.Sample), zap.Error(err))
			color.New(color.FgRed).Printf("✗ %v\n", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result, err := a.saveResult(ctx, store, history, ex.Sample, ex.Style, resp)
		if err != nil {
			failed++
			color.New(color.FgRed).Printf("✗ %v\n", err)
			continue
		}
		printResult(result, resp)
		a.writeComparison(img, resp.Image, result.ImagePath)
	}

	if failed == len(imagegen.DemoExamples) {
		return core.ExitCodeError
	}
	fmt.Printf("\nDemo complete. Results in %s\n", a.cfg.ResultsDir)
	return core.ExitCodeSuccess
}

// writeComparison saves a before/after grid next to a demo result.
// Best-effort: a failure only logs.
func (a *application) writeComparison(before, after image.Image, imagePath string) {
	grid := imaging.ComparisonGrid(before, after)
	data, err := imaging.EncodePNG(grid)
	if err != nil {
		a.logger.Warn("comparison grid encode failed", zap.Error(err))
		return
	}
	path := strings.TrimSuffix(imagePath, ".png") + "_comparison.png"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger.Warn("comparison grid write failed", zap.String("path", path), zap.Error(err))
	}
}

// runListModels prints the model catalog.
func (a *application) runListModels() int {
	catalog, err := imagegen.LoadCatalog(core.EnvOrDefault("MODEL_CATALOG", "./models.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}

	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	fmt.Println("Available models:")
	fmt.Println()
	for _, m := range catalog.List() {
		bold.Printf("  %s\n", m.Name)
		fmt.Printf("    %s\n", m.Description)
		dim.Printf("    checkpoint=%s max_resolution=%d\n", m.Checkpoint, m.MaxResolution)
		dim.Printf("    defaults: strength=%.2f guidance=%.1f steps=%d\n",
			m.DefaultStrength, m.DefaultGuidanceScale, m.DefaultSteps)
		if m.InstructionBased {
			dim.Println("    takes edit instructions rather than scene descriptions")
		}
		fmt.Println()
	}
	return core.ExitCodeSuccess
}

// runDownloadModels downloads any missing checkpoints into the models dir.
func (a *application) runDownloadModels(ctx context.Context) int {
	if !a.preflight() {
		return core.ExitCodeError
	}

	dim := color.New(color.FgHiBlack)
	// No client timeout: checkpoints are multi-GB downloads.
	manager := core.NewWeightsManager(a.cfg.ModelsDir, core.GetHTTPClient(a.cfg, 0),
		core.WithProgressCallback(func(p core.ProgressInfo) {
			if p.Percent >= 0 {
				fmt.Printf("\r    %.1f%% at %s, ETA %v    ", p.Percent, p.SpeedFormatted, p.ETA.Round(time.Second))
			} else {
				fmt.Printf("\r    %s downloaded at %s    ", core.FormatBytes(p.Downloaded), p.SpeedFormatted)
			}
		}),
	)

	names := manager.RegisteredNames()
	fmt.Printf("Checking %d checkpoints in %s\n", len(names), a.cfg.ModelsDir)
	for _, name := range names {
		fmt.Printf("  %s...\n", name)
		if err := manager.EnsureWeightsAvailable(ctx, name); err != nil {
			fmt.Println()
			a.logger.Error("checkpoint download failed", zap.String("model", name), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return core.ExitCodeError
		}
		fmt.Println()
		path, _ := manager.WeightsPath(name)
		dim.Printf("    ready at %s\n", path)
	}
	fmt.Println("All checkpoints available.")
	return core.ExitCodeSuccess
}

// runCleanup deletes results (and history rows) older than --cleanup-age.
func (a *application) runCleanup(ctx context.Context) int {
	maxAge, err := time.ParseDuration(a.flags.cleanupAge)
	if err != nil || maxAge <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid --cleanup-age %q\n", a.flags.cleanupAge)
		return core.ExitCodeError
	}

	store, err := resultstore.NewStore(a.cfg.ResultsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	removed, err := store.Cleanup(maxAge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	fmt.Printf("Removed %d results older than %v from %s\n", removed, maxAge, a.cfg.ResultsDir)

	conn, history := a.openHistory()
	if history != nil {
		defer conn.Close()
		rows, err := history.DeleteOlderThan(ctx, time.Now().Add(-maxAge))
		if err != nil {
			a.logger.Warn("history cleanup failed", zap.Error(err))
		} else {
			fmt.Printf("Removed %d history rows\n", rows)
		}
	}
	return core.ExitCodeSuccess
}
