package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// WeightsConfig describes a downloadable set of model weights.
// This is a data structure that defines weight properties without behavior.
type WeightsConfig struct {
	// Name is the pipeline this file belongs to (e.g., "stable-diffusion")
	Name string
	// URL is the download URL for the weights file
	URL string
	// Filename is the local filename for the weights
	Filename string
	// ExpectedSHA256 is the expected checksum for verification
	ExpectedSHA256 string
	// SizeBytes is the expected file size (for disk space checks)
	SizeBytes int64
}

// StableDiffusionWeights is the checkpoint for the stable-diffusion pipeline.
var StableDiffusionWeights = WeightsConfig{
	Name:      "stable-diffusion",
	URL:       "https://huggingface.co/runwayml/stable-diffusion-v1-5/resolve/main/v1-5-pruned-emaonly.safetensors",
	Filename:  "v1-5-pruned-emaonly.safetensors",
	SizeBytes: 4300 * BytesPerMB,
}

// StableDiffusionXLWeights is the checkpoint for the stable-diffusion-xl pipeline.
var StableDiffusionXLWeights = WeightsConfig{
	Name:      "stable-diffusion-xl",
	URL:       "https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors",
	Filename:  "sd_xl_base_1.0.safetensors",
	SizeBytes: 6900 * BytesPerMB,
}

// InstructPix2PixWeights is the checkpoint for the instruct-pix2pix pipeline.
var InstructPix2PixWeights = WeightsConfig{
	Name:      "instruct-pix2pix",
	URL:       "https://huggingface.co/timbrooks/instruct-pix2pix/resolve/main/instruct-pix2pix-00-22000.safetensors",
	Filename:  "instruct-pix2pix-00-22000.safetensors",
	SizeBytes: 2300 * BytesPerMB,
}

// WeightsManager manages model weight availability and downloading.
// This is an organism that composes the download molecule with disk space
// atoms to provide weight lifecycle management for the backend.
type WeightsManager struct {
	// weightsDir is the directory where weights are stored
	weightsDir string
	// httpClient is the HTTP client for downloads
	httpClient *http.Client
	// weights holds configurations for all managed checkpoints
	weights map[string]WeightsConfig
	// maxRetries is the number of download retry attempts
	maxRetries int
	// baseRetryDelay is the initial delay between retries (doubles each attempt)
	baseRetryDelay time.Duration
	// diskSpaceBuffer is the percentage buffer for disk space checks
	diskSpaceBuffer int
	// onProgress receives download progress updates (optional)
	onProgress func(ProgressInfo)
}

// WeightsManagerOption is a functional option for configuring WeightsManager.
type WeightsManagerOption func(*WeightsManager)

// WithMaxRetries sets the maximum number of download retry attempts.
func WithMaxRetries(n int) WeightsManagerOption {
	return func(wm *WeightsManager) {
		if n > 0 {
			wm.maxRetries = n
		}
	}
}

// WithBaseRetryDelay sets the base delay between retry attempts.
func WithBaseRetryDelay(d time.Duration) WeightsManagerOption {
	return func(wm *WeightsManager) {
		if d > 0 {
			wm.baseRetryDelay = d
		}
	}
}

// WithDiskSpaceBuffer sets the disk space buffer percentage.
func WithDiskSpaceBuffer(percent int) WeightsManagerOption {
	return func(wm *WeightsManager) {
		if percent >= 0 {
			wm.diskSpaceBuffer = percent
		}
	}
}

// WithWeights registers a weights configuration.
func WithWeights(w WeightsConfig) WeightsManagerOption {
	return func(wm *WeightsManager) {
		wm.weights[w.Name] = w
	}
}

// WithProgressCallback sets a callback for download progress updates.
func WithProgressCallback(fn func(ProgressInfo)) WeightsManagerOption {
	return func(wm *WeightsManager) {
		wm.onProgress = fn
	}
}

// NewWeightsManager creates a new WeightsManager.
// The weightsDir parameter specifies where weights are stored.
// The httpClient parameter is used for downloads (if nil, a default is created).
//
// Default behavior:
//   - 3 retry attempts with exponential backoff (2s, 4s, 8s)
//   - 10% disk space buffer
//   - All three pipeline checkpoints registered
func NewWeightsManager(weightsDir string, httpClient *http.Client, opts ...WeightsManagerOption) *WeightsManager {
	if httpClient == nil {
		// No client timeout for multi-GB downloads; context handles cancellation
		httpClient = &http.Client{Timeout: 0}
	}

	wm := &WeightsManager{
		weightsDir:      weightsDir,
		httpClient:      httpClient,
		weights:         make(map[string]WeightsConfig),
		maxRetries:      3,
		baseRetryDelay:  2 * time.Second,
		diskSpaceBuffer: DefaultBufferPercent,
	}

	wm.weights[StableDiffusionWeights.Name] = StableDiffusionWeights
	wm.weights[StableDiffusionXLWeights.Name] = StableDiffusionXLWeights
	wm.weights[InstructPix2PixWeights.Name] = InstructPix2PixWeights

	for _, opt := range opts {
		opt(wm)
	}

	return wm
}

// EnsureWeightsAvailable checks if a checkpoint exists and downloads it if
// missing. This is the main entry point for --download-models.
//
// The function:
//  1. Checks if the weights file already exists (returns nil if found)
//  2. Verifies sufficient disk space
//  3. Downloads with retries (exponential backoff)
//  4. Verifies checksum after download (if one is registered)
func (wm *WeightsManager) EnsureWeightsAvailable(ctx context.Context, name string) error {
	cfg, ok := wm.weights[name]
	if !ok {
		return fmt.Errorf("unknown model: %q (available: %v)", name, wm.RegisteredNames())
	}

	destPath := filepath.Join(wm.weightsDir, cfg.Filename)

	exists, err := wm.checkWeightsExist(destPath, cfg.ExpectedSHA256)
	if err != nil {
		return fmt.Errorf("check weights exist: %w", err)
	}
	if exists {
		return nil
	}

	return wm.downloadWeights(ctx, cfg, destPath)
}

// checkWeightsExist verifies a weights file exists and optionally validates
// its checksum. An empty or missing file counts as absent; a checksum
// mismatch is an error so the caller surfaces corruption instead of silently
// re-downloading multi-GB files.
func (wm *WeightsManager) checkWeightsExist(path string, expectedChecksum string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat weights file: %w", err)
	}

	if info.IsDir() {
		return false, fmt.Errorf("weights path is a directory: %s", path)
	}
	if info.Size() == 0 {
		return false, nil
	}

	if expectedChecksum == "" {
		return true, nil
	}

	valid, err := VerifyChecksum(path, expectedChecksum)
	if err != nil {
		return false, fmt.Errorf("verify checksum: %w", err)
	}
	if !valid {
		return false, fmt.Errorf("weights file corrupted: checksum mismatch for %s", path)
	}

	return true, nil
}

// downloadWeights downloads a checkpoint with retries and verification.
func (wm *WeightsManager) downloadWeights(ctx context.Context, cfg WeightsConfig, destPath string) error {
	if cfg.SizeBytes > 0 {
		if err := CheckDiskSpaceForModel(wm.weightsDir, cfg.SizeBytes, wm.diskSpaceBuffer); err != nil {
			return &WeightsDownloadError{
				ModelName: cfg.Name,
				Cause:     err,
				Message:   fmt.Sprintf("insufficient disk space: need %s with %d%% buffer", FormatBytes(cfg.SizeBytes), wm.diskSpaceBuffer),
			}
		}
	}

	if err := os.MkdirAll(wm.weightsDir, 0755); err != nil {
		return fmt.Errorf("create weights directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= wm.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Exponential backoff: 2s, 4s, 8s
		if attempt > 1 {
			delay := wm.baseRetryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		_, err := DownloadWithProgress(ctx, DownloadOptions{
			URL:            cfg.URL,
			DestPath:       destPath,
			ExpectedSHA256: cfg.ExpectedSHA256,
			HTTPClient:     wm.httpClient,
			OnProgress:     wm.onProgress,
			Resume:         true,
		})
		if err == nil {
			return nil
		}

		lastErr = err
		if !wm.isRetryableError(err) {
			break
		}
	}

	return &WeightsDownloadError{
		ModelName: cfg.Name,
		Cause:     lastErr,
		Message:   fmt.Sprintf("download failed after %d attempts", wm.maxRetries),
		URL:       cfg.URL,
		DestPath:  destPath,
		Checksum:  cfg.ExpectedSHA256,
	}
}

// isRetryableError determines if a download error is worth retrying.
// Network errors and timeouts are retryable; checksum mismatches and disk
// space problems are not.
func (wm *WeightsManager) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if strings.Contains(err.Error(), "checksum mismatch") {
		return false
	}
	var dse *DiskSpaceError
	if errors.As(err, &dse) {
		return false
	}
	return true
}

// RegisteredNames returns the sorted names of all registered checkpoints.
func (wm *WeightsManager) RegisteredNames() []string {
	names := make([]string, 0, len(wm.weights))
	for name := range wm.weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WeightsPath returns the full path to a checkpoint file.
// Does not verify the file exists.
func (wm *WeightsManager) WeightsPath(name string) (string, error) {
	cfg, ok := wm.weights[name]
	if !ok {
		return "", fmt.Errorf("unknown model: %q", name)
	}
	return filepath.Join(wm.weightsDir, cfg.Filename), nil
}

// WeightsDownloadError provides detailed information about a download failure,
// including manual download instructions since the files are large and flaky
// networks are common.
type WeightsDownloadError struct {
	// ModelName is the pipeline whose weights failed to download
	ModelName string
	// Cause is the underlying error
	Cause error
	// Message is a human-readable description
	Message string
	// URL is the download URL (for manual download instructions)
	URL string
	// DestPath is where the weights should be saved
	DestPath string
	// Checksum is the expected checksum (for verification)
	Checksum string
}

func (e *WeightsDownloadError) Error() string {
	if e.URL != "" && e.DestPath != "" {
		return fmt.Sprintf(`model weights download failed: %s

%s

Manual download instructions:
  1. Visit: %s
  2. Save to: %s
  3. Verify SHA256: %s
  4. Re-run the command`,
			e.ModelName, e.Message, e.URL, e.DestPath, e.Checksum)
	}
	return fmt.Sprintf("model weights download failed: %s: %s", e.ModelName, e.Message)
}

func (e *WeightsDownloadError) Unwrap() error {
	return e.Cause
}
