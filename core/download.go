package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DownloadOptions configures a weights download.
type DownloadOptions struct {
	// URL to download from
	URL string
	// DestPath is the local file path to save to
	DestPath string
	// ExpectedSHA256 is the optional expected checksum (hex, 64 chars).
	// If provided, the downloaded file is verified against it.
	ExpectedSHA256 string
	// HTTPClient is the HTTP client to use (a default is created if nil)
	HTTPClient *http.Client
	// OnProgress is called periodically with progress updates (optional)
	OnProgress func(ProgressInfo)
	// Resume continues from a partial file if one exists
	Resume bool
}

// DownloadResult contains information about a completed download.
type DownloadResult struct {
	// BytesDownloaded is the number of bytes fetched in this session
	BytesDownloaded int64
	// TotalBytes is the total file size reported by the server
	TotalBytes int64
	// Resumed indicates the download continued from a partial file
	Resumed bool
	// ChecksumValid is true if a checksum was provided and verified
	ChecksumValid bool
	// Path is the final file path
	Path string
}

// DownloadWithProgress downloads a file with progress tracking and optional
// resume support. This molecule composes:
//   - Range headers (resume support)
//   - ProgressTracker (speed and ETA)
//   - SHA256 verification (optional)
//
// A 416 response means the local partial file already covers the requested
// range: if the checksum verifies the file is treated as complete, otherwise
// the partial is discarded and the download restarts from scratch.
func DownloadWithProgress(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.DestPath == "" {
		return nil, fmt.Errorf("DestPath is required")
	}

	client := opts.HTTPClient
	if client == nil {
		// No client timeout for large downloads; cancellation comes from ctx.
		client = &http.Client{Timeout: 0}
	}

	if err := os.MkdirAll(filepath.Dir(opts.DestPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	var resumeFrom int64
	if opts.Resume {
		if info, err := os.Stat(opts.DestPath); err == nil {
			resumeFrom = info.Size()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if resumeFrom > 0 {
		req.Header.Set("Range", BuildRangeHeader(resumeFrom))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	var totalSize int64
	var resumed bool

	switch resp.StatusCode {
	case http.StatusOK:
		// Server sent the full file, start fresh
		totalSize = resp.ContentLength
		resumeFrom = 0

	case http.StatusPartialContent:
		resumed = true
		if contentRange := resp.Header.Get("Content-Range"); contentRange != "" {
			if _, _, total, parseErr := ParseContentRange(contentRange); parseErr == nil && total > 0 {
				totalSize = total
			}
		}
		if totalSize == 0 && resp.ContentLength > 0 {
			totalSize = resumeFrom + resp.ContentLength
		}

	case http.StatusRequestedRangeNotSatisfiable:
		if opts.ExpectedSHA256 != "" {
			valid, verifyErr := VerifyChecksum(opts.DestPath, opts.ExpectedSHA256)
			if verifyErr != nil {
				return nil, fmt.Errorf("range not satisfiable and checksum verification failed: %w", verifyErr)
			}
			if valid {
				info, _ := os.Stat(opts.DestPath)
				return &DownloadResult{
					TotalBytes:    info.Size(),
					Resumed:       true,
					ChecksumValid: true,
					Path:          opts.DestPath,
				}, nil
			}
		}
		// Partial file is unusable; restart without resume
		_ = os.Remove(opts.DestPath)
		opts.Resume = false
		return DownloadWithProgress(ctx, opts)

	default:
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, resp.Status)
	}

	var file *os.File
	if resumed {
		file, err = os.OpenFile(opts.DestPath, os.O_APPEND|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(opts.DestPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open destination file: %w", err)
	}
	defer file.Close()

	tracker := NewProgressTracker(totalSize)
	if resumed {
		tracker.SetDownloaded(resumeFrom)
	}

	reader := &progressReader{
		reader:     resp.Body,
		tracker:    tracker,
		onProgress: opts.OnProgress,
	}

	bytesWritten, err := io.Copy(file, reader)
	if err != nil {
		return nil, fmt.Errorf("download interrupted: %w", err)
	}

	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync file: %w", err)
	}

	result := &DownloadResult{
		BytesDownloaded: bytesWritten,
		TotalBytes:      totalSize,
		Resumed:         resumed,
		Path:            opts.DestPath,
	}

	if opts.ExpectedSHA256 != "" {
		file.Close()

		valid, verifyErr := VerifyChecksum(opts.DestPath, opts.ExpectedSHA256)
		if verifyErr != nil {
			return nil, fmt.Errorf("checksum verification failed: %w", verifyErr)
		}
		if !valid {
			return nil, fmt.Errorf("checksum mismatch: file may be corrupted")
		}
		result.ChecksumValid = true
	}

	return result, nil
}

// progressReader wraps an io.Reader to feed the progress tracker.
// Callbacks are rate-limited to roughly one per 100KB so a fast download
// doesn't spend its time printing.
type progressReader struct {
	reader       io.Reader
	tracker      *ProgressTracker
	onProgress   func(ProgressInfo)
	lastCallback int64
}

func (r *progressReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.tracker.Update(int64(n))

		if r.onProgress != nil {
			downloaded := r.tracker.Downloaded()
			if downloaded-r.lastCallback >= 102400 || err == io.EOF {
				r.onProgress(r.tracker.Progress())
				r.lastCallback = downloaded
			}
		}
	}
	return n, err
}

// DownloadWithResume downloads a file with resume support and optional
// checksum verification. Convenience wrapper around DownloadWithProgress.
func DownloadWithResume(ctx context.Context, url, destPath, expectedSHA256 string, onProgress func(ProgressInfo)) (*DownloadResult, error) {
	return DownloadWithProgress(ctx, DownloadOptions{
		URL:            url,
		DestPath:       destPath,
		ExpectedSHA256: expectedSHA256,
		OnProgress:     onProgress,
		Resume:         true,
	})
}
