package core

import (
	"sync"
	"time"
)

// ProgressInfo is a snapshot of download progress, ready for display.
type ProgressInfo struct {
	// Total bytes to download (0 if unknown)
	Total int64
	// Downloaded bytes so far
	Downloaded int64
	// Percentage complete (0-100, or -1 if total is unknown)
	Percent float64
	// Download speed in bytes per second
	SpeedBytesPerSec float64
	// Speed formatted as human-readable string (e.g., "5.2 MB/s")
	SpeedFormatted string
	// Estimated time remaining (0 if unknown or complete)
	ETA time.Duration
	// Elapsed time since the download started
	Elapsed time.Duration
	// Human-readable downloaded size
	DownloadedFormatted string
	// Human-readable total size (or "unknown" if 0)
	TotalFormatted string
}

// ProgressTracker tracks download progress with thread-safe updates.
// Speed is smoothed with an exponential moving average so the console
// display doesn't jitter.
type ProgressTracker struct {
	mu sync.RWMutex

	total          int64
	downloaded     int64
	startTime      time.Time
	lastUpdateTime time.Time
	lastDownloaded int64
	speedAvg       float64
	// EMA weight, 0-1; higher favors recent samples
	speedAlpha float64
}

// NewProgressTracker creates a new tracker.
// total is the total bytes to download (use 0 if unknown).
func NewProgressTracker(total int64) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		total:          total,
		startTime:      now,
		lastUpdateTime: now,
		speedAlpha:     0.3, // balance responsiveness against smoothness
	}
}

// Update adds n bytes to the downloaded count. Thread-safe.
func (p *ProgressTracker) Update(n int64) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded += n
	p.updateSpeed()
}

// SetDownloaded sets the absolute downloaded byte count, used when resuming
// a partial download. Thread-safe.
func (p *ProgressTracker) SetDownloaded(downloaded int64) {
	if downloaded < 0 {
		downloaded = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded = downloaded
	p.updateSpeed()
}

// SetTotal updates the total bytes to download. Thread-safe.
func (p *ProgressTracker) SetTotal(total int64) {
	if total < 0 {
		total = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
}

// updateSpeed recalculates the smoothed download speed.
// Must be called with mu held.
func (p *ProgressTracker) updateSpeed() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdateTime).Seconds()
	if elapsed < 0.1 {
		return
	}

	instantSpeed := float64(p.downloaded-p.lastDownloaded) / elapsed
	if p.speedAvg == 0 {
		p.speedAvg = instantSpeed
	} else {
		p.speedAvg = p.speedAlpha*instantSpeed + (1-p.speedAlpha)*p.speedAvg
	}

	p.lastUpdateTime = now
	p.lastDownloaded = p.downloaded
}

// Progress returns the current progress snapshot. Thread-safe.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := ProgressInfo{
		Total:               p.total,
		Downloaded:          p.downloaded,
		Percent:             -1,
		SpeedBytesPerSec:    p.speedAvg,
		SpeedFormatted:      FormatBytes(int64(p.speedAvg)) + "/s",
		Elapsed:             time.Since(p.startTime),
		DownloadedFormatted: FormatBytes(p.downloaded),
		TotalFormatted:      "unknown",
	}

	if p.total > 0 {
		info.Percent = float64(p.downloaded) / float64(p.total) * 100
		if info.Percent > 100 {
			info.Percent = 100
		}
		info.TotalFormatted = FormatBytes(p.total)

		if p.speedAvg > 0 && p.downloaded < p.total {
			remaining := float64(p.total - p.downloaded)
			info.ETA = time.Duration(remaining / p.speedAvg * float64(time.Second))
		}
	}

	return info
}

// Downloaded returns the current downloaded byte count. Thread-safe.
func (p *ProgressTracker) Downloaded() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.downloaded
}

// Total returns the total bytes to download. Thread-safe.
func (p *ProgressTracker) Total() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// IsComplete returns true if the download is complete.
// Returns false while the total is unknown (0). Thread-safe.
func (p *ProgressTracker) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total > 0 && p.downloaded >= p.total
}
