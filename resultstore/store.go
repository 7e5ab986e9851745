// Package resultstore persists transformation outputs and their
// metadata sidecars under a results directory.
//
// Each saved result is a pair of files sharing a base name:
//
//	<name>_<model>_<style>_<timestamp>.png
//	<name>_<model>_<style>_<timestamp>.json
//
// The PNG is always written before the sidecar so a crash can never
// leave metadata pointing at a missing image.
package resultstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
)

// timestampLayout is the filename timestamp format.
// Chosen to sort lexicographically in directory listings.
const timestampLayout = "20060102-150405"

// Metadata is the sidecar written next to every output image.
type Metadata struct {
	Filename       string    `json:"filename"`
	SourceName     string    `json:"source_name"`
	Model          string    `json:"model"`
	Style          string    `json:"style,omitempty"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	Strength       float64   `json:"strength"`
	GuidanceScale  float64   `json:"guidance_scale"`
	Steps          int       `json:"num_inference_steps"`
	Seed           int64     `json:"seed"`
	Device         string    `json:"device,omitempty"`
	InputWidth     int       `json:"input_width"`
	InputHeight    int       `json:"input_height"`
	OutputWidth    int       `json:"output_width"`
	OutputHeight   int       `json:"output_height"`
	GenerationTime float64   `json:"generation_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// Result describes one stored output.
type Result struct {
	// ImagePath and MetadataPath are absolute or store-relative paths
	// to the pair of files.
	ImagePath    string `json:"image_path"`
	MetadataPath string `json:"metadata_path"`

	// Metadata is the parsed sidecar content.
	Metadata Metadata `json:"metadata"`
}

// Store writes and lists results in a single directory.
type Store struct {
	dir string
	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("resultstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("resultstore: create %s: %w", dir, err)
	}
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// filenameUnsafe matches characters stripped from name components.
var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeComponent makes a string safe for use in a filename.
// Path separators, spaces and shell-hostile characters collapse to "-".
func sanitizeComponent(s string) string {
	s = strings.TrimSpace(s)
	s = filenameUnsafe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-._")
	if s == "" {
		return "output"
	}
	return s
}

// Save writes the response image and its metadata sidecar.
//
// sourceName is the input image's base name without extension; style may
// be empty, in which case "default" is recorded. Returns the stored
// result with resolved paths.
func (s *Store) Save(sourceName, style string, resp *imagegen.Response) (*Result, error) {
	if resp == nil || resp.Image == nil {
		return nil, fmt.Errorf("resultstore: response has no image")
	}

	if style == "" {
		style = "default"
	}
	now := s.now()
	base := fmt.Sprintf("%s_%s_%s_%s",
		sanitizeComponent(sourceName),
		sanitizeComponent(resp.Model),
		sanitizeComponent(style),
		now.Format(timestampLayout),
	)

	imagePath := filepath.Join(s.dir, base+".png")
	metaPath := filepath.Join(s.dir, base+".json")

	if err := imaging.SavePNG(resp.Image, imagePath); err != nil {
		return nil, fmt.Errorf("resultstore: write image: %w", err)
	}

	meta := Metadata{
		Filename:       base + ".png",
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
		InputWidth:     resp.InputWidth,
		InputHeight:    resp.InputHeight,
		OutputWidth:    resp.OutputWidth,
		OutputHeight:   resp.OutputHeight,
		GenerationTime: resp.GenerationTime,
		CreatedAt:      now.UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("resultstore: marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		// Leave the image in place; an orphan PNG is recoverable,
		// an orphan sidecar is not.
		return nil, fmt.Errorf("resultstore: write metadata: %w", err)
	}

	return &Result{ImagePath: imagePath, MetadataPath: metaPath, Metadata: meta}, nil
}

// List returns all stored results, newest first.
// Images without a readable sidecar are skipped.
func (s *Store) List() ([]Result, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("resultstore: read %s: %w", s.dir, err)
	}

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		metaPath := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		imagePath := strings.TrimSuffix(metaPath, ".json") + ".png"
		if _, err := os.Stat(imagePath); err != nil {
			continue
		}
		results = append(results, Result{
			ImagePath:    imagePath,
			MetadataPath: metaPath,
			Metadata:     meta,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Metadata.CreatedAt.After(results[j].Metadata.CreatedAt)
	})
	return results, nil
}

// Open returns the on-disk path for a stored image by filename.
// The filename must be a bare name; anything resolving outside the
// store directory is rejected.
func (s *Store) Open(filename string) (string, error) {
	if filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("resultstore: invalid filename %q", filename)
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resultstore: %s: %w", filename, err)
	}
	return path, nil
}

// Cleanup removes result pairs older than maxAge.
// Returns the number of pairs removed.
func (s *Store) Cleanup(maxAge time.Duration) (int, error) {
	results, err := s.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, r := range results {
		if r.Metadata.CreatedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(r.ImagePath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("resultstore: remove %s: %w", r.ImagePath, err)
		}
		if err := os.Remove(r.MetadataPath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("resultstore: remove %s: %w", r.MetadataPath, err)
		}
		removed++
	}
	return removed, nil
}
