package resultstore

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imagegen"
)

func testResponse() *imagegen.Response {
	return &imagegen.Response{
		Image:          image.NewRGBA(image.Rect(0, 0, 64, 64)),
		Model:          "stable-diffusion",
		Prompt:         "a watercolor painting",
		NegativePrompt: "blurry, low quality",
		Strength:       0.75,
		GuidanceScale:  7.5,
		Steps:          50,
		Seed:           42,
		Device:         "cuda",
		InputWidth:     64,
		InputHeight:    64,
		OutputWidth:    64,
		OutputHeight:   64,
		GenerationTime: 1.5,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStoreSave(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
	s, err := NewStore(t.TempDir(), WithClock(fixedClock(ts)))
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.Save("photo", "watercolor", testResponse())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	wantBase := "photo_stable-diffusion_watercolor_20260831-143005"
	if filepath.Base(result.ImagePath) != wantBase+".png" {
		t.Errorf("image = %s, want %s.png", filepath.Base(result.ImagePath), wantBase)
	}
	if filepath.Base(result.MetadataPath) != wantBase+".json" {
		t.Errorf("metadata = %s, want %s.json", filepath.Base(result.MetadataPath), wantBase)
	}

	data, err := os.ReadFile(result.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("sidecar is not valid JSON: %v", err)
	}
	if meta.Model != "stable-diffusion" || meta.Prompt != "a watercolor painting" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.NegativePrompt != "blurry, low quality" {
		t.Errorf("NegativePrompt = %q, want the response value recorded", meta.NegativePrompt)
	}
	if meta.GenerationTime != 1.5 || meta.Seed != 42 {
		t.Errorf("metadata params = %+v", meta)
	}

	if _, err := os.Stat(result.ImagePath); err != nil {
		t.Errorf("image file missing: %v", err)
	}
}

func TestStoreSaveSanitizesNames(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.Save("../../etc/passwd", "oil painting!", testResponse())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	name := filepath.Base(result.ImagePath)
	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, " ") {
		t.Errorf("unsafe filename %q", name)
	}
	if filepath.Dir(result.ImagePath) != s.Dir() {
		t.Errorf("image escaped store dir: %s", result.ImagePath)
	}
}

func TestStoreSaveEmptyStyle(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	result, err := s.Save("photo", "", testResponse())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(filepath.Base(result.ImagePath), "_default_") {
		t.Errorf("empty style should record as default: %s", result.ImagePath)
	}
	if result.Metadata.Style != "default" {
		t.Errorf("Style = %q, want default", result.Metadata.Style)
	}
}

func TestStoreList(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	current := base
	s, err := NewStore(t.TempDir(), WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatal(err)
	}

	for i, style := range []string{"first", "second", "third"} {
		current = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.Save("photo", style, testResponse()); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("List() returned %d results, want 3", len(results))
	}
	if results[0].Metadata.Style != "third" || results[2].Metadata.Style != "first" {
		t.Errorf("List() not newest first: %s, %s, %s",
			results[0].Metadata.Style, results[1].Metadata.Style, results[2].Metadata.Style)
	}
}

func TestStoreListSkipsOrphans(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	// Sidecar without an image.
	if err := os.WriteFile(filepath.Join(dir, "orphan.json"), []byte(`{"model":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	// Corrupt sidecar.
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("List() = %d results, want 0", len(results))
	}
}

func TestStoreOpen(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	saved, err := s.Save("photo", "x", testResponse())
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.Open(filepath.Base(saved.ImagePath))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if path != saved.ImagePath {
		t.Errorf("Open() = %s, want %s", path, saved.ImagePath)
	}

	tests := []string{
		"../outside.png",
		"a/b.png",
		"..",
		"missing.png",
	}
	for _, name := range tests {
		if _, err := s.Open(name); err == nil {
			t.Errorf("Open(%q) = nil error", name)
		}
	}
}

func TestStoreCleanup(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	current := base
	s, err := NewStore(t.TempDir(), WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Save("old", "x", testResponse()); err != nil {
		t.Fatal(err)
	}
	current = base.Add(48 * time.Hour)
	if _, err := s.Save("new", "x", testResponse()); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}

	results, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Metadata.SourceName != "new" {
		t.Errorf("surviving results = %+v", results)
	}
}
