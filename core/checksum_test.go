package core

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTempFile writes content to a file in a temp dir and returns its path.
func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestComputeSHA256(t *testing.T) {
	content := []byte("test weights content")
	sum := sha256.Sum256(content)
	expected := hex.EncodeToString(sum[:])

	path := writeTempFile(t, "weights.safetensors", content)

	got, err := ComputeSHA256(path)
	if err != nil {
		t.Fatalf("ComputeSHA256 failed: %v", err)
	}
	if got != expected {
		t.Errorf("ComputeSHA256 = %q, want %q", got, expected)
	}
}

func TestComputeSHA256_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"nonexistent file", "/nonexistent/path/weights.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeSHA256(tt.path); err == nil {
				t.Errorf("ComputeSHA256(%q) expected error, got nil", tt.path)
			}
		})
	}
}

func TestComputeSHA256FromReader(t *testing.T) {
	content := "reader content"
	sum := sha256.Sum256([]byte(content))
	expected := hex.EncodeToString(sum[:])

	got, err := ComputeSHA256FromReader(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ComputeSHA256FromReader failed: %v", err)
	}
	if got != expected {
		t.Errorf("ComputeSHA256FromReader = %q, want %q", got, expected)
	}

	if _, err := ComputeSHA256FromReader(nil); err == nil {
		t.Error("ComputeSHA256FromReader(nil) expected error, got nil")
	}
}

func TestVerifyChecksum(t *testing.T) {
	content := []byte("checksum me")
	sum := sha256.Sum256(content)
	correct := hex.EncodeToString(sum[:])

	path := writeTempFile(t, "file.bin", content)

	tests := []struct {
		name     string
		expected string
		want     bool
		wantErr  bool
	}{
		{"matching checksum", correct, true, false},
		{"matching uppercase", strings.ToUpper(correct), true, false},
		{"mismatched checksum", strings.Repeat("a", 64), false, false},
		{"empty checksum", "", false, true},
		{"wrong length", "abc123", false, true},
		{"invalid hex", strings.Repeat("z", 64), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyChecksum(path, tt.expected)
			if tt.wantErr {
				if err == nil {
					t.Errorf("VerifyChecksum expected error, got valid=%v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyChecksum unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyChecksum = %v, want %v", got, tt.want)
			}
		})
	}
}
