package core

import "testing"

func TestBuildRangeHeader(t *testing.T) {
	tests := []struct {
		name       string
		resumeFrom int64
		expected   string
	}{
		{"from start", 0, "bytes=0-"},
		{"from 1KB", 1024, "bytes=1024-"},
		{"from 1MB", 1048576, "bytes=1048576-"},
		{"negative treated as zero", -100, "bytes=0-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildRangeHeader(tt.resumeFrom); got != tt.expected {
				t.Errorf("BuildRangeHeader(%d) = %q, want %q", tt.resumeFrom, got, tt.expected)
			}
		})
	}
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantTotal int64
		wantErr   bool
	}{
		{"full range", "bytes 0-999/5000", 0, 999, 5000, false},
		{"mid range", "bytes 1000-1999/5000", 1000, 1999, 5000, false},
		{"unknown total", "bytes 1000-1999/*", 1000, 1999, -1, false},
		{"empty header", "", 0, 0, 0, true},
		{"malformed", "chunks 0-999/5000", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, total, err := ParseContentRange(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseContentRange(%q) expected error, got nil", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseContentRange(%q) unexpected error: %v", tt.header, err)
			}
			if start != tt.wantStart || end != tt.wantEnd || total != tt.wantTotal {
				t.Errorf("ParseContentRange(%q) = (%d, %d, %d), want (%d, %d, %d)",
					tt.header, start, end, total, tt.wantStart, tt.wantEnd, tt.wantTotal)
			}
		})
	}
}

func TestIsPartialContentSupported(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected bool
	}{
		{"bytes supported", "bytes", true},
		{"none", "none", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPartialContentSupported(tt.header); got != tt.expected {
				t.Errorf("IsPartialContentSupported(%q) = %v, want %v", tt.header, got, tt.expected)
			}
		})
	}
}
