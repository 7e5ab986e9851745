package core

import (
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero bytes", 0, "0 B"},
		{"one byte", 1, "1 B"},
		{"512 bytes", 512, "512 B"},
		{"1023 bytes", 1023, "1023 B"},

		{"exactly 1 KB", 1024, "1.00 KB"},
		{"1.5 KB", 1536, "1.50 KB"},
		{"999 KB", 999 * 1024, "999.00 KB"},

		{"exactly 1 MB", 1024 * 1024, "1.00 MB"},
		{"16 MB (upload cap)", 16 * 1024 * 1024, "16.00 MB"},

		{"exactly 1 GB", 1024 * 1024 * 1024, "1.00 GB"},
		{"4.2 GB (typical checkpoint)", int64(4509715660), "4.20 GB"},

		{"exactly 1 TB", 1024 * 1024 * 1024 * 1024, "1.00 TB"},

		{"negative value", -100, "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatBytes(tt.bytes)
			if result != tt.expected {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, result, tt.expected)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantErr  bool
	}{
		{"plain bytes", "100B", 100, false},
		{"bare number", "42", 42, false},
		{"kilobytes", "1KB", 1024, false},
		{"short unit", "2K", 2048, false},
		{"fractional megabytes", "1.5 MB", 1572864, false},
		{"gigabytes", "2GB", 2 * 1024 * 1024 * 1024, false},
		{"lowercase unit", "10mb", 10 * 1024 * 1024, false},
		{"terabytes", "1TB", 1024 * 1024 * 1024 * 1024, false},
		{"surrounding whitespace", "  5 KB  ", 5 * 1024, false},

		{"empty string", "", 0, true},
		{"no number", "MB", 0, true},
		{"negative value", "-5MB", 0, true},
		{"unknown unit", "5XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseBytes(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBytes(%q) expected error, got %d", tt.input, result)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBytes(%q) unexpected error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}
