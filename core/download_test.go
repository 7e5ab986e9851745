package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDownloadWithProgress_Basic(t *testing.T) {
	content := []byte(strings.Repeat("checkpoint bytes ", 1000))
	sum := sha256.Sum256(content)
	checksumHex := hex.EncodeToString(sum[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "weights.safetensors")

	var progressCalls int32
	result, err := DownloadWithProgress(context.Background(), DownloadOptions{
		URL:            server.URL,
		DestPath:       destPath,
		ExpectedSHA256: checksumHex,
		OnProgress: func(info ProgressInfo) {
			atomic.AddInt32(&progressCalls, 1)
		},
	})
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	if result.BytesDownloaded != int64(len(content)) {
		t.Errorf("BytesDownloaded = %d, want %d", result.BytesDownloaded, len(content))
	}
	if !result.ChecksumValid {
		t.Error("ChecksumValid = false, want true")
	}
	if result.Resumed {
		t.Error("Resumed = true for a fresh download")
	}

	written, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(written) != string(content) {
		t.Error("downloaded content does not match served content")
	}
}

func TestDownloadWithProgress_Resume(t *testing.T) {
	content := []byte(strings.Repeat("0123456789", 100))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.WriteHeader(http.StatusOK)
			w.Write(content)
			return
		}

		var start int64
		if _, err := parseRangeStart(rangeHeader, &start); err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Range",
			"bytes "+strconv.FormatInt(start, 10)+"-"+strconv.Itoa(len(content)-1)+"/"+strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[start:])
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "partial.bin")

	// Seed a partial file covering the first 300 bytes
	if err := os.WriteFile(destPath, content[:300], 0644); err != nil {
		t.Fatalf("failed to seed partial file: %v", err)
	}

	result, err := DownloadWithProgress(context.Background(), DownloadOptions{
		URL:      server.URL,
		DestPath: destPath,
		Resume:   true,
	})
	if err != nil {
		t.Fatalf("resumed download failed: %v", err)
	}

	if !result.Resumed {
		t.Error("Resumed = false, want true")
	}
	if result.BytesDownloaded != int64(len(content)-300) {
		t.Errorf("BytesDownloaded = %d, want %d", result.BytesDownloaded, len(content)-300)
	}

	written, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(written) != string(content) {
		t.Error("resumed file content does not match served content")
	}
}

// parseRangeStart extracts the start offset from a "bytes=N-" Range header.
func parseRangeStart(header string, start *int64) (int, error) {
	trimmed := strings.TrimPrefix(header, "bytes=")
	trimmed = strings.TrimSuffix(trimmed, "-")
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, err
	}
	*start = n
	return 1, nil
}

func TestDownloadWithProgress_ChecksumMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not the expected content"))
	}))
	defer server.Close()

	_, err := DownloadWithProgress(context.Background(), DownloadOptions{
		URL:            server.URL,
		DestPath:       filepath.Join(t.TempDir(), "bad.bin"),
		ExpectedSHA256: strings.Repeat("a", 64),
	})
	if err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error = %v, want checksum mismatch", err)
	}
}

func TestDownloadWithProgress_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := DownloadWithProgress(context.Background(), DownloadOptions{
		URL:      server.URL,
		DestPath: filepath.Join(t.TempDir(), "err.bin"),
	})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}

func TestDownloadWithProgress_MissingOptions(t *testing.T) {
	tests := []struct {
		name string
		opts DownloadOptions
	}{
		{"no URL", DownloadOptions{DestPath: "/tmp/x"}},
		{"no dest", DownloadOptions{URL: "http://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DownloadWithProgress(context.Background(), tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDownloadWithProgress_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DownloadWithProgress(ctx, DownloadOptions{
		URL:      server.URL,
		DestPath: filepath.Join(t.TempDir(), "cancelled.bin"),
	})
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
