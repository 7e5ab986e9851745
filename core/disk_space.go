package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskSpaceInfo contains information about disk space at a path.
type DiskSpaceInfo struct {
	// Path that was checked
	Path string
	// Total disk space in bytes
	Total int64
	// Free disk space in bytes
	Free int64
	// Used disk space in bytes
	Used int64
	// Human-readable total
	TotalFormatted string
	// Human-readable free
	FreeFormatted string
	// Human-readable used
	UsedFormatted string
	// Percentage used (0-100)
	UsedPercent float64
}

// DiskSpaceError indicates a disk space problem.
type DiskSpaceError struct {
	// Path that was checked
	Path string
	// Required space in bytes
	Required int64
	// Available space in bytes
	Available int64
	// Human-readable message
	Message string
}

func (e *DiskSpaceError) Error() string {
	return e.Message
}

// DefaultBufferPercent is the default buffer percentage added on top of a
// model's size to leave room for temporary files.
const DefaultBufferPercent = 10

// GetDiskSpace returns disk space information for the filesystem containing
// the given path. If the path does not exist yet the parent directory is
// checked instead, so callers can validate a destination before creating it.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			parent := filepath.Dir(path)
			if parent != "" && parent != path {
				return GetDiskSpace(parent)
			}
		}
		return nil, fmt.Errorf("cannot access path %s: %w", path, err)
	}

	if !info.IsDir() {
		path = filepath.Dir(path)
	}

	total, free, err := getDiskSpace(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", path, err)
	}

	used := total - free
	var usedPercent float64
	if total > 0 {
		usedPercent = float64(used) / float64(total) * 100
	}

	return &DiskSpaceInfo{
		Path:           path,
		Total:          total,
		Free:           free,
		Used:           used,
		TotalFormatted: FormatBytes(total),
		FreeFormatted:  FormatBytes(free),
		UsedFormatted:  FormatBytes(used),
		UsedPercent:    usedPercent,
	}, nil
}

// CheckDiskSpace verifies there is sufficient free space at the given path.
// Returns nil if there is enough, or a *DiskSpaceError if not.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}

	if info.Free < requiredBytes {
		return &DiskSpaceError{
			Path:      path,
			Required:  requiredBytes,
			Available: info.Free,
			Message: fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
				path, FormatBytes(requiredBytes), info.FreeFormatted),
		}
	}

	return nil
}

// CheckDiskSpaceForModel checks if there is enough space to download model
// weights of the given size. bufferPercent adds headroom for temporary files
// (e.g., 10 for 10% extra).
func CheckDiskSpaceForModel(path string, modelSizeBytes int64, bufferPercent int) error {
	buffer := modelSizeBytes * int64(bufferPercent) / 100
	return CheckDiskSpace(path, modelSizeBytes+buffer)
}
