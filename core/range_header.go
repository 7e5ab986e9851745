package core

import "fmt"

// BuildRangeHeader constructs an HTTP Range header for resumable downloads.
// The returned value requests every byte from the given offset onward, which
// lets an interrupted weights download pick up where it left off.
//
// Examples:
//   - BuildRangeHeader(0) returns "bytes=0-"
//   - BuildRangeHeader(1048576) returns "bytes=1048576-"
//
// Negative offsets are treated as 0. This is a pure function with no side effects.
func BuildRangeHeader(resumeFrom int64) string {
	if resumeFrom < 0 {
		resumeFrom = 0
	}
	return fmt.Sprintf("bytes=%d-", resumeFrom)
}

// ParseContentRange parses a Content-Range response header into its byte range.
// Servers respond with Content-Range when honoring a Range request.
//
// Expected format: "bytes start-end/total" or "bytes start-end/*".
// Total is -1 when the server reports it as unknown ("*").
//
// This is a pure function with no side effects.
func ParseContentRange(header string) (start, end, total int64, err error) {
	if header == "" {
		return 0, 0, 0, fmt.Errorf("empty Content-Range header")
	}

	var totalStr string
	n, scanErr := fmt.Sscanf(header, "bytes %d-%d/%s", &start, &end, &totalStr)
	if scanErr != nil || n < 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}

	if totalStr == "*" {
		total = -1
	} else if _, parseErr := fmt.Sscanf(totalStr, "%d", &total); parseErr != nil {
		return 0, 0, 0, fmt.Errorf("invalid total in Content-Range: %q", totalStr)
	}

	return start, end, total, nil
}

// IsPartialContentSupported reports whether a server's Accept-Ranges header
// indicates support for byte range requests.
func IsPartialContentSupported(acceptRangesHeader string) bool {
	return acceptRangesHeader == "bytes"
}
