// Package progress reports upload progress during the initial creation of a
// remote document, when a whole group's file set goes up at once.
package progress

import (
	"fmt"
	"io"
	"sync"
)

// Reporter receives upload progress for one operation
type Reporter interface {
	// SetTotal announces how many files will be uploaded
	SetTotal(files int)
	// FileStart is called before a file's content is read
	FileStart(path string)
	// FileDone is called after a file was added to the upload batch
	FileDone(path string, bytes int64)
	// FileError is called when a file could not be read; the upload
	// continues without it
	FileError(path string, err error)
}

// ConsoleReporter writes one line per file to w
type ConsoleReporter struct {
	mu    sync.Mutex
	w     io.Writer
	total int
	done  int
}

// NewConsoleReporter creates a ConsoleReporter writing to w
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

// SetTotal announces the file count
func (r *ConsoleReporter) SetTotal(files int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = files
	r.done = 0
}

// FileStart is a no-op for the console; lines are written on completion
func (r *ConsoleReporter) FileStart(path string) {}

// FileDone prints the finished file with a running count
func (r *ConsoleReporter) FileDone(path string, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	fmt.Fprintf(r.w, "  [%d/%d] %s (%s)\n", r.done, r.total, path, FormatBytes(bytes))
}

// FileError prints the skipped file and its error
func (r *ConsoleReporter) FileError(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "  skipped %s: %v\n", path, err)
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(files int)                {}
func (NullReporter) FileStart(path string)             {}
func (NullReporter) FileDone(path string, bytes int64) {}
func (NullReporter) FileError(path string, err error)  {}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
