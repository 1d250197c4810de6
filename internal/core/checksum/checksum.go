// Package checksum computes content fingerprints for tracked files.
// A fingerprint is a hex-encoded digest of the file's exact bytes, so it is
// sensitive to encoding, line endings, and binary content.
package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm selects the digest algorithm
type Algorithm string

const (
	// MD5 is faster but not collision resistant; kept for compatibility
	MD5 Algorithm = "md5"
	// SHA256 is the default
	SHA256 Algorithm = "sha256"
)

// Options configures the fingerprint calculator
type Options struct {
	// MaxSize: files larger than this are rejected (0 = unlimited).
	// Gists cap individual file sizes well below this anyway.
	MaxSize int64

	// BufferSize is the chunk size for streaming reads
	BufferSize int
}

// DefaultOptions returns the recommended defaults
func DefaultOptions() Options {
	return Options{
		MaxSize:    10 * 1024 * 1024, // 10MB
		BufferSize: 32 * 1024,        // 32KB
	}
}

// Calculator computes file fingerprints
type Calculator interface {
	// Sum computes the fingerprint of everything read from r
	Sum(ctx context.Context, r io.Reader, algo Algorithm) (string, error)

	// File computes the fingerprint of the file at path.
	// An unreadable path returns an error the caller is expected to log
	// and skip; it must not abort processing of sibling paths.
	File(ctx context.Context, path string, algo Algorithm) (string, error)
}

// StreamCalculator implements Calculator with chunked reads
type StreamCalculator struct {
	opts Options
}

// NewCalculator creates a calculator with the given options
func NewCalculator(opts Options) *StreamCalculator {
	return &StreamCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *StreamCalculator {
	return NewCalculator(DefaultOptions())
}

// Sum implements the Calculator interface
func (c *StreamCalculator) Sum(ctx context.Context, r io.Reader, algo Algorithm) (string, error) {
	var h hash.Hash
	switch algo {
	case MD5:
		h = md5.New()
	case SHA256:
		h = sha256.New()
	default:
		return "", fmt.Errorf("unsupported algorithm: %s", algo)
	}

	var limited io.Reader = r
	if c.opts.MaxSize > 0 {
		limited = io.LimitReader(r, c.opts.MaxSize+1)
	}

	buf := make([]byte, c.opts.BufferSize)
	total := int64(0)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := limited.Read(buf)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("content exceeds maximum size (%d bytes)", c.opts.MaxSize)
			}
			if _, werr := h.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("hash write error: %w", werr)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// File implements the Calculator interface
func (c *StreamCalculator) File(ctx context.Context, path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return c.Sum(ctx, f, algo)
}

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	switch algo {
	case MD5, SHA256:
		return true
	default:
		return false
	}
}
