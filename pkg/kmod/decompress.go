// SPDX-License-Identifier: MPL-2.0

package kmod

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a module image is stored on disk.
type Compression int

const (
	// CompressionNone is a plain ELF .ko file.
	CompressionNone Compression = iota
	// CompressionXZ is a .ko.xz file.
	CompressionXZ
	// CompressionZstd is a .ko.zst file.
	CompressionZstd
	// CompressionGzip is a .ko.gz file.
	CompressionGzip
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionXZ:
		return "xz"
	case CompressionZstd:
		return "zstd"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// CompressionOf returns the compression implied by the file name.
func CompressionOf(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".xz"):
		return CompressionXZ
	case strings.HasSuffix(path, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(path, ".gz"):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// readImage returns the uncompressed ELF image stored at path.
func readImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decompress(f, CompressionOf(path))
}

func decompress(r io.Reader, c Compression) ([]byte, error) {
	switch c {
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}
		return io.ReadAll(xr)
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	default:
		return io.ReadAll(r)
	}
}
