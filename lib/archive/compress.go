// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies the compression algorithm for an index
// archive. The algorithm is recorded implicitly in the archive's
// frame magic, not in the repository metadata.
type Algorithm uint8

const (
	// AlgorithmZstd is zstd at the default level. Index databases
	// are mostly text (module names, file names) and compress 4-6x.
	AlgorithmZstd Algorithm = iota

	// AlgorithmLZ4 is LZ4 frame compression. Lower ratio than zstd
	// but markedly faster on both ends.
	AlgorithmLZ4
)

// String returns the human-readable name of an algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm parses an algorithm from its string name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "zstd":
		return AlgorithmZstd, nil
	case "lz4":
		return AlgorithmLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression algorithm: %q", name)
	}
}

// Frame magics used for algorithm detection on decompression.
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// CompressFile compresses the file at source into an archive at
// destination using the given algorithm. The destination is replaced
// atomically: data is written to a temporary file in the destination
// directory and renamed into place only after a successful flush.
func CompressFile(source, destination string, algorithm Algorithm) error {
	input, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", source, err)
	}
	defer input.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(destination), ".archive-*")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := compressTo(tmpFile, input, algorithm); err != nil {
		tmpFile.Close()
		return fmt.Errorf("compressing %s: %w", source, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp archive: %w", err)
	}

	if err := os.Rename(tmpPath, destination); err != nil {
		return fmt.Errorf("renaming archive to %s: %w", destination, err)
	}

	success = true
	return nil
}

// DecompressFile decompresses the archive at source to a file at
// destination, detecting the algorithm from the frame magic. The
// destination is truncated if it already exists (stale working copies
// from a crashed session are overwritten, not appended to).
func DecompressFile(source, destination string) error {
	input, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", source, err)
	}
	defer input.Close()

	var magic [4]byte
	if _, err := io.ReadFull(input, magic[:]); err != nil {
		return fmt.Errorf("reading archive magic from %s: %w", source, err)
	}
	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding archive %s: %w", source, err)
	}

	output, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating working copy %s: %w", destination, err)
	}

	switch {
	case bytes.Equal(magic[:], zstdMagic):
		err = decompressZstd(output, input)
	case bytes.Equal(magic[:], lz4Magic):
		err = decompressLZ4(output, input)
	default:
		err = fmt.Errorf("archive %s has unrecognized magic %x", source, magic)
	}
	if err != nil {
		output.Close()
		os.Remove(destination)
		return err
	}

	if err := output.Close(); err != nil {
		os.Remove(destination)
		return fmt.Errorf("closing working copy %s: %w", destination, err)
	}
	return nil
}

func compressTo(w io.Writer, r io.Reader, algorithm Algorithm) error {
	switch algorithm {
	case AlgorithmZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
		if _, err := io.Copy(encoder, r); err != nil {
			encoder.Close()
			return fmt.Errorf("zstd compress: %w", err)
		}
		return encoder.Close()

	case AlgorithmLZ4:
		encoder := lz4.NewWriter(w)
		if _, err := io.Copy(encoder, r); err != nil {
			encoder.Close()
			return fmt.Errorf("lz4 compress: %w", err)
		}
		return encoder.Close()

	default:
		return fmt.Errorf("unsupported compression algorithm: %d", algorithm)
	}
}

func decompressZstd(w io.Writer, r io.Reader) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()

	if _, err := io.Copy(w, decoder); err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	return nil
}

func decompressLZ4(w io.Writer, r io.Reader) error {
	if _, err := io.Copy(w, lz4.NewReader(r)); err != nil {
		return fmt.Errorf("lz4 decompress: %w", err)
	}
	return nil
}
