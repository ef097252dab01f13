// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/gitpan/par-repository/lib/codec"
)

// receiptDir holds one CBOR receipt per injected artifact.
const receiptDir = ".receipts"

// Receipt records what a single injection did: the artifact's
// identity, its content hash at injection time, and every index
// association and alias created for it. Receipts are advisory — the
// engine never consults them to make decisions — and feed Verify.
type Receipt struct {
	File        string             `cbor:"file"`
	Name        string             `cbor:"name"`
	Version     string             `cbor:"version"`
	Arch        string             `cbor:"arch"`
	PerlVersion string             `cbor:"perl_version"`
	ContentHash string             `cbor:"content_hash"`
	Provides    map[string]*string `cbor:"provides"`
	Scripts     map[string]*string `cbor:"scripts,omitempty"`
	Aliases     []string           `cbor:"aliases,omitempty"`
	InjectedAt  time.Time          `cbor:"injected_at"`
}

func (r *Repository) receiptPath(fileName string) string {
	return filepath.Join(r.root, receiptDir, fileName+".cbor")
}

// writeReceipt persists the receipt atomically under .receipts/.
func (r *Repository) writeReceipt(receipt Receipt) error {
	dir := filepath.Join(r.root, receiptDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating receipt directory: %w", err)
	}

	data, err := codec.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encoding receipt for %s: %w", receipt.File, err)
	}

	finalPath := r.receiptPath(receipt.File)
	tmpFile, err := os.CreateTemp(dir, ".receipt-*")
	if err != nil {
		return fmt.Errorf("creating temp receipt: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing receipt for %s: %w", receipt.File, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp receipt: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming receipt into place: %w", err)
	}

	success = true
	return nil
}

// readReceipt loads the receipt for fileName. A missing receipt
// returns (nil, nil): artifacts injected by older tooling have none.
func (r *Repository) readReceipt(fileName string) (*Receipt, error) {
	data, err := os.ReadFile(r.receiptPath(fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading receipt for %s: %w", fileName, err)
	}

	var receipt Receipt
	if err := codec.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("decoding receipt for %s: %w", fileName, err)
	}
	return &receipt, nil
}

// removeReceipt deletes fileName's receipt if present.
func (r *Repository) removeReceipt(fileName string) error {
	err := os.Remove(r.receiptPath(fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting receipt for %s: %w", fileName, err)
	}
	return nil
}

// hashFile computes the hex BLAKE3 hash of the file's contents.
func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
