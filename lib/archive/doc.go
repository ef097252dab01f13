// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive compresses and decompresses single files.
//
// Index archives are whole-file compressed: the repository keeps each
// index as one compressed archive and decompresses it to a private
// working copy while a session mutates it. Two algorithms are
// supported, selected by [Algorithm]: zstd (the default, better
// ratios on the text-heavy index databases) and LZ4 frame (faster,
// for very large repositories where close latency matters).
//
// Compression always lands atomically: output is written to a
// temporary file in the destination directory and renamed over the
// final path, so a crash mid-write leaves the previous archive
// intact. Decompression detects the algorithm from the frame magic,
// so archives written with either algorithm open interchangeably.
package archive
