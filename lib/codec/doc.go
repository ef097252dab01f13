// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the repository's standard CBOR encoding.
//
// Injection receipts are persisted as CBOR with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same logical record
// always produces identical bytes, so receipt files can be compared
// byte-for-byte. Consumers import only this package, never
// fxamacker/cbor directly.
package codec
