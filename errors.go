// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import "errors"

// Sentinel errors for DRS operations. Use errors.Is in callers.
var (
	// ErrTruncated means the stream ended before a complete header,
	// table directory, or resource dictionary could be read.
	ErrTruncated = errors.New("truncated DRS archive")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrTableNotFound means no table with the requested type tag exists.
	ErrTableNotFound = errors.New("resource table not found")
	// ErrResourceNotFound means the table has no entry with the requested id.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrClosed means the archive is already closed.
	ErrClosed = errors.New("archive already closed")
	// ErrSizeOverflow means a declared resource size is not addressable
	// on this platform.
	ErrSizeOverflow = errors.New("resource size exceeds addressable range")
	// ErrInvalidTableOffset means a stored table offset points outside the
	// stream for the declared dictionary mode.
	ErrInvalidTableOffset = errors.New("invalid table offset")
	// ErrInvalidDictionaryMode means reader options carry an unknown dictionary mode.
	ErrInvalidDictionaryMode = errors.New("invalid dictionary mode")
	// ErrInvalidFilterPattern means one or more filter rules are invalid.
	ErrInvalidFilterPattern = errors.New("invalid filter rules")
	// ErrInvalidTypeTag means a type tag string cannot be converted to a
	// 4-byte stored tag.
	ErrInvalidTypeTag = errors.New("invalid type tag")
	// ErrUnsupportedTarCompression means tar options carry an unknown compression mode.
	ErrUnsupportedTarCompression = errors.New("unsupported tar compression")
)
