// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"fmt"
	"io"
	"os"
)

// ReadHeader opens a DRS file and returns only the fixed 64-byte header
// without parsing the table directory.
func ReadHeader(path string) (Header, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return Header{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeaderFromReaderAt(f, size)
}

// ReadHeaderFromReaderAt reads only the fixed header from a random-access source.
func ReadHeaderFromReaderAt(ra io.ReaderAt, size int64) (Header, error) {
	if ra == nil {
		return Header{}, ErrNilReader
	}

	return parseFixedHeader(ra, size)
}

// ListTables opens a DRS file and returns table metadata with parsed
// dictionaries but without payload reads.
func ListTables(path string) ([]Table, error) {
	return ListTablesWithOptions(path, ReaderOptions{})
}

// ListTablesWithOptions opens a DRS file and returns table metadata without payload reads using reader options.
func ListTablesWithOptions(path string, opts ReaderOptions) ([]Table, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ListTablesFromReaderAtWithOptions(f, size, opts)
}

// ListTablesFromReaderAt parses table metadata from a random-access source.
func ListTablesFromReaderAt(ra io.ReaderAt, size int64) ([]Table, error) {
	return ListTablesFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// ListTablesFromReaderAtWithOptions parses table metadata from a random-access source using reader options.
func ListTablesFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) ([]Table, error) {
	opts.applyDefaults()

	if ra == nil {
		return nil, ErrNilReader
	}

	header, err := parseFixedHeader(ra, size)
	if err != nil {
		return nil, err
	}

	return parseDirectory(ra, size, header.NumTypes, opts.DictionaryMode)
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open DRS: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
