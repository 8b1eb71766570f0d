// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"os"
	"sync"
)

const (
	// readerDictBufferSize is a sequential read buffer for directory and dictionary parsing.
	readerDictBufferSize = 64 * 1024
)

var (
	// dictReaderPool reuses buffered readers for sequential directory parsing.
	dictReaderPool = sync.Pool{
		New: func() any {
			return bufio.NewReaderSize(bytes.NewReader(nil), readerDictBufferSize)
		},
	}
)

// Archive provides read-only access to a parsed DRS container.
//
// Construction is atomic: a non-nil Archive always holds a fully parsed
// header, table directory, and all resource dictionaries. Payload bytes
// are never read or cached during parse.
type Archive struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Archive owns an *os.File opened via Open.
	file *os.File
	// header stores the parsed fixed 64-byte preamble.
	header Header
	// tables are kept in stored order for deterministic lookups.
	tables []Table
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens a DRS file by path and parses header and directory structures.
func Open(path string) (*Archive, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens a DRS file by path and parses header and directory structures using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Archive, error) {
	opts.applyDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DRS: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	a, err := NewFromReaderAtWithOptions(f, fi.Size(), opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a.file = f
	return a, nil
}

// NewFromReaderAt parses a DRS archive from existing ReaderAt and known size.
func NewFromReaderAt(ra io.ReaderAt, size int64) (*Archive, error) {
	return NewFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewFromReaderAtWithOptions parses a DRS archive from existing ReaderAt and known size using explicit reader options.
func NewFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Archive, error) {
	opts.applyDefaults()

	if ra == nil {
		return nil, ErrNilReader
	}

	a := &Archive{ra: ra, size: size}
	if err := a.parse(ra, size, opts); err != nil {
		return nil, err
	}

	return a, nil
}

// Header returns the parsed fixed archive header.
func (a *Archive) Header() Header {
	if a == nil {
		return Header{}
	}

	return a.header
}

// Tables iterates parsed tables in stored order.
// The sequence is restartable and safe to range over multiple times.
func (a *Archive) Tables() iter.Seq[Table] {
	return func(yield func(Table) bool) {
		if a == nil {
			return
		}

		for i := range a.tables {
			if !yield(a.tables[i]) {
				return
			}
		}
	}
}

// Table returns the table with the given stored type tag. Tags are
// compared byte-for-byte; when duplicate tags exist the first table
// in stored order wins.
func (a *Archive) Table(tag TypeTag) (Table, error) {
	if a == nil {
		return Table{}, ErrNilReader
	}

	for i := range a.tables {
		if a.tables[i].Type == tag {
			return a.tables[i], nil
		}
	}

	return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, tag)
}

// Resource returns the dictionary entry for the given type tag and id.
func (a *Archive) Resource(tag TypeTag, id uint32) (Resource, error) {
	t, err := a.Table(tag)
	if err != nil {
		return Resource{}, err
	}

	res, ok := t.Resource(id)
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s/%d", ErrResourceNotFound, tag, id)
	}

	return res, nil
}

// ResourceType returns the type tag of the first table in stored order
// that contains a resource with the given id.
func (a *Archive) ResourceType(id uint32) (TypeTag, bool) {
	if a == nil {
		return TypeTag{}, false
	}

	for i := range a.tables {
		if _, ok := a.tables[i].Resource(id); ok {
			return a.tables[i].Type, true
		}
	}

	return TypeTag{}, false
}

// Close closes the underlying file if archive owns one.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	if a.file != nil {
		return a.file.Close()
	}

	return nil
}

// parse reads and validates DRS structure from ReaderAt.
func (a *Archive) parse(ra io.ReaderAt, size int64, opts ReaderOptions) error {
	header, err := parseFixedHeader(ra, size)
	if err != nil {
		return err
	}
	a.header = header

	// Parse directory and dictionaries with sequential buffered reads to
	// reduce ReadAt syscall overhead.
	tables, err := parseDirectory(ra, size, header.NumTypes, opts.DictionaryMode)
	if err != nil {
		return err
	}
	a.tables = tables

	return nil
}

// parseFixedHeader reads and decodes the fixed 64-byte preamble.
func parseFixedHeader(ra io.ReaderAt, size int64) (Header, error) {
	if size < headerSize {
		return Header{}, fmt.Errorf("%w: short header", ErrTruncated)
	}

	var raw [headerSize]byte
	if _, err := ra.ReadAt(raw[:], 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: short header", ErrTruncated)
		}

		return Header{}, fmt.Errorf("read header: %w", err)
	}

	var h Header
	copy(h.Banner[:], raw[0:bannerSize])
	copy(h.Version[:], raw[bannerSize:bannerSize+versionSize])
	copy(h.Password[:], raw[bannerSize+versionSize:bannerSize+versionSize+passwordSize])
	h.NumTypes = binary.LittleEndian.Uint32(raw[56:60])
	h.DirectorySize = binary.LittleEndian.Uint32(raw[60:64])

	return h, nil
}

// parseDirectory parses the table directory and all resource dictionaries.
func parseDirectory(ra io.ReaderAt, size int64, numTables uint32, mode DictionaryMode) ([]Table, error) {
	sr := io.NewSectionReader(ra, headerSize, size-headerSize)
	br := dictReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
	br.Reset(sr)
	defer dictReaderPool.Put(br)

	tables := make([]Table, 0, boundedCapacity(numTables, maxInitTableCap))
	for i := uint32(0); i < numTables; i++ {
		var desc [tableEntrySize]byte
		if _, err := io.ReadFull(br, desc[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: table directory entry %d of %d", ErrTruncated, i+1, numTables)
			}

			return nil, fmt.Errorf("read table directory: %w", err)
		}

		var t Table
		copy(t.Type[:], desc[0:4])
		t.Offset = binary.LittleEndian.Uint32(desc[4:8])
		t.NumResources = binary.LittleEndian.Uint32(desc[8:12])
		tables = append(tables, t)
	}

	switch mode {
	case DictionaryModeSequential:
		// Dictionaries follow the table directory contiguously; stored
		// table offsets are ignored.
		for i := range tables {
			if err := readDictionary(br, &tables[i]); err != nil {
				return nil, err
			}
		}
	case DictionaryModeDeclared:
		dbr := dictReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
		defer dictReaderPool.Put(dbr)

		for i := range tables {
			off := int64(tables[i].Offset)
			if off > size {
				return nil, fmt.Errorf("%w: table %s dictionary at %d beyond size %d", ErrInvalidTableOffset, tables[i].Type, off, size)
			}

			dbr.Reset(io.NewSectionReader(ra, off, size-off))
			if err := readDictionary(dbr, &tables[i]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDictionaryMode, mode)
	}

	return tables, nil
}

// readDictionary reads NumResources dictionary records into the table.
func readDictionary(br *bufio.Reader, t *Table) error {
	if t.NumResources == 0 {
		return nil
	}

	t.resources = make([]Resource, 0, boundedCapacity(t.NumResources, maxInitResourceCap))
	for i := uint32(0); i < t.NumResources; i++ {
		var rec [resourceEntrySize]byte
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return fmt.Errorf("%w: dictionary entry %d of %d for table %s", ErrTruncated, i+1, t.NumResources, t.Type)
			}

			return fmt.Errorf("read resource dictionary: %w", err)
		}

		t.resources = append(t.resources, Resource{
			ID:     binary.LittleEndian.Uint32(rec[0:4]),
			Offset: binary.LittleEndian.Uint32(rec[4:8]),
			Size:   binary.LittleEndian.Uint32(rec[8:12]),
		})
	}

	return nil
}

// Initial allocation clamps for declared record counts.
const (
	maxInitTableCap    = 1024
	maxInitResourceCap = 8192
)

// boundedCapacity returns a conservative initial capacity for declared
// record counts so hostile headers cannot force large upfront allocations.
// Truncation surfaces on read; append grows honest archives as needed.
func boundedCapacity(declared uint32, maxCap int) int {
	if declared > uint32(maxCap) { //nolint:gosec // maxCap is a small positive constant
		return maxCap
	}

	return int(declared)
}
