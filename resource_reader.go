// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"fmt"
	"io"
	"math"
)

// OpenResource opens a read-only view over one resource payload.
// The returned section reader carries its own cursor and is independent
// of views returned by other calls.
func (a *Archive) OpenResource(tag TypeTag, id uint32) (*io.SectionReader, error) {
	res, err := a.Resource(tag, id)
	if err != nil {
		return nil, err
	}

	return a.OpenResourceInfo(res)
}

// OpenResourceInfo opens a payload view for already resolved metadata.
func (a *Archive) OpenResourceInfo(res Resource) (*io.SectionReader, error) {
	if a == nil || a.ra == nil {
		return nil, ErrNilReader
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	return io.NewSectionReader(a.ra, int64(res.Offset), int64(res.Size)), nil
}

// ReadResource reads the full payload of one resource into a fresh buffer.
// Every call performs an independent exact-size read; nothing is cached
// and repeated calls return equal content. A payload that extends past
// the end of the stream fails with ErrTruncated.
func (a *Archive) ReadResource(tag TypeTag, id uint32) ([]byte, error) {
	res, err := a.Resource(tag, id)
	if err != nil {
		return nil, err
	}

	return a.readResourcePayload(tag, res)
}

// readResourcePayload performs one exact-size payload read.
func (a *Archive) readResourcePayload(tag TypeTag, res Resource) ([]byte, error) {
	if a.ra == nil {
		return nil, ErrNilReader
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	size, err := checkedUint32ToInt(res.Size)
	if err != nil {
		return nil, fmt.Errorf("resolve payload size for %s/%d: %w", tag, res.ID, err)
	}

	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}

	if _, err := a.ra.ReadAt(buf, int64(res.Offset)); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: resource %s/%d payload at offset %d size %d", ErrTruncated, tag, res.ID, res.Offset, res.Size)
		}

		return nil, fmt.Errorf("read resource %s/%d: %w", tag, res.ID, err)
	}

	return buf, nil
}

// checkedUint32ToInt converts uint32 to int with platform-safe overflow check.
func checkedUint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}

	return int(v), nil
}
