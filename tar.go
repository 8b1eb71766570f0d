// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// WriteTar streams selected resources into w as a tar archive with the
// same "<tag>/<id>.<tag>" member layout Extract produces on disk. With
// TarCompressionZstd the whole tar stream is zstd-compressed.
func (a *Archive) WriteTar(ctx context.Context, w io.Writer, opts TarOptions) error {
	if a == nil || a.ra == nil {
		return ErrNilReader
	}

	if w == nil {
		return ErrNilWriter
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}

	opts.applyDefaults()

	filter, err := newResourceFilter(opts.Filter, opts.FilterMatcherOptions)
	if err != nil {
		return err
	}

	items := prepareExtractItems(a.tablesForTypes(opts.Types), filter)

	dst := w
	var enc *zstd.Encoder

	switch opts.Compression {
	case TarCompressionNone:
	case TarCompressionZstd:
		enc, err = zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("init zstd encoder: %w", err)
		}
		dst = enc
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTarCompression, opts.Compression)
	}

	err = a.writeTarMembers(ctx, dst, items, opts.ModTime)
	if enc != nil {
		if closeErr := enc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close zstd encoder: %w", closeErr)
		}
	}

	return err
}

// writeTarMembers writes one tar member per prepared work item.
func (a *Archive) writeTarMembers(ctx context.Context, dst io.Writer, items []extractWorkItem, modTime time.Time) error {
	tw := tar.NewWriter(dst)
	copyBuf := make([]byte, extractCopyBufferSize)

	for _, task := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr := &tar.Header{
			Name:    filepath.ToSlash(task.relPath),
			Mode:    0o644,
			Size:    int64(task.res.Size),
			ModTime: modTime,
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header %s: %w", hdr.Name, err)
		}

		src, err := a.OpenResourceInfo(task.res)
		if err != nil {
			return err
		}

		written, err := copyExtractData(tw, src, copyBuf)
		if err != nil {
			return fmt.Errorf("write tar member %s/%d: %w", task.table, task.res.ID, err)
		}

		// A payload that extends past the end of the stream reads short.
		if written != int64(task.res.Size) {
			return fmt.Errorf("%w: resource %s/%d payload at offset %d size %d", ErrTruncated, task.table, task.res.ID, task.res.Offset, task.res.Size)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar stream: %w", err)
	}

	return nil
}
