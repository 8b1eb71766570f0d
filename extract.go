// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// extractCopyBufferSize defines per-worker buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one selected resource with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	table   TypeTag
	res     Resource
}

// Extract writes selected resources from the archive to dstDir, laid out
// as "<tag>/<id>.<tag>" using display tag names. Extraction is parallelized
// by MaxWorkers; on failure it returns the first encountered error.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if a == nil || a.ra == nil {
		return ErrNilReader
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	opts.applyDefaults()

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	filter, err := newResourceFilter(opts.Filter, opts.FilterMatcherOptions)
	if err != nil {
		return err
	}

	workItems := prepareExtractItems(a.tablesForTypes(opts.Types), filter)
	if len(workItems) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	taskCh := make(chan extractWorkItem, len(workItems))
	errCh := make(chan error, len(workItems))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			copyBuf := make([]byte, extractCopyBufferSize)
			for task := range taskCh {
				err := a.extractPreparedResource(ctx, dstRootAbs, task, copyBuf, opts.OnResourceDone)
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		})
	}

	for _, task := range workItems {
		select {
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return ctx.Err()
		case taskCh <- task:
		}
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}

// prepareExtractItems resolves selected resources into unique output relative paths.
func prepareExtractItems(tables []Table, filter *resourceFilter) []extractWorkItem {
	items := make([]extractWorkItem, 0, 64)
	seen := make(map[string]int)

	for i := range tables {
		dir := tables[i].Type.DirName()
		for _, res := range tables[i].resources {
			relPath := resourcePath(dir, res.ID)
			if !filter.Match(relPath) {
				continue
			}

			relPath = uniqueRelPath(seen, relPath)
			items = append(items, extractWorkItem{
				relPath: filepath.FromSlash(relPath),
				relDir:  dir,
				table:   tables[i].Type,
				res:     res,
			})
		}
	}

	return items
}

// prepareExtractDirs creates all unique table directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, 8)
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedResource writes one prepared work item to destination root.
func (a *Archive) extractPreparedResource(
	ctx context.Context,
	dstRootAbs string,
	task extractWorkItem,
	copyBuf []byte,
	onResourceDone func(table TypeTag, res Resource, outputPath string),
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outPath := filepath.Join(dstRootAbs, task.relPath)

	src, err := a.OpenResourceInfo(task.res)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", outPath, err)
	}

	written, copyErr := copyExtractData(file, src, copyBuf)
	closeErr := file.Close()

	if copyErr != nil {
		return fmt.Errorf("write %s/%d: %w", task.table, task.res.ID, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", outPath, closeErr)
	}

	// A payload that extends past the end of the stream reads short.
	if written != int64(task.res.Size) {
		return fmt.Errorf("%w: resource %s/%d payload at offset %d size %d", ErrTruncated, task.table, task.res.ID, task.res.Offset, task.res.Size)
	}

	if onResourceDone != nil {
		onResourceDone(task.table, task.res, outPath)
	}

	return nil
}

// copyExtractData copies one resource stream to dst using fixed worker buffer.
func copyExtractData(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	var total int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			total += int64(writeN)

			if writeErr != nil {
				return total, writeErr
			}

			if writeN != readN {
				return total, io.ErrShortWrite
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return total, nil
		}

		return total, readErr
	}
}
