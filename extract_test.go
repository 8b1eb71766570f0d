package drs

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/woozymasta/pathrules"
)

// listExtractedFiles returns sorted slash-separated paths of all regular
// files under root.
func listExtractedFiles(t *testing.T, root string) []string {
	t.Helper()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}

	sort.Strings(files)
	return files
}

func TestExtract_LayoutAndContent(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	dst := t.TempDir()
	if err := a.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"bina/1.bina", "bina/2.bina", "slp/10.slp"}
	if got := listExtractedFiles(t, dst); !equalStrings(got, want) {
		t.Fatalf("extracted files: got %v, want %v", got, want)
	}

	for _, tc := range []struct {
		rel string
		tag TypeTag
		id  uint32
	}{
		{rel: "bina/1.bina", tag: storedTag("anib"), id: 1},
		{rel: "bina/2.bina", tag: storedTag("anib"), id: 2},
		{rel: "slp/10.slp", tag: storedTag(" pls"), id: 10},
	} {
		onDisk, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(tc.rel)))
		if err != nil {
			t.Fatalf("read %s: %v", tc.rel, err)
		}

		fromArchive, err := a.ReadResource(tc.tag, tc.id)
		if err != nil {
			t.Fatalf("ReadResource %s/%d: %v", tc.tag, tc.id, err)
		}

		if !bytes.Equal(onDisk, fromArchive) {
			t.Errorf("%s: disk %q, archive %q", tc.rel, onDisk, fromArchive)
		}
	}
}

func TestExtract_FilterExclude(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	dst := t.TempDir()
	err = a.Extract(context.Background(), dst, ExtractOptions{
		Filter: []pathrules.Rule{
			{Action: pathrules.ActionExclude, Pattern: "slp/**"},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"bina/1.bina", "bina/2.bina"}
	if got := listExtractedFiles(t, dst); !equalStrings(got, want) {
		t.Errorf("extracted files: got %v, want %v", got, want)
	}
}

func TestExtract_FilterAllowlist(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	dst := t.TempDir()
	err = a.Extract(context.Background(), dst, ExtractOptions{
		Filter: []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "BINA/1.bina"},
		},
		FilterMatcherOptions: pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"bina/1.bina"}
	if got := listExtractedFiles(t, dst); !equalStrings(got, want) {
		t.Errorf("extracted files: got %v, want %v", got, want)
	}
}

func TestExtract_TypesLimit(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	dst := t.TempDir()
	err = a.Extract(context.Background(), dst, ExtractOptions{
		Types: []TypeTag{storedTag(" pls")},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"slp/10.slp"}
	if got := listExtractedFiles(t, dst); !equalStrings(got, want) {
		t.Errorf("extracted files: got %v, want %v", got, want)
	}
}

func TestExtract_OnResourceDone(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	var mu sync.Mutex
	done := make(map[string]uint32)

	dst := t.TempDir()
	err = a.Extract(context.Background(), dst, ExtractOptions{
		MaxWorkers: 2,
		OnResourceDone: func(table TypeTag, res Resource, outputPath string) {
			mu.Lock()
			defer mu.Unlock()
			rel, relErr := filepath.Rel(dst, outputPath)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				t.Errorf("callback path escapes destination: %s", outputPath)
			}
			done[filepath.ToSlash(rel)] = res.ID
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(done) != 3 {
		t.Fatalf("callbacks: got %d, want 3", len(done))
	}
	if done["bina/2.bina"] != 2 || done["slp/10.slp"] != 10 {
		t.Errorf("callback ids: %v", done)
	}
}

func TestExtract_DuplicateIDCollision(t *testing.T) {
	t.Parallel()

	// Two tables with the same tag, both carrying id 1.
	data := buildArchiveBytes("collide", "1.00", "", []fixtureTable{
		{tag: "anib", resources: []fixtureResource{{id: 1, payload: []byte("first")}}},
		{tag: "anib", resources: []fixtureResource{{id: 1, payload: []byte("second")}}},
	})

	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	dst := t.TempDir()
	if err := a.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"bina/1.bina", "bina/1~2.bina"}
	if got := listExtractedFiles(t, dst); !equalStrings(got, want) {
		t.Fatalf("extracted files: got %v, want %v", got, want)
	}

	first, err := os.ReadFile(filepath.Join(dst, "bina", "1.bina"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(dst, "bina", "1~2.bina"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != "first" || string(second) != "second" {
		t.Errorf("collision contents: %q, %q", first, second)
	}
}

func TestExtract_HostileTagStaysInside(t *testing.T) {
	t.Parallel()

	// Stored bytes display as "../x"; the directory name must stay inert.
	data := buildArchiveBytes("hostile", "1.00", "", []fixtureTable{
		{tag: "x/..", resources: []fixtureResource{{id: 1, payload: []byte("payload")}}},
	})

	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	parent := t.TempDir()
	dst := filepath.Join(parent, "out")
	if err := a.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"___x/1.___x"}
	if got := listExtractedFiles(t, dst); !equalStrings(got, want) {
		t.Fatalf("extracted files: got %v, want %v", got, want)
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out" {
		t.Errorf("destination parent polluted: %v", entries)
	}
}

func TestExtract_PreCanceledContext(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := filepath.Join(t.TempDir(), "out")
	if err := a.Extract(ctx, dst, ExtractOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("canceled extract touched destination: %v", err)
	}
}

func TestExtract_TruncatedPayload(t *testing.T) {
	t.Parallel()

	full := buildDefaultArchive()
	data := full[:len(full)-4]

	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	err = a.Extract(context.Background(), t.TempDir(), ExtractOptions{})
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestExtract_EmptySelection(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out")
	err = a.Extract(context.Background(), dst, ExtractOptions{
		Filter: []pathrules.Rule{
			{Action: pathrules.ActionExclude, Pattern: "*"},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// Nothing selected, nothing created.
	if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("empty selection created destination: %v", err)
	}
}

func TestExtract_InvalidFilterRule(t *testing.T) {
	t.Parallel()

	data := buildDefaultArchive()
	a, err := NewFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReaderAt: %v", err)
	}

	err = a.Extract(context.Background(), t.TempDir(), ExtractOptions{
		Filter: []pathrules.Rule{
			{Action: pathrules.ActionUnknown, Pattern: "bina/**"},
		},
	})
	if !errors.Is(err, ErrInvalidFilterPattern) {
		t.Errorf("expected ErrInvalidFilterPattern, got %v", err)
	}
}

func TestExtract_ClosedArchive(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, buildDefaultArchive())
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	err = a.Extract(context.Background(), t.TempDir(), ExtractOptions{})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

// equalStrings compares two string slices element-wise.
func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
