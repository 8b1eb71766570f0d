// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"bytes"
	"fmt"
	"iter"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout constants.
const (
	headerSize        = 64 // fixed archive header size in bytes
	tableEntrySize    = 12 // table directory record size in bytes
	resourceEntrySize = 12 // resource dictionary record size in bytes
)

// Fixed field widths inside the archive header.
const (
	bannerSize   = 40 // copyright banner field
	versionSize  = 4  // version field
	passwordSize = 12 // password field
)

// Header is the fixed 64-byte archive preamble.
type Header struct {
	// Banner is the 40-byte banner/copyright text, NUL padded.
	Banner [bannerSize]byte `json:"banner" yaml:"banner"`
	// Version is the 4-byte format version field.
	Version [versionSize]byte `json:"version" yaml:"version"`
	// Password is the 12-byte password field.
	Password [passwordSize]byte `json:"password" yaml:"password"`
	// NumTypes is the declared number of resource type tables.
	NumTypes uint32 `json:"num_types" yaml:"num_types"`
	// DirectorySize is the declared size of header plus directory area in bytes.
	DirectorySize uint32 `json:"directory_size" yaml:"directory_size"`
}

// BannerString returns banner text with NUL padding stripped.
func (h Header) BannerString() string {
	return trimCString(h.Banner[:])
}

// VersionString returns the version field with NUL padding stripped.
func (h Header) VersionString() string {
	return trimCString(h.Version[:])
}

// PasswordString returns the password field with NUL padding stripped.
func (h Header) PasswordString() string {
	return trimCString(h.Password[:])
}

// String renders header fields for debug output. Raw text fields are
// decoded for display only; stored bytes stay authoritative.
func (h Header) String() string {
	return fmt.Sprintf("Header{Banner: %q, Version: %q, Password: %q, NumTypes: %d, DirectorySize: %d}",
		trimCString(h.Banner[:]), trimCString(h.Version[:]), trimCString(h.Password[:]),
		h.NumTypes, h.DirectorySize)
}

// trimCString cuts b at the first NUL byte and returns the prefix as string.
func trimCString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Resource describes a single resource dictionary entry.
type Resource struct {
	// ID is the numeric resource identifier, unique within its table.
	ID uint32 `json:"id" yaml:"id"`
	// Offset is absolute byte offset of resource payload from archive start.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Size is payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
}

// String renders resource metadata for debug output.
func (r Resource) String() string {
	return fmt.Sprintf("Resource{ID: %d, Offset: %d, Size: %d}", r.ID, r.Offset, r.Size)
}

// Table describes one resource type table with its parsed dictionary.
type Table struct {
	// Type is the 4-byte resource type tag as stored on disk.
	Type TypeTag `json:"type" yaml:"type"`
	// Offset is the declared absolute byte offset of this table's dictionary.
	Offset uint32 `json:"offset" yaml:"offset"`
	// NumResources is the declared number of dictionary entries.
	NumResources uint32 `json:"num_resources" yaml:"num_resources"`

	resources []Resource
}

// Len returns the number of parsed dictionary entries.
func (t Table) Len() int {
	return len(t.resources)
}

// Resource returns the dictionary entry with the given id. Ids are unique
// within a well-formed table; the first entry in stored order wins.
func (t Table) Resource(id uint32) (Resource, bool) {
	for i := range t.resources {
		if t.resources[i].ID == id {
			return t.resources[i], true
		}
	}

	return Resource{}, false
}

// Resources iterates dictionary entries in stored order.
// The sequence is restartable and safe to range over multiple times.
func (t Table) Resources() iter.Seq[Resource] {
	return func(yield func(Resource) bool) {
		for i := range t.resources {
			if !yield(t.resources[i]) {
				return
			}
		}
	}
}

// String renders table metadata for debug output with the display form
// of the type tag.
func (t Table) String() string {
	return fmt.Sprintf("Table{Type: %s, Offset: %d, NumResources: %d}", t.Type, t.Offset, t.NumResources)
}

// DictionaryMode controls how reader locates per-table resource dictionaries.
type DictionaryMode string

// Reader dictionary resolution modes.
const (
	// DictionaryModeSequential ignores stored table offsets and reads
	// dictionaries contiguously after the table directory.
	DictionaryModeSequential DictionaryMode = "sequential"
	// DictionaryModeDeclared seeks to each table's stored dictionary offset.
	DictionaryModeDeclared DictionaryMode = "declared"
)

// ReaderOptions configures reader parse compatibility behavior.
type ReaderOptions struct {
	// DictionaryMode controls whether stored table offsets are used to
	// locate resource dictionaries.
	DictionaryMode DictionaryMode `json:"dictionary_mode,omitempty" yaml:"dictionary_mode,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnResourceDone is called after one resource is fully written to disk.
	OnResourceDone func(table TypeTag, res Resource, outputPath string) `json:"-" yaml:"-"`
	// Filter defines ordered path rules matched against output-relative
	// resource paths like "slp/412.slp"; nil extracts everything.
	Filter []pathrules.Rule `json:"filter,omitempty" yaml:"filter,omitempty"`
	// FilterMatcherOptions control filter rule matching. Resources matching
	// no rule follow DefaultAction (include by default).
	FilterMatcherOptions pathrules.MatcherOptions `json:"filter_matcher_options,omitzero" yaml:"filter_matcher_options,omitzero"`
	// Types limits extraction to selected tables; nil means all tables.
	Types []TypeTag `json:"types,omitempty" yaml:"types,omitempty"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// TarCompression selects optional tar stream compression.
type TarCompression string

// Tar stream compression modes.
const (
	// TarCompressionNone writes a plain uncompressed tar stream.
	TarCompressionNone TarCompression = "none"
	// TarCompressionZstd wraps the tar stream with zstd compression.
	TarCompressionZstd TarCompression = "zstd"
)

// TarOptions configures WriteTar behavior.
type TarOptions struct {
	// ModTime is applied to every tar header; the archive format itself
	// stores no timestamps.
	ModTime time.Time `json:"mod_time,omitzero" yaml:"mod_time,omitzero"`
	// Filter defines ordered path rules matched against tar member paths
	// like "slp/412.slp"; nil exports everything.
	Filter []pathrules.Rule `json:"filter,omitempty" yaml:"filter,omitempty"`
	// FilterMatcherOptions control filter rule matching. Resources matching
	// no rule follow DefaultAction (include by default).
	FilterMatcherOptions pathrules.MatcherOptions `json:"filter_matcher_options,omitzero" yaml:"filter_matcher_options,omitzero"`
	// Types limits export to selected tables; nil means all tables.
	Types []TypeTag `json:"types,omitempty" yaml:"types,omitempty"`
	// Compression selects tar stream compression (default none).
	Compression TarCompression `json:"compression,omitempty" yaml:"compression,omitempty"`
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.DictionaryMode == "" {
		opts.DictionaryMode = DictionaryModeSequential
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FilterMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.FilterMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}

	if opts.FilterMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.FilterMatcherOptions.DefaultAction = pathrules.ActionInclude
	}
}

// applyDefaults fills zero-valued tar options with defaults.
func (opts *TarOptions) applyDefaults() {
	if opts.Compression == "" {
		opts.Compression = TarCompressionNone
	}

	// Epoch keeps tar output byte-reproducible; the source format has no timestamps.
	if opts.ModTime.IsZero() {
		opts.ModTime = time.Unix(0, 0)
	}

	if opts.FilterMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.FilterMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}

	if opts.FilterMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.FilterMatcherOptions.DefaultAction = pathrules.ActionInclude
	}
}
