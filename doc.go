// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

/*
Package drs provides read-only access to DRS resource archives, the
container format used by Genie engine titles. A DRS file holds a fixed
64-byte header, a directory of typed resource tables, and per-table
dictionaries mapping numeric resource ids to absolute payload offsets.
The package parses all metadata up front and then serves payload reads
directly from the underlying source without caching.

Format notes (summary):
  - all integers are unsigned 32-bit little-endian;
  - resource payload offsets are absolute from the start of the stream;
  - type tags are stored in reverse of their human spelling ("bina" is
    stored as "anib"); lookups take stored tags, ParseTypeTag converts;
  - payloads are stored raw, the container defines no compression;
  - the format is read as data, payload content is never validated.

# Reading

Open a DRS archive and read one resource:

	a, err := drs.Open("interfac.drs")
	if err != nil {
	    return err
	}
	defer a.Close()

	tag, err := drs.ParseTypeTag("slp")
	if err != nil {
	    return err
	}
	data, err := a.ReadResource(tag, 50100)
	if err != nil {
	    return err
	}
	// use data

Every ReadResource call performs an independent read into a fresh buffer,
so repeated calls return equal content and never alias each other. Missing
tables and missing ids fail with ErrTableNotFound and ErrResourceNotFound;
short or unreadable streams fail with ErrTruncated or the underlying I/O
error. Use errors.Is to tell the two families apart.

Walk tables and dictionaries without touching payloads:

	for t := range a.Tables() {
	    for res := range t.Resources() {
	        fmt.Printf("%s/%d at %d (%d bytes)\n", t.Type, res.ID, res.Offset, res.Size)
	    }
	}

For metadata-only scans, use fast helpers without keeping an archive open:

	header, err := drs.ReadHeader("interfac.drs")
	if err != nil {
	    return err
	}
	tables, err := drs.ListTables("interfac.drs")
	if err != nil {
	    return err
	}
	_, _ = header, tables

# Dictionary modes

Well-formed archives store resource dictionaries contiguously after the
table directory, and each table descriptor also carries the absolute
offset of its dictionary. The default mode reads dictionaries
sequentially and ignores the stored offsets, which tolerates archives
whose descriptors lie about placement. Archives with rearranged
directories can opt into the stored offsets:

	a, err := drs.OpenWithOptions("interfac.drs", drs.ReaderOptions{
	    DictionaryMode: drs.DictionaryModeDeclared,
	})
	if err != nil {
	    return err
	}
	defer a.Close()

# Extracting

Extract resources to a directory laid out as "<tag>/<id>.<tag>"
(parallel workers); examples below use github.com/woozymasta/pathrules
for selection filters:

	err := a.Extract(ctx, "out/", drs.ExtractOptions{
	    MaxWorkers: 4,
	    Filter: []pathrules.Rule{
	        {Action: pathrules.ActionExclude, Pattern: "wav/**"},
	    },
	})

# Exporting

Stream the same layout into a tar archive, optionally zstd-compressed:

	f, err := os.Create("interfac.tar.zst")
	if err != nil {
	    return err
	}
	defer f.Close()

	err = a.WriteTar(ctx, f, drs.TarOptions{
	    Compression: drs.TarCompressionZstd,
	})
*/
package drs
