// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

// Command drs inspects and unpacks DRS resource archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/pathrules"
	"golang.org/x/sync/errgroup"

	"github.com/woozymasta/drs"
)

const usageText = `Usage: drs <command> [options] <args>

Commands:
  info     show archive header and table summary
  list     list resources as "tag id offset size" lines
  cat      write one resource payload to stdout
  extract  extract resources into a directory tree
  tar      export resources as a tar stream

Run "drs <command> -h" for command options.
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "tar":
		err = runTar(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usageText)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

// stringList collects repeatable string flags in given order.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// ruleFlag appends one selection rule per flag occurrence, preserving the
// interleaved order of -include and -exclude on the command line.
type ruleFlag struct {
	list    *[]pathrules.Rule
	include bool
}

func (f ruleFlag) String() string {
	return ""
}

func (f ruleFlag) Set(v string) error {
	rule := pathrules.Rule{Action: pathrules.ActionExclude, Pattern: v}
	if f.include {
		rule.Action = pathrules.ActionInclude
	}

	*f.list = append(*f.list, rule)
	return nil
}

// readerOptions maps the -declared flag to reader options.
func readerOptions(declared bool) drs.ReaderOptions {
	if declared {
		return drs.ReaderOptions{DictionaryMode: drs.DictionaryModeDeclared}
	}

	return drs.ReaderOptions{}
}

// matcherOptions picks a default action for selection rules: rule sets
// with at least one include act as allow-lists, exclude-only sets keep
// everything not excluded.
func matcherOptions(rules []pathrules.Rule) pathrules.MatcherOptions {
	action := pathrules.ActionInclude
	for _, r := range rules {
		if r.Action == pathrules.ActionInclude {
			action = pathrules.ActionExclude
			break
		}
	}

	return pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   action,
	}
}

// resolveTags maps tag spellings from the command line to stored tags
// present in the archive.
func resolveTags(a *drs.Archive, names []string) ([]drs.TypeTag, error) {
	tags := make([]drs.TypeTag, 0, len(names))
	for _, name := range names {
		tag, err := resolveTag(a, name)
		if err != nil {
			return nil, err
		}

		tags = append(tags, tag)
	}

	return tags, nil
}

// resolveTag finds the archive table whose tag matches a human spelling:
// the reversed display form, a raw stored form padded with NUL or space,
// or the lowercase directory name.
func resolveTag(a *drs.Archive, name string) (drs.TypeTag, error) {
	var candidates []drs.TypeTag

	if parsed, err := drs.ParseTypeTag(name); err == nil {
		candidates = append(candidates, parsed)
	}

	if len(name) > 0 && len(name) <= 4 {
		var nulPadded, spacePadded drs.TypeTag
		copy(nulPadded[:], name)
		for i := range spacePadded {
			spacePadded[i] = ' '
		}
		copy(spacePadded[:], name)
		candidates = append(candidates, nulPadded, spacePadded)
	}

	for _, tag := range candidates {
		if _, err := a.Table(tag); err == nil {
			return tag, nil
		}
	}

	lower := strings.ToLower(name)
	for t := range a.Tables() {
		if t.Type.DirName() == lower {
			return t.Type, nil
		}
	}

	available := make([]string, 0, 8)
	for t := range a.Tables() {
		available = append(available, t.Type.String())
	}

	return drs.TypeTag{}, fmt.Errorf("no table matches %q (archive has: %s)", name, strings.Join(available, ", "))
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	declared := fs.Bool("declared", false, "resolve dictionaries via stored table offsets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("info: at least one archive path required")
	}

	opts := readerOptions(*declared)
	for _, path := range fs.Args() {
		a, err := drs.OpenWithOptions(path, opts)
		if err != nil {
			return err
		}

		header := a.Header()
		fmt.Printf("archive: %s\n", path)
		fmt.Printf("  banner:   %s\n", header.BannerString())
		fmt.Printf("  version:  %s\n", header.VersionString())
		fmt.Printf("  password: %s\n", header.PasswordString())
		fmt.Printf("  tables:   %d (directory %d bytes)\n", header.NumTypes, header.DirectorySize)

		for t := range a.Tables() {
			fmt.Printf("  table %-8s %6d resources (dictionary at %d)\n", t.Type, t.Len(), t.Offset)
		}

		if err := a.Close(); err != nil {
			return err
		}
	}

	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	declared := fs.Bool("declared", false, "resolve dictionaries via stored table offsets")
	typeName := fs.String("type", "", "limit listing to one table tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("list: exactly one archive path required")
	}

	a, err := drs.OpenWithOptions(fs.Arg(0), readerOptions(*declared))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if *typeName != "" {
		tag, err := resolveTag(a, *typeName)
		if err != nil {
			return err
		}

		t, err := a.Table(tag)
		if err != nil {
			return err
		}

		listTable(t)
		return nil
	}

	for t := range a.Tables() {
		listTable(t)
	}

	return nil
}

func listTable(t drs.Table) {
	for res := range t.Resources() {
		fmt.Printf("%s\t%d\t%d\t%d\n", t.Type, res.ID, res.Offset, res.Size)
	}
}

func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	declared := fs.Bool("declared", false, "resolve dictionaries via stored table offsets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 3 {
		return errors.New("cat: expected <archive> <tag> <id>")
	}

	id, err := strconv.ParseUint(fs.Arg(2), 10, 32)
	if err != nil {
		return fmt.Errorf("cat: bad resource id %q: %w", fs.Arg(2), err)
	}

	a, err := drs.OpenWithOptions(fs.Arg(0), readerOptions(*declared))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	tag, err := resolveTag(a, fs.Arg(1))
	if err != nil {
		return err
	}

	data, err := a.ReadResource(tag, uint32(id))
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	return err
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	declared := fs.Bool("declared", false, "resolve dictionaries via stored table offsets")
	out := fs.String("out", ".", "output directory")
	workers := fs.Int("workers", 0, "extraction workers per archive (0 = GOMAXPROCS)")
	verbose := fs.Bool("v", false, "print each written file")

	var types stringList
	fs.Var(&types, "type", "limit to table tag (repeatable)")

	var rules []pathrules.Rule
	fs.Var(ruleFlag{list: &rules, include: true}, "include", "include glob like slp/** (repeatable)")
	fs.Var(ruleFlag{list: &rules}, "exclude", "exclude glob like wav/** (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("extract: at least one archive path required")
	}

	multi := fs.NArg() > 1
	eg, ctx := errgroup.WithContext(context.Background())

	for _, path := range fs.Args() {
		dest := *out
		if multi {
			dest = filepath.Join(*out, archiveBaseName(path))
		}

		eg.Go(func() error {
			return extractOne(ctx, path, dest, readerOptions(*declared), types, rules, *workers, *verbose)
		})
	}

	return eg.Wait()
}

func extractOne(
	ctx context.Context,
	path, dest string,
	readerOpts drs.ReaderOptions,
	typeNames []string,
	rules []pathrules.Rule,
	workers int,
	verbose bool,
) error {
	a, err := drs.OpenWithOptions(path, readerOpts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	tags, err := resolveTags(a, typeNames)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	opts := drs.ExtractOptions{
		Types:                tags,
		Filter:               rules,
		FilterMatcherOptions: matcherOptions(rules),
		MaxWorkers:           workers,
	}
	if verbose {
		opts.OnResourceDone = func(_ drs.TypeTag, _ drs.Resource, outputPath string) {
			log.Printf("wrote %s", outputPath)
		}
	}

	if err := a.Extract(ctx, dest, opts); err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	return nil
}

// archiveBaseName strips directory and extension from an archive path.
func archiveBaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runTar(args []string) error {
	fs := flag.NewFlagSet("tar", flag.ExitOnError)
	declared := fs.Bool("declared", false, "resolve dictionaries via stored table offsets")
	out := fs.String("o", "", "output file (default stdout)")
	useZstd := fs.Bool("zstd", false, "compress the tar stream with zstd")

	var types stringList
	fs.Var(&types, "type", "limit to table tag (repeatable)")

	var rules []pathrules.Rule
	fs.Var(ruleFlag{list: &rules, include: true}, "include", "include glob like slp/** (repeatable)")
	fs.Var(ruleFlag{list: &rules}, "exclude", "exclude glob like wav/** (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("tar: exactly one archive path required")
	}

	a, err := drs.OpenWithOptions(fs.Arg(0), readerOptions(*declared))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	tags, err := resolveTags(a, types)
	if err != nil {
		return err
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer func() { _ = f.Close() }()
		dst = f
	}

	compression := drs.TarCompressionNone
	if *useZstd {
		compression = drs.TarCompressionZstd
	}

	return a.WriteTar(context.Background(), dst, drs.TarOptions{
		Types:                tags,
		Filter:               rules,
		FilterMatcherOptions: matcherOptions(rules),
		Compression:          compression,
	})
}
