// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sam-fredrickson/suffixmerge"
	"github.com/sam-fredrickson/suffixmerge/codec"
)

var version = "dev"

func main() {
	var failed bool
	defer func() {
		if failed {
			os.Exit(1)
		}
	}()

	program := os.Args[0]
	var outputPath string
	var outputFormat format
	var colors colorMode
	var showDiff, showPatch, strict, showVersion bool

	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "usage: %s [flags] FILE...\n\n", program)
		fmt.Fprintf(out, "Merges JSON, YAML and TOML documents. Later files take precedence.\n")
		fmt.Fprintf(out, "Key suffixes in later files control how each key is applied:\n")
		fmt.Fprintf(out, "  key!          replace the earlier value instead of merging into it\n")
		fmt.Fprintf(out, "  key--         remove the earlier value\n")
		fmt.Fprintf(out, "  key-history   append the value to the earlier one\n\n")
		fmt.Fprintf(out, "Example:\n")
		fmt.Fprintf(out, "  # merge env-specific overlay into common base\n")
		fmt.Fprintf(out, "  %s -out config.yaml base.yaml env.yaml\n\n", program)
		fmt.Fprintf(out, "  # show what the overlays change\n")
		fmt.Fprintf(out, "  %s -diff base.yaml prod.yaml env.yaml\n\n", program)
		fmt.Fprintf(out, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.StringVar(&outputPath, "out", "", "output file path (defaults to stdout)")
	flag.Var(&outputFormat, "format", `output format [json, yaml, toml] (defaults to first file's format)`)
	flag.BoolVar(&showDiff, "diff", false, "print a line diff from the first file to the result")
	flag.BoolVar(&showPatch, "patch", false, "print a JSON merge patch (RFC 7386) from the first file to the result")
	flag.BoolVar(&strict, "strict", false, "fail when an object has several keys for one canonical key")
	flag.Var(&colors, "color", `colorize output [auto, always, never] (default "auto")`)
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	fail := func(err error) {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, err)
		failed = true
	}

	mode := modeMerge
	switch {
	case showDiff && showPatch:
		fail(errors.New("-diff and -patch cannot be used together"))
		return
	case showDiff:
		mode = modeDiff
	case showPatch:
		mode = modePatch
	}

	var output io.Writer
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			fail(err)
			return
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}
	colors.apply(output)

	err := Run(flag.Args(), outputFormat, mode, strict, output, os.Stderr)
	if err != nil {
		fail(err)
		_, _ = fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE...\n", program)
		return
	}
}

type outputMode int

const (
	modeMerge outputMode = iota
	modeDiff
	modePatch
)

// Run merges files and writes the result to output in the requested mode.
// Key collision warnings go to diagnostics unless strict makes them errors.
func Run(
	files []string,
	outputFormat format,
	mode outputMode,
	strict bool,
	output io.Writer,
	diagnostics io.Writer,
) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to merge")
	}

	docs := make([]suffixmerge.Value, 0, len(files))
	for i, file := range files {
		doc, fileFormat, err := readFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if collisions := suffixmerge.FindKeyCollisions(doc); len(collisions) > 0 {
			if strict {
				return fmt.Errorf("%s: %w", file, &suffixmerge.KeyCollisionError{
					DocIndex:   i,
					Collisions: collisions,
				})
			}
			warn := color.New(color.FgYellow)
			for _, c := range collisions {
				_, _ = warn.Fprintf(diagnostics, "warning: %s: %s\n", file, c)
			}
		}
		docs = append(docs, doc)
		if outputFormat == "" {
			outputFormat = format(fileFormat)
		}
	}

	merged, err := suffixmerge.Merge(docs...)
	if err != nil {
		return fmt.Errorf("merge failed while processing files %v: %w", files, err)
	}

	switch mode {
	case modeDiff:
		return writeDiff(output, outputFormat, docs[0], merged)
	case modePatch:
		return writePatch(output, docs[0], merged)
	default:
		marshaled, err := outputFormat.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal result as %s: %w", outputFormat, err)
		}
		if _, err := output.Write(marshaled); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
}

func readFile(file string) (suffixmerge.Value, codec.Format, error) {
	f, err := codec.FormatOf(file)
	if err != nil {
		return nil, "", err
	}
	contents, err := os.ReadFile(file)
	if err != nil {
		return nil, "", err
	}
	doc, err := codec.Decode(f, contents)
	if err != nil {
		return nil, "", err
	}
	return doc, f, nil
}

// writeDiff writes a line diff between base and merged, both rendered in f.
func writeDiff(w io.Writer, f format, base, merged suffixmerge.Value) error {
	before, err := f.Marshal(base)
	if err != nil {
		return fmt.Errorf("failed to marshal first file as %s: %w", f, err)
	}
	after, err := f.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal result as %s: %w", f, err)
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				_, err = added.Fprintf(w, "+%s\n", line)
			case diffmatchpatch.DiffDelete:
				_, err = removed.Fprintf(w, "-%s\n", line)
			default:
				_, err = fmt.Fprintf(w, " %s\n", line)
			}
			if err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// writePatch writes the JSON merge patch that turns base into merged.
func writePatch(w io.Writer, base, merged suffixmerge.Value) error {
	before, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("failed to marshal first file: %w", err)
	}
	after, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return fmt.Errorf("failed to create merge patch: %w", err)
	}
	if _, err := w.Write(append(patch, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

type format codec.Format

func (f *format) String() string {
	return string(*f)
}

func (f *format) Set(value string) error {
	parsed, err := codec.ParseFormat(value)
	if err != nil {
		return err
	}
	*f = format(parsed)
	return nil
}

func (f *format) Marshal(doc suffixmerge.Value) ([]byte, error) {
	return codec.Encode(codec.Format(*f), doc)
}

type colorMode string

func (c *colorMode) String() string {
	return string(*c)
}

func (c *colorMode) Set(value string) error {
	switch value {
	case "auto", "always", "never":
		*c = colorMode(value)
		return nil
	default:
		return fmt.Errorf("color mode %q is invalid", value)
	}
}

// apply configures colored output; "auto" colors only when w is a terminal.
func (c *colorMode) apply(w io.Writer) {
	switch *c {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(w)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
