package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/yamitzky/wkrd-go/wkrd"
	"github.com/yamitzky/wkrd-go/xlsxsink"
)

const defaultSheetDelimiter = "--------"

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	app := &cli.App{
		Name:      "wks2csv",
		Usage:     "convert Lotus 1-2-3 and Quattro Pro spreadsheets to CSV",
		ArgsUsage: "infile [outfile]",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,

		HideHelpCommand:           true,
		DisableSliceFlagSeparator: true,
	}
	app.Description = `infile may be '-' to read from STDIN (requires --dialect). When infile is
a directory, every spreadsheet in it is converted to a .csv file in outfile,
or in the input directory when outfile is omitted.`

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML file with default options",
		},
		&cli.StringFlag{
			Name:    "dialect",
			Aliases: []string{"t"},
			Usage:   "input dialect: " + strings.Join(wkrd.Dialects(), ", ") + " (default: from the file extension)",
		},
		&cli.StringFlag{
			Name:  "codepage",
			Usage: "input code page, or 'auto' to guess it (default: dialect code page)",
		},
		&cli.BoolFlag{
			Name:  "native-term",
			Usage: "keep TERM and CTERM in formulas instead of rewriting them to NPER",
		},
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "export all sheets",
		},
		&cli.StringFlag{
			Name:    "outputencoding",
			Aliases: []string{"c"},
			Value:   "utf-8",
			Usage:   "encoding of output CSV",
		},
		&cli.IntFlag{
			Name:    "sheet",
			Aliases: []string{"s"},
			Value:   -1,
			Usage:   "sheet number to convert, 0 for all",
		},
		&cli.StringFlag{
			Name:    "sheetname",
			Aliases: []string{"n"},
			Usage:   "sheet name to convert",
		},
		&cli.StringFlag{
			Name:    "delimiter",
			Aliases: []string{"d"},
			Value:   ",",
			Usage:   "column delimiter in CSV, 'tab' or 'x09' for a tab",
		},
		&cli.StringFlag{
			Name:    "lineterminator",
			Aliases: []string{"l"},
			Usage:   `line terminator in CSV, '\n' '\r\n' or '\r' (default: os line separator)`,
		},
		&cli.StringFlag{
			Name:    "dateformat",
			Aliases: []string{"f"},
			Usage:   "override date/time format (ex. %Y/%m/%d), 'native' for the cell's own format",
		},
		&cli.StringFlag{
			Name:  "floatformat",
			Usage: "override float format (ex. %.15f)",
		},
		&cli.BoolFlag{
			Name:    "ignoreempty",
			Aliases: []string{"i"},
			Usage:   "skip empty lines",
		},
		&cli.BoolFlag{
			Name:    "escape",
			Aliases: []string{"e"},
			Usage:   `escape \r\n\t characters`,
		},
		&cli.StringFlag{
			Name:    "sheetdelimiter",
			Aliases: []string{"p"},
			Value:   defaultSheetDelimiter,
			Usage:   `sheet delimiter used to separate sheets, '' for none, 'x07' or '\f' for form feed`,
		},
		&cli.StringFlag{
			Name:    "quoting",
			Aliases: []string{"q"},
			Value:   "minimal",
			Usage:   "field quoting, 'none' 'minimal' 'nonnumeric' or 'all'",
		},
		&cli.StringSliceFlag{
			Name:    "include_sheet_pattern",
			Aliases: []string{"I"},
			Usage:   "only include sheets with names matching the pattern, with --all",
		},
		&cli.StringSliceFlag{
			Name:    "exclude_sheet_pattern",
			Aliases: []string{"E"},
			Usage:   "exclude sheets with names matching the pattern, with --all",
		},
		&cli.BoolFlag{
			Name:  "formulas",
			Usage: "write formula text instead of the stored result",
		},
		&cli.StringFlag{
			Name:  "xlsx",
			Usage: "write an xlsx workbook to `FILE` instead of CSV",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "dump every record in hex and characters",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "print parse statistics and record counts",
		},
		&cli.BoolFlag{
			Name:    "warnings",
			Aliases: []string{"w"},
			Usage:   "print parse diagnostics to STDERR",
		},
		&cli.IntFlag{
			Name:  "verbose",
			Usage: "trace level written to STDERR: 1 zones, 2 records, 3 formula stacks",
		},
	}

	app.OnUsageError = func(c *cli.Context, err error, _ bool) error {
		return cli.Exit(err.Error(), 2)
	}
	// errors are reported by run, never by os.Exit
	app.ExitErrHandler = func(*cli.Context, error) {}

	app.Action = func(c *cli.Context) error {
		return runConvert(c, stdin, stdout, stderr)
	}
	return app
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	err := app.Run(append([]string{app.Name}, args...))
	if err == nil {
		return 0
	}
	code := 1
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		code = exit.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(stderr, msg)
	}
	return code
}

func runConvert(c *cli.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return cli.Exit("", 2)
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	opts, err := parseOptions(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	opts.stderr = stderr

	inputPath := c.Args().Get(0)
	outputPath := c.Args().Get(1)

	if inputPath == "-" {
		if opts.dialect == nil {
			return cli.Exit("reading STDIN requires --dialect", 2)
		}
		content, err := io.ReadAll(stdin)
		if err != nil {
			return errors.Wrap(err, "failed to read stdin")
		}
		return convertFile("-", content, outputPath, opts, stdout)
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return convertDir(inputPath, outputPath, opts, stdout)
	}
	return convertFile(inputPath, nil, outputPath, opts, stdout)
}

// dialectFor returns the dialect named by opts, or the one registered under
// the file extension.
func dialectFor(path string, opts options) (*wkrd.Dialect, error) {
	if opts.dialect != nil {
		return opts.dialect, nil
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, errors.Errorf("cannot tell the dialect of %s, use --dialect", path)
	}
	d, err := wkrd.LookupDialect(ext)
	if err != nil {
		return nil, errors.Errorf("cannot tell the dialect of %s, use --dialect", path)
	}
	return d, nil
}

func convertDir(inputDir, outputDir string, opts options, stdout io.Writer) error {
	if outputDir == "" {
		outputDir = inputDir
	}
	info, err := os.Stat(outputDir)
	if err != nil {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return err
		}
	} else if !info.IsDir() {
		return errors.Errorf("output path is not a directory: %s", outputDir)
	}
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return err
	}
	found := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if opts.dialect == nil {
			if _, err := dialectFor(entry.Name(), opts); err != nil {
				continue
			}
		}
		found = true
		inputPath := filepath.Join(inputDir, entry.Name())
		outputPath := filepath.Join(outputDir, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))+".csv")
		if err := convertFile(inputPath, nil, outputPath, opts, stdout); err != nil {
			return err
		}
	}
	if !found {
		return errors.Errorf("no spreadsheets found in %s", inputDir)
	}
	return nil
}

// openStream reads the input and unwraps a compound document.
func openStream(inputPath string, content []byte, d *wkrd.Dialect) (io.ReadSeeker, int64, error) {
	if content == nil {
		var err error
		if content, err = os.ReadFile(inputPath); err != nil {
			return nil, 0, err
		}
	}
	if wkrd.IsCompoundDocument(content) {
		stream, err := wkrd.OpenNativeStream(bytes.NewReader(content), d)
		if err != nil {
			return nil, 0, errors.Wrap(err, inputPath)
		}
		return stream, int64(len(content)), nil
	}
	return bytes.NewReader(content), int64(len(content)), nil
}

func convertFile(inputPath string, content []byte, outputPath string, opts options, stdout io.Writer) error {
	d, err := dialectFor(inputPath, opts)
	if err != nil {
		return err
	}
	stream, size, err := openStream(inputPath, content, d)
	if err != nil {
		return err
	}

	if opts.dump {
		return withOutput(outputPath, stdout, nil, func(w io.Writer) error {
			return wkrd.Dump(stream, d, w, false)
		})
	}

	parseOpts := &wkrd.Options{
		Dialect:    d,
		Encoding:   opts.codepage,
		NativeTerm: opts.nativeTerm,
	}
	if opts.verbosity > 0 {
		parseOpts.Logfile = opts.stderr
		parseOpts.Verbosity = opts.verbosity
	}
	if opts.warnings {
		parseOpts.Diagnostics = wkrd.DiagnosticFunc(func(diag wkrd.Diagnostic) {
			fmt.Fprintf(opts.stderr, "%s: warning: %s\n", inputPath, diag)
		})
	}
	doc, err := wkrd.Parse(stream, parseOpts)
	if err != nil {
		return errors.Wrap(err, inputPath)
	}

	if opts.stats {
		if _, err := stream.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return withOutput(outputPath, stdout, nil, func(w io.Writer) error {
			return writeStats(w, inputPath, size, doc, stream, d)
		})
	}

	if opts.xlsxPath != "" {
		xw, err := xlsxsink.Convert(doc)
		if err != nil {
			return err
		}
		defer xw.Close()
		if opts.warnings {
			for _, msg := range xw.Skipped() {
				fmt.Fprintf(opts.stderr, "%s: warning: xlsx: %s\n", inputPath, msg)
			}
		}
		return xw.Save(opts.xlsxPath)
	}

	sheets, err := selectSheets(doc, opts)
	if err != nil {
		return err
	}

	if opts.sheetID == 0 && outputPath != "" {
		info, err := os.Stat(outputPath)
		if err != nil {
			if err := os.MkdirAll(outputPath, 0o755); err != nil {
				return err
			}
		} else if !info.IsDir() {
			return errors.New("outfile must be a directory when -s 0 is specified")
		}
	}

	info, err := os.Stat(outputPath)
	if outputPath != "" && err == nil && info.IsDir() {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		for _, sh := range sheets {
			fullPath := filepath.Join(outputPath, base+"-"+xlsxsink.SheetName(strings.TrimSpace(sh.Name))+".csv")
			err := withOutput(fullPath, stdout, opts.outputEncoding, func(w io.Writer) error {
				return writeSheets(w, doc, []*wkrd.Sheet{sh}, opts)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	return withOutput(outputPath, stdout, opts.outputEncoding, func(w io.Writer) error {
		return writeSheets(w, doc, sheets, opts)
	})
}

// withOutput runs fn against a buffered writer on path, or on stdout when
// path is empty, encoding the text with enc when it is not nil.
func withOutput(path string, stdout io.Writer, enc encoding.Encoding, fn func(w io.Writer) error) error {
	out := stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	buffered := bufio.NewWriter(out)
	var w io.Writer = buffered
	var encoder *transform.Writer
	if enc != nil {
		encoder = transform.NewWriter(buffered, encoding.ReplaceUnsupported(enc.NewEncoder()))
		w = encoder
	}
	if err := fn(w); err != nil {
		return err
	}
	if encoder != nil {
		if err := encoder.Close(); err != nil {
			return err
		}
	}
	return buffered.Flush()
}

func writeStats(w io.Writer, inputPath string, size int64, doc *wkrd.Document, stream io.ReadSeeker, d *wkrd.Dialect) error {
	cells := 0
	for _, sh := range doc.Sheets {
		cells += sh.NCells()
	}
	fmt.Fprintf(w, "file:        %s (%s)\n", inputPath, humanize.Bytes(uint64(size)))
	fmt.Fprintf(w, "dialect:     %s, %s, version 0x%04x\n", d.Name, d.Description, doc.Version)
	fmt.Fprintf(w, "sheets:      %s\n", humanize.Comma(int64(len(doc.Sheets))))
	fmt.Fprintf(w, "cells:       %s\n", humanize.Comma(int64(cells)))
	fmt.Fprintf(w, "styles:      %s\n", humanize.Comma(int64(len(doc.Styles))))
	fmt.Fprintf(w, "records:     %s (%s unknown)\n", humanize.Comma(int64(doc.Stats.Records)), humanize.Comma(int64(doc.Stats.Unknown)))
	fmt.Fprintf(w, "aborted:     %s\n", humanize.Comma(int64(doc.Stats.Aborted)))
	fmt.Fprintf(w, "diagnostics: %s\n", humanize.Comma(int64(len(doc.Diagnostics))))
	fmt.Fprintln(w)
	return wkrd.CountRecords(stream, d, w)
}

func selectSheets(doc *wkrd.Document, opts options) ([]*wkrd.Sheet, error) {
	if opts.sheetName != "" {
		sh, err := doc.SheetByName(opts.sheetName)
		if err != nil {
			return nil, errors.Errorf("sheet %s not found", opts.sheetName)
		}
		return []*wkrd.Sheet{sh}, nil
	}

	if opts.allSheets {
		var sheets []*wkrd.Sheet
		for _, sh := range doc.Sheets {
			if opts.filter.keep(sh.Name) {
				sheets = append(sheets, sh)
			}
		}
		if len(sheets) == 0 {
			return nil, errors.New("no sheets matched selection")
		}
		return sheets, nil
	}

	if opts.sheetID > 0 {
		sh, err := doc.SheetByIndex(opts.sheetID - 1)
		if err != nil {
			return nil, errors.Errorf("sheet index %d out of range", opts.sheetID)
		}
		return []*wkrd.Sheet{sh}, nil
	}

	if len(doc.Sheets) == 0 {
		return nil, errors.New("no sheets found")
	}
	return doc.Sheets[:1], nil
}
