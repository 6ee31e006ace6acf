package main

import (
	"io"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/encoding"

	"github.com/yamitzky/wkrd-go/wkrd"
)

type quotingMode int

const (
	quotingNone quotingMode = iota
	quotingMinimal
	quotingNonNumeric
	quotingAll
)

var quotingModes = map[string]quotingMode{
	"none":       quotingNone,
	"minimal":    quotingMinimal,
	"nonnumeric": quotingNonNumeric,
	"all":        quotingAll,
}

// options is the resolved conversion setup: flags over config over defaults.
type options struct {
	dialect    *wkrd.Dialect
	codepage   string
	nativeTerm bool

	allSheets bool
	sheetID   int
	sheetName string
	filter    sheetFilter

	delimiter      rune
	lineTerminator string
	sheetDelimiter string
	quoting        quotingMode
	outputEncoding encoding.Encoding
	ignoreEmpty    bool
	escape         bool
	formulas       bool
	floatFormat    string
	nativeDates    bool
	dates          dateLayout

	xlsxPath  string
	dump      bool
	stats     bool
	warnings  bool
	verbosity int
	stderr    io.Writer
}

func parseOptions(c *cli.Context, cfg *config) (options, error) {
	var opts options
	var err error

	if name := stringOption(c, "dialect", cfg.Dialect); name != "" {
		if opts.dialect, err = wkrd.LookupDialect(name); err != nil {
			return opts, err
		}
	}
	opts.codepage = stringOption(c, "codepage", cfg.Codepage)
	if opts.codepage != "" && opts.codepage != wkrd.EncodingAuto {
		if _, err := wkrd.LookupEncoding(opts.codepage); err != nil {
			return opts, err
		}
	}
	opts.nativeTerm = c.Bool("native-term") || (!c.IsSet("native-term") && cfg.NativeTerm)

	if c.String("sheetname") != "" && (c.Bool("all") || c.Int("sheet") >= 0) {
		return opts, errors.New("cannot combine --sheetname with --sheet or --all")
	}
	opts.allSheets = c.Bool("all") || c.Int("sheet") == 0
	opts.sheetID = c.Int("sheet")
	opts.sheetName = c.String("sheetname")
	if opts.filter, err = newSheetFilter(c.StringSlice("include_sheet_pattern"), c.StringSlice("exclude_sheet_pattern")); err != nil {
		return opts, err
	}

	if outEnc := stringOption(c, "outputencoding", cfg.OutputEncoding); !isUTF8(outEnc) {
		if opts.outputEncoding, err = wkrd.LookupEncoding(outEnc); err != nil {
			return opts, errors.Wrap(err, "unsupported output encoding")
		}
	}

	if opts.delimiter, err = delimiterRune(stringOption(c, "delimiter", cfg.Delimiter)); err != nil {
		return opts, errors.Wrap(err, "invalid delimiter")
	}
	opts.lineTerminator = osLineSep()
	if lt := stringOption(c, "lineterminator", cfg.LineTerminator); lt != "" {
		if opts.lineTerminator, err = unescape(lt); err != nil {
			return opts, errors.Wrap(err, "invalid line terminator")
		}
	}
	sheetDelimiter := c.String("sheetdelimiter")
	if !c.IsSet("sheetdelimiter") && cfg.SheetDelimiter != nil {
		sheetDelimiter = *cfg.SheetDelimiter
	}
	if opts.sheetDelimiter, err = unescape(sheetDelimiter); err != nil {
		return opts, errors.Wrap(err, "invalid sheet delimiter")
	}
	quoting := strings.ToLower(stringOption(c, "quoting", cfg.Quoting))
	mode, ok := quotingModes[quoting]
	if !ok {
		return opts, errors.Errorf("invalid quoting %q, want one of %s", quoting, strings.Join(quotingNames(), ", "))
	}
	opts.quoting = mode

	switch dateFormat := stringOption(c, "dateformat", cfg.DateFormat); dateFormat {
	case "":
	case "native":
		opts.nativeDates = true
	default:
		if opts.dates, err = compileDateFormat(dateFormat); err != nil {
			return opts, errors.Wrap(err, "invalid date format")
		}
	}
	opts.floatFormat = stringOption(c, "floatformat", cfg.FloatFormat)
	opts.ignoreEmpty = c.Bool("ignoreempty")
	opts.escape = c.Bool("escape")
	opts.formulas = c.Bool("formulas")

	opts.xlsxPath = c.String("xlsx")
	opts.dump = c.Bool("dump")
	opts.stats = c.Bool("stats")
	opts.warnings = c.Bool("warnings")
	opts.verbosity = c.Int("verbose")
	return opts, nil
}

// stringOption returns the flag value when it was given on the command line
// or when the config has nothing for it.
func stringOption(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) || fromConfig == "" {
		return c.String(name)
	}
	return fromConfig
}

func isUTF8(name string) bool {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

func quotingNames() []string {
	names := make([]string, 0, len(quotingModes))
	for name := range quotingModes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func osLineSep() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

var (
	charNames = map[string]string{"tab": "\t", "ff": "\f"}
	hexByte   = regexp.MustCompile(`^x([0-9A-Fa-f]{2})$`)
)

// unescape decodes a separator: a character name, an xNN byte, or text with
// Go backslash escapes.
func unescape(value string) (string, error) {
	if s, ok := charNames[strings.ToLower(value)]; ok {
		return s, nil
	}
	if m := hexByte.FindStringSubmatch(value); m != nil {
		b, err := strconv.ParseUint(m[1], 16, 8)
		if err != nil {
			return "", err
		}
		return string([]byte{byte(b)}), nil
	}
	var out strings.Builder
	for rest := value; rest != ""; {
		r, multibyte, tail, err := strconv.UnquoteChar(rest, 0)
		if err != nil {
			return "", errors.Wrapf(err, "decode %q", value)
		}
		if multibyte {
			out.WriteRune(r)
		} else {
			out.WriteByte(byte(r))
		}
		rest = tail
	}
	return out.String(), nil
}

func delimiterRune(value string) (rune, error) {
	s, err := unescape(value)
	if err != nil {
		return 0, err
	}
	r, size := utf8.DecodeRuneInString(s)
	if s == "" || size != len(s) {
		return 0, errors.Errorf("%q is not a single character", value)
	}
	if r == utf8.RuneError {
		r = rune(s[0])
	}
	return r, nil
}

// sheetFilter selects sheets by name when converting all of them.
type sheetFilter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

func newSheetFilter(include, exclude []string) (sheetFilter, error) {
	var f sheetFilter
	var err error
	if f.include, err = compileEach(include); err != nil {
		return f, errors.Wrap(err, "invalid include pattern")
	}
	if f.exclude, err = compileEach(exclude); err != nil {
		return f, errors.Wrap(err, "invalid exclude pattern")
	}
	return f, nil
}

func compileEach(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		res[i] = re
	}
	return res, nil
}

func anyMatch(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (f sheetFilter) keep(name string) bool {
	if len(f.include) > 0 && !anyMatch(f.include, name) {
		return false
	}
	return !anyMatch(f.exclude, name)
}

// strftimeLayouts maps strftime directives to time layouts.
var strftimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'p': "PM",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
}

// dateLayout is a compiled strftime format. Literal text is kept apart from
// layouts so that digits in it are never read as layout elements.
type dateLayout []datePart

type datePart struct {
	text   string
	layout bool
}

func compileDateFormat(format string) (dateLayout, error) {
	var parts dateLayout
	literal := func(s string) {
		if n := len(parts); n > 0 && !parts[n-1].layout {
			parts[n-1].text += s
			return
		}
		parts = append(parts, datePart{text: s})
	}
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			literal(format[i : i+1])
			continue
		}
		i++
		if format[i] == '%' {
			literal("%")
			continue
		}
		layout, ok := strftimeLayouts[format[i]]
		if !ok {
			return nil, errors.Errorf("unknown directive %%%c", format[i])
		}
		parts = append(parts, datePart{text: layout, layout: true})
	}
	return parts, nil
}

func (l dateLayout) format(t time.Time) string {
	var b strings.Builder
	for _, p := range l {
		if p.layout {
			b.WriteString(t.Format(p.text))
		} else {
			b.WriteString(p.text)
		}
	}
	return b.String()
}
