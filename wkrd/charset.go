package wkrd

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// EncodingAuto asks the parser to guess the code page from label text.
const EncodingAuto = "auto"

// maxSample caps the label bytes collected for detection.
const maxSample = 4096

// DOS code pages are missing from the WHATWG index.
var dosCodePages = map[string]encoding.Encoding{
	"cp437":  charmap.CodePage437,
	"ibm437": charmap.CodePage437,
	"437":    charmap.CodePage437,
	"cp850":  charmap.CodePage850,
	"ibm850": charmap.CodePage850,
	"850":    charmap.CodePage850,
	"cp852":  charmap.CodePage852,
	"cp865":  charmap.CodePage865,
	"cp866":  charmap.CodePage866,
}

// LookupEncoding resolves an encoding label.
func LookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if enc, ok := dosCodePages[key]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %q", name)
	}
	return enc, nil
}

// DetectEncoding guesses the encoding of sample. It returns fallback when
// the sample is plain ASCII or nothing is detected with a usable label.
func DetectEncoding(sample []byte, fallback encoding.Encoding) encoding.Encoding {
	if len(sample) == 0 || isASCII(sample) {
		return fallback
	}
	if utf8.Valid(sample) {
		return encoding.Nop
	}
	content := sample
	if len(content) < 1024 {
		// chardet needs some volume to settle on a result
		times := 1024/len(content) + 1
		content = make([]byte, 0, times*len(sample))
		for i := 0; i < times; i++ {
			content = append(content, sample...)
		}
	}
	res, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || res == nil {
		return fallback
	}
	enc, err := LookupEncoding(res.Charset)
	if err != nil {
		return fallback
	}
	return enc
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func decodeText(enc encoding.Encoding, raw []byte) string {
	if enc == nil || enc == encoding.Nop {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}
