package wkrd

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/richardlehane/mscfb"
)

// Section is one byte range of an underlying source.
type Section struct {
	Offset int64
	Length int64
}

// MultiRangeReader presents several byte ranges of one source as a single
// contiguous stream.
type MultiRangeReader struct {
	r        io.ReaderAt
	sections []Section
	starts   []int64
	size     int64
	pos      int64
}

// NewMultiRangeReader returns a reader over the concatenation of sections.
func NewMultiRangeReader(r io.ReaderAt, sections []Section) *MultiRangeReader {
	m := &MultiRangeReader{r: r}
	for _, sec := range sections {
		if sec.Length <= 0 {
			continue
		}
		m.sections = append(m.sections, sec)
		m.starts = append(m.starts, m.size)
		m.size += sec.Length
	}
	return m
}

// Boundaries returns the logical offsets where each section after the first
// starts.
func (m *MultiRangeReader) Boundaries() []int64 {
	if len(m.starts) < 2 {
		return nil
	}
	return append([]int64(nil), m.starts[1:]...)
}

// Size returns the logical length.
func (m *MultiRangeReader) Size() int64 {
	return m.size
}

// Read implements io.Reader.
func (m *MultiRangeReader) Read(p []byte) (int, error) {
	n, err := m.ReadAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

// ReadAt implements io.ReaderAt.
func (m *MultiRangeReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= m.size {
		return 0, io.EOF
	}
	total := 0
	for i, sec := range m.sections {
		start := m.starts[i]
		if off >= start+sec.Length {
			continue
		}
		for len(p) > 0 && off < start+sec.Length {
			rel := off - start
			chunk := p
			if rest := sec.Length - rel; int64(len(chunk)) > rest {
				chunk = chunk[:rest]
			}
			n, err := m.r.ReadAt(chunk, sec.Offset+rel)
			total += n
			off += int64(n)
			p = p[n:]
			if err != nil && !(err == io.EOF && n == len(chunk)) {
				return total, err
			}
			if n == 0 {
				return total, io.ErrNoProgress
			}
		}
		if len(p) == 0 {
			return total, nil
		}
	}
	return total, io.EOF
}

// Seek implements io.Seeker.
func (m *MultiRangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = m.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = abs
	return abs, nil
}

// OpenNativeStream extracts the dialect's native stream from a compound
// document.
func OpenNativeStream(r io.ReaderAt, d *Dialect) (io.ReadSeeker, error) {
	if len(d.oleStreams) == 0 {
		return nil, errors.Wrapf(ErrNoStream, "%s files are not stored in compound documents", d.Name)
	}
	doc, err := mscfb.New(r)
	if err != nil {
		return nil, errors.Wrap(err, "compound document")
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !wantStream(entry.Name, d.oleStreams) {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, errors.Wrapf(err, "read stream %s", entry.Name)
		}
		return bytes.NewReader(buf), nil
	}
	return nil, errors.Wrapf(ErrNoStream, "want %v", d.oleStreams)
}

func wantStream(name string, names []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
