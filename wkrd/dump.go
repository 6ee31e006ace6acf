package wkrd

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// HexCharDump writes data[ofs:ofs+dlen] as lines of 16 hex bytes followed
// by their characters. NUL shows as "~" and other control or high bytes as
// "?". base is added to the printed offsets; unnumbered omits them.
func HexCharDump(data []byte, ofs, dlen int, base int64, w io.Writer, unnumbered bool) {
	end := ofs + dlen
	if end > len(data) {
		end = len(data)
	}
	for pos := ofs; pos < end; pos += 16 {
		stop := pos + 16
		if stop > end {
			stop = end
		}
		chunk := data[pos:stop]
		hexs := make([]string, len(chunk))
		var chars strings.Builder
		for i, c := range chunk {
			hexs[i] = fmt.Sprintf("%02x", c)
			switch {
			case c == 0:
				chars.WriteByte('~')
			case c < 0x20 || c > 0x7E:
				chars.WriteByte('?')
			default:
				chars.WriteByte(c)
			}
		}
		if unnumbered {
			fmt.Fprintf(w, "     %-48s %s\n", strings.Join(hexs, " "), chars.String())
		} else {
			fmt.Fprintf(w, "%5x: %-48s %s\n", base+int64(pos), strings.Join(hexs, " "), chars.String())
		}
	}
}

// Dump writes every record of the stream with its header and payload in
// char and hex form, for debugging.
func Dump(r io.ReadSeeker, d *Dialect, w io.Writer, unnumbered bool) error {
	s, err := NewStream(r)
	if err != nil {
		return err
	}
	for {
		rec, ok := s.NextRecord()
		if !ok {
			break
		}
		name := d.RecordName(rec.Key())
		if name == "" {
			name = "?"
		}
		if unnumbered {
			fmt.Fprintf(w, "\n%s len = %d (%s)\n", rec.Key(), rec.Length, name)
		} else {
			fmt.Fprintf(w, "\n%d: %s len = %d (%s)\n", rec.Offset, rec.Key(), rec.Length, name)
		}
		payload, err := s.Payload(rec).Bytes(int(rec.Length))
		if err != nil {
			return err
		}
		HexCharDump(payload, 0, len(payload), rec.PayloadStart, w, unnumbered)
		if rec.Key() == keyEOF {
			break
		}
	}
	if rest := s.Remaining(); rest > 0 {
		fmt.Fprintf(w, "\n%d trailing bytes at %d\n", rest, s.Tell())
	}
	return nil
}

// CountRecords writes a sorted summary of record names and counts.
func CountRecords(r io.ReadSeeker, d *Dialect, w io.Writer) error {
	s, err := NewStream(r)
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for {
		rec, ok := s.NextRecord()
		if !ok {
			break
		}
		name := d.RecordName(rec.Key())
		if name == "" {
			name = "UNKNOWN " + rec.Key().String()
		}
		counts[name]++
		if err := s.SeekTo(rec.PayloadEnd); err != nil {
			return err
		}
		if rec.Key() == keyEOF {
			break
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%8d %s\n", counts[name], name)
	}
	return nil
}
