package wkrd

import "bytes"

// ZoneState is the state of the record dispatch loop.
type ZoneState int

const (
	ZoneScanning ZoneState = iota
	ZoneDispatched
	ZoneEndOfSection
	ZoneAborted
)

var zoneStateNames = [...]string{"scanning", "dispatched", "end-of-section", "aborted"}

func (z ZoneState) String() string {
	if int(z) < len(zoneStateNames) {
		return zoneStateNames[z]
	}
	return "unknown"
}

// maxEndPadding caps the trailing bytes inspected by the end probe.
const maxEndPadding = 1 << 16

// runZone dispatches records until the end marker or a framing failure.
func (p *parser) runZone() (ZoneState, *FramingError) {
	p.transition(ZoneScanning, Record{Offset: p.s.Tell()})
	for {
		rec, ok := p.s.NextRecord()
		if !ok {
			if p.probeEnd() {
				p.transition(ZoneEndOfSection, Record{Offset: p.s.Tell()})
				return ZoneEndOfSection, nil
			}
			ferr := p.framingError()
			p.transition(ZoneAborted, Record{Offset: ferr.Offset})
			return ZoneAborted, ferr
		}
		p.doc.Stats.Records++

		if p.d.isEnd(rec) {
			if rec.Length != 0 {
				p.diag.report(DiagRecord, rec.Offset, "end marker with %d payload bytes", rec.Length)
			}
			if err := p.s.SeekTo(rec.PayloadEnd); err != nil {
				ferr := &FramingError{Offset: rec.Offset, Tag: rec.Tag, Subtype: rec.Subtype, Length: rec.Length, Message: err.Error()}
				p.transition(ZoneAborted, rec)
				return ZoneAborted, ferr
			}
			p.transition(ZoneEndOfSection, rec)
			return ZoneEndOfSection, nil
		}

		if h, found := p.d.handlers[rec.Key()]; found {
			if err := h(p, rec, p.s.Payload(rec)); err != nil {
				p.diag.report(DiagRecord, rec.Offset, "%s %s: %v", p.d.RecordName(rec.Key()), rec.Key(), err)
			}
		} else {
			p.doc.Stats.Unknown++
		}
		if err := p.s.SeekTo(rec.PayloadEnd); err != nil {
			ferr := &FramingError{Offset: rec.Offset, Tag: rec.Tag, Subtype: rec.Subtype, Length: rec.Length, Message: err.Error()}
			p.transition(ZoneAborted, rec)
			return ZoneAborted, ferr
		}
		p.transition(ZoneDispatched, rec)
		p.transition(ZoneScanning, Record{Offset: p.s.Tell()})
	}
}

// transition traces dispatched records at verbosity 2 with the cursor
// position the dispatcher left behind.
func (p *parser) transition(state ZoneState, rec Record) {
	if state == ZoneDispatched && p.verbosity >= 2 {
		name := p.d.RecordName(rec.Key())
		if name == "" {
			name = "?"
		}
		p.logf(2, "%8d: tag=0x%02x subtype=0x%02x len=%d next=%d %s\n",
			rec.Offset, rec.Tag, rec.Subtype, rec.Length, p.s.Tell(), name)
	}
}

func (p *parser) framingError() *FramingError {
	hdr, ok := p.s.PeekHeader()
	if !ok {
		return &FramingError{Offset: hdr.Offset, Message: "truncated record header"}
	}
	return &FramingError{
		Offset:  hdr.Offset,
		Tag:     hdr.Tag,
		Subtype: hdr.Subtype,
		Length:  hdr.Length,
		Message: "declared length runs past end of stream",
	}
}

// probeEnd accepts a clean end of stream, a short end marker missing its
// length field, and, where the dialect allows it, trailing zero padding.
// The remaining bytes are consumed on success.
func (p *parser) probeEnd() bool {
	rest := p.s.Remaining()
	if rest == 0 {
		return true
	}
	if rest > maxEndPadding {
		return false
	}
	start := p.s.Tell()
	tail, err := p.s.read(make([]byte, rest), start+rest)
	if err != nil {
		return false
	}
	if rest < headerSize && tail[0] == keyEOF.Tag && (rest < 2 || tail[1] == keyEOF.Subtype) {
		return true
	}
	if p.d.zeroPadding && len(bytes.Trim(tail, "\x00")) == 0 {
		return true
	}
	if err := p.s.SeekTo(start); err != nil {
		p.logf(1, "end probe: %v\n", err)
	}
	return false
}

// resync moves the cursor to where a new zone can start after a framing
// failure at offset from. Section boundaries win over scanning.
func (p *parser) resync(from int64) bool {
	for _, b := range p.boundaries {
		if b > from {
			if err := p.s.SeekTo(b); err != nil {
				return false
			}
			p.diag.report(DiagResync, b, "resuming at section boundary")
			return true
		}
	}
	if len(p.d.resyncKeys) == 0 {
		return false
	}
	end, err := p.s.Len()
	if err != nil || from+1 >= end {
		return false
	}
	buf := make([]byte, end-from-1)
	if _, err := p.s.ReadAt(buf, from+1); err != nil {
		return false
	}
	for i := 0; i+headerSize <= len(buf); i++ {
		key := RecordKey{Tag: buf[i], Subtype: buf[i+1]}
		if !p.d.resyncKeys[key] {
			continue
		}
		n := int(buf[i+2]) | int(buf[i+3])<<8
		if i+headerSize+n > len(buf) {
			continue
		}
		at := from + 1 + int64(i)
		if err := p.s.SeekTo(at); err != nil {
			return false
		}
		p.diag.report(DiagResync, at, "resuming at %s record", p.d.RecordName(key))
		return true
	}
	return false
}
