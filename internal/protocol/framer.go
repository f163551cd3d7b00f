package protocol

import "bytes"

// Framer splits a raw byte stream into newline-terminated protocol lines.
// Feed it chunks as they arrive from the transport; Next pops one complete
// line at a time and leaves any trailing partial line buffered for the next
// read.  Lines that are blank after trimming are discarded silently — they
// are not protocol errors.
//
// Framer is not safe for concurrent use; each connection's read loop owns
// its own instance.
type Framer struct {
	buf []byte
}

// Feed appends a chunk of raw bytes to the internal buffer.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the next complete line without its terminator, or ok=false
// when no full line is buffered.  The returned slice is a copy; it stays
// valid across subsequent Feed calls.
func (f *Framer) Next() (line []byte, ok bool) {
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return nil, false
		}
		raw := f.buf[:i]
		f.buf = f.buf[i+1:]
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, true
	}
}

// Pending reports how many bytes of an unterminated line are buffered.
func (f *Framer) Pending() int {
	return len(f.buf)
}
