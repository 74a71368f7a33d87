// ABOUTME: Suspendable read buffer for the incremental framing engine
// ABOUTME: Pull-based view protocol over a growing, possibly-truncated input
package streambuf

// Buffer is the single shared read primitive every codec parser pulls
// from. It owns the raw bytes; parsers only ever see zero-copy views into
// it and only Advance may shrink it. There is no goroutine here - the
// "suspension" described for the read coroutine is realized as callers
// checking the bool return of View and giving up for this push when it is
// false, which is the state-machine rendering the design notes call for.
type Buffer struct {
	data         []byte
	pos          int64 // currentReadPosition: cumulative bytes advanced past
	totalBytesIn int64
	flushing     bool
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds a newly pushed chunk to the buffer and counts it toward
// totalBytesIn. The host calls this once per push; it never happens while
// a parser holds a view across a push because parsing runs to exhaustion
// between pushes.
func (b *Buffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.data = append(b.data, chunk...)
	b.totalBytesIn += int64(len(chunk))
}

// SetFlushing marks the stream as final. Once set, View never blocks on
// insufficient data again - it returns whatever prefix exists.
func (b *Buffer) SetFlushing() {
	b.flushing = true
}

// Flushing reports whether SetFlushing has been called.
func (b *Buffer) Flushing() bool {
	return b.flushing
}

// Len returns the number of unconsumed bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.data)
}

// TotalBytesIn returns the cumulative number of bytes ever appended.
func (b *Buffer) TotalBytesIn() int64 {
	return b.totalBytesIn
}

// Pos returns currentReadPosition: the cumulative count of bytes this
// buffer has advanced past.
func (b *Buffer) Pos() int64 {
	return b.pos
}

// View is the readRawData(minBytes, offset) primitive. It returns the
// subview of the buffer starting at offset when enough bytes are
// available (more than minBytes+offset), or when flushing (in which case
// whatever prefix exists from offset onward is returned, possibly shorter
// than minBytes, possibly empty). The second return is false only when
// more input must be pushed before this call can be retried.
func (b *Buffer) View(offset, minBytes int) ([]byte, bool) {
	if offset < 0 {
		return nil, false
	}
	if offset > len(b.data) {
		if b.flushing {
			return nil, true
		}
		return nil, false
	}
	if len(b.data) > minBytes+offset {
		return b.data[offset:], true
	}
	if b.flushing {
		return b.data[offset:], true
	}
	return nil, false
}

// Advance drops the first n bytes from the buffer and adds n to the
// cumulative read position. Any view previously returned by View is
// invalidated by this call.
func (b *Buffer) Advance(n int) {
	if n <= 0 {
		return
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	b.data = b.data[n:]
	b.pos += int64(n)
}
