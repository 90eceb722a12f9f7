package lspframe

import "bytes"

var headerEnd = []byte("\r\n\r\n")

// Reassembler reconstructs framed messages from a stream of UDP datagrams.
//
// Unlike the stdio reader, it cannot rely on line-oriented reads: a datagram
// may carry a fraction of a message, exactly one message, or several (the
// sending side chunks large messages, and the receiving socket may batch small
// ones). It therefore scans an accumulator buffer for the Content-Length
// token instead of reading header lines.
type Reassembler struct {
	buf []byte
	// Body length fixed by the last parsed header; -1 when no header has
	// been located yet.
	expected int
}

// NewReassembler returns a Reassembler with an empty accumulator.
func NewReassembler() *Reassembler {
	return &Reassembler{expected: -1}
}

// Feed appends the content of one datagram to the accumulator.
func (ra *Reassembler) Feed(p []byte) {
	ra.buf = append(ra.buf, p...)
}

// Next extracts the next complete message body from the accumulator. It
// returns false when more bytes are needed; callers should invoke it in a
// loop after each Feed, since one datagram may complete several messages.
func (ra *Reassembler) Next() ([]byte, bool) {
	if ra.expected < 0 {
		bodyStart, length, ok := scanHeader(ra.buf)
		if !ok {
			return nil, false
		}
		// Discard everything up through the header block.
		ra.buf = ra.buf[bodyStart:]
		ra.expected = length
	}
	if len(ra.buf) < ra.expected {
		return nil, false
	}
	body := make([]byte, ra.expected)
	copy(body, ra.buf)
	ra.buf = ra.buf[ra.expected:]
	ra.expected = -1
	return body, true
}

// scanHeader looks for a Content-Length header followed by a blank-line
// separator, returning the offset of the body and the parsed length.
func scanHeader(buf []byte) (bodyStart, length int, ok bool) {
	start := bytes.Index(buf, []byte(header))
	if start < 0 {
		return 0, 0, false
	}
	i := start + len(header)
	// Skip optional whitespace.
	for i < len(buf) && (buf[i] == ' ' || buf[i] == '\t') {
		i++
	}
	length = 0
	sawDigit := false
	for i < len(buf) && buf[i] >= '0' && buf[i] <= '9' {
		length = length*10 + int(buf[i]-'0')
		sawDigit = true
		i++
	}
	if !sawDigit {
		return 0, 0, false
	}
	// The header block must terminate with the blank-line separator before
	// the body starts.
	end := bytes.Index(buf[i:], headerEnd)
	if end < 0 {
		return 0, 0, false
	}
	return i + end + len(headerEnd), length, true
}
