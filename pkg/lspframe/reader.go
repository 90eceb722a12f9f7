package lspframe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingContentLength is returned by ReadMessage when the header block
// terminates without a Content-Length header.
var ErrMissingContentLength = errors.New("missing Content-Length header")

// ReadMessage reads one framed message from a line-oriented byte stream. It
// returns the raw message, headers included, so that it can be retransmitted
// byte for byte.
//
// At a clean end of stream, before any byte of a new message has been read,
// the error is io.EOF. An EOF in the middle of a header block or body is
// reported as an unrecoverable framing error wrapping io.ErrUnexpectedEOF.
func ReadMessage(r *bufio.Reader) ([]byte, error) {
	var raw bytes.Buffer
	contentLength := -1

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if raw.Len() == 0 && line == "" {
					return nil, io.EOF
				}
				return nil, fmt.Errorf("reading headers: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		raw.WriteString(line)

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		if value, ok := strings.CutPrefix(trimmed, header); ok {
			n, err := parseContentLength(strings.TrimSpace(value))
			if err != nil {
				return nil, err
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, ErrMissingContentLength
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading %d-byte body: %w", contentLength, err)
	}
	raw.Write(body)
	return raw.Bytes(), nil
}
