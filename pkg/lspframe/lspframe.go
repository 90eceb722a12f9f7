// Package lspframe implements the Content-Length framing used by the LSP base
// protocol, shared by the stdio transport on the editor side and the UDP
// transport on the sclang side.
//
// A frame consists of header lines terminated by CRLF, a blank line, and a
// body of exactly the byte count given by the Content-Length header.
package lspframe

import (
	"bytes"
	"fmt"
	"strconv"
)

// header is the length-prefix header key, including the colon.
const header = "Content-Length:"

// Format frames a body, prepending a Content-Length header and the blank-line
// separator.
func Format(body []byte) []byte {
	msg := make([]byte, 0, len(header)+len(body)+16)
	msg = append(msg, header...)
	msg = append(msg, ' ')
	msg = strconv.AppendInt(msg, int64(len(body)), 10)
	msg = append(msg, "\r\n\r\n"...)
	return append(msg, body...)
}

// Body returns the body of a framed message, or nil if the header separator
// cannot be found.
func Body(msg []byte) []byte {
	if i := bytes.Index(msg, []byte("\r\n\r\n")); i >= 0 {
		return msg[i+4:]
	}
	return nil
}

func parseContentLength(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Length header: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid Content-Length header: negative length %d", n)
	}
	return n, nil
}
