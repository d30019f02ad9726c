// Package sse decodes the line-oriented "data: ..." event framing used by
// streaming LLM endpoints.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxLineSize bounds a single event line.
const MaxLineSize = 1 << 20

const readBufferSize = 32 * 1024

// ErrLineTooLong is returned when a line exceeds MaxLineSize.
var ErrLineTooLong = errors.New("sse: line too long")

// Reader yields complete lines from an upstream body. Bytes are decoded as
// UTF-8 incrementally, so a multi-byte sequence split across reads is joined
// before it reaches a line. Text after the last terminator is kept as residual
// until the next read completes it.
type Reader struct {
	br   *bufio.Reader
	max  int
	line []byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	dec := transform.NewReader(r, unicode.UTF8.NewDecoder())
	return &Reader{br: bufio.NewReaderSize(dec, readBufferSize), max: MaxLineSize}
}

// ReadLine returns the next line without its "\n" or "\r\n" terminator. At EOF
// a non-empty residual is returned once as the final line; after that ReadLine
// returns io.EOF.
func (r *Reader) ReadLine() (string, error) {
	r.line = r.line[:0]
	for {
		frag, err := r.br.ReadSlice('\n')
		if len(r.line)+len(frag) > r.max {
			return "", ErrLineTooLong
		}
		r.line = append(r.line, frag...)
		switch {
		case err == nil:
			return string(trimEOL(r.line)), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(r.line) == 0 {
				return "", io.EOF
			}
			return string(trimEOL(r.line)), nil
		default:
			return "", err
		}
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// DataPrefix marks an event line carrying a payload.
const DataPrefix = "data: "

// Data returns the trimmed payload of a "data: " line. Any other line (blank
// separators, comments, event/id/retry fields, noise) reports ok == false.
func Data(line string) (payload string, ok bool) {
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(DataPrefix):]), true
}
