package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkReader returns exactly one chunk per Read call.
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}
		if err != nil {
			t.Fatalf("read line: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestReadLineAcrossChunks(t *testing.T) {
	src := &chunkReader{chunks: [][]byte{
		[]byte("data: {\"a\":"),
		[]byte("1}\r\n\r\nda"),
		[]byte("ta: two\n"),
		[]byte(": comment\n"),
	}}
	got := readAll(t, NewReader(src))
	want := []string{`data: {"a":1}`, "", "data: two", ": comment"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestReadLineSplitRune(t *testing.T) {
	// "é" is 0xC3 0xA9 and "€" is 0xE2 0x82 0xAC.
	src := &chunkReader{chunks: [][]byte{
		[]byte("data: caf\xc3"),
		[]byte("\xa9 \xe2"),
		[]byte("\x82"),
		[]byte("\xac\n"),
	}}
	got := readAll(t, NewReader(src))
	if len(got) != 1 || got[0] != "data: café €" {
		t.Fatalf("got %q", got)
	}
}

func TestReadLineOneByte(t *testing.T) {
	in := "data: 你好\n\ndata: [DONE]\n"
	got := readAll(t, NewReader(iotest.OneByteReader(strings.NewReader(in))))
	want := []string{"data: 你好", "", "data: [DONE]"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestReadLineResidualAtEOF(t *testing.T) {
	got := readAll(t, NewReader(strings.NewReader("data: a\ndata: b")))
	if len(got) != 2 || got[1] != "data: b" {
		t.Fatalf("got %q", got)
	}
}

func TestReadLineInvalidUTF8Replaced(t *testing.T) {
	got := readAll(t, NewReader(strings.NewReader("data: \xff\n")))
	if len(got) != 1 || got[0] != "data: �" {
		t.Fatalf("got %q", got)
	}
}

func TestReadLineTooLong(t *testing.T) {
	r := NewReader(strings.NewReader(strings.Repeat("x", MaxLineSize+1) + "\n"))
	if _, err := r.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}

func TestReadLineUpstreamError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(io.MultiReader(strings.NewReader("data: a\n"), iotest.ErrReader(boom)))
	if line, err := r.ReadLine(); err != nil || line != "data: a" {
		t.Fatalf("first line %q %v", line, err)
	}
	if _, err := r.ReadLine(); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestData(t *testing.T) {
	tests := []struct {
		line    string
		payload string
		ok      bool
	}{
		{`data: {"x":1}`, `{"x":1}`, true},
		{"data:   [DONE]  ", "[DONE]", true},
		{"", "", false},
		{": keep-alive", "", false},
		{"event: message", "", false},
		{"data:{}", "", false},
	}
	for _, tt := range tests {
		payload, ok := Data(tt.line)
		if payload != tt.payload || ok != tt.ok {
			t.Errorf("Data(%q) = %q, %v; want %q, %v", tt.line, payload, ok, tt.payload, tt.ok)
		}
	}
}
