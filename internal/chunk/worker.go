package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/usestring/chunkgrep/pkg/types"
)

// maxReadSize bounds a single ReadAt call. Larger ranges are read in pieces.
var maxReadSize int64 = math.MaxInt32

// ReadChunk reads the bytes of c from r using positioned reads, so several
// goroutines may read different chunks of the same file concurrently.
func ReadChunk(r io.ReaderAt, c types.Chunk) ([]byte, error) {
	n := c.Len()
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	for off := int64(0); off < n; {
		want := min(n-off, maxReadSize)
		got, err := r.ReadAt(buf[off:off+want], c.Start+off)
		off += int64(got)
		if err != nil {
			if errors.Is(err, io.EOF) && int64(got) == want {
				continue
			}
			return buf[:off], fmt.Errorf("reading %s at offset %d: %w", c, c.Start+off, err)
		}
	}
	return buf, nil
}

// Scanner matches lines against an ordered pattern set and builds records
// according to the request options. It is safe for concurrent use.
type Scanner struct {
	patterns []types.Pattern
	opts     types.Options
	builder  types.RecordBuilder
}

// NewScanner returns a Scanner for patterns and opts.
func NewScanner(patterns []types.Pattern, opts types.Options) *Scanner {
	return &Scanner{
		patterns: patterns,
		opts:     opts,
		builder:  types.NewRecordBuilder(opts),
	}
}

// Scan splits data into lines and emits one record per match (or, when inverted,
// one record per line a pattern does not match). Line numbers passed to the
// builder are 1-based and relative to data. A last line without a terminator is
// still a line; a trailing '\r' is dropped. Scan returns the number of lines.
func (s *Scanner) Scan(file string, data []byte, emit func(types.MatchRecord)) int {
	dec := unicode.UTF8.NewDecoder()
	lines := 0
	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		lines++
		line = bytes.TrimSuffix(line, []byte{'\r'})
		s.scanLine(lines, decodeLine(dec, line), file, emit)
	}
	return lines
}

func (s *Scanner) scanLine(lineNo int, text, file string, emit func(types.MatchRecord)) {
	for _, p := range s.patterns {
		re := p.Regexp()
		if s.opts.Invert {
			if !re.MatchString(text) {
				emit(s.builder.Build(lineNo, text, file, p.String()))
			}
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			emit(s.builder.Build(lineNo, text[loc[0]:loc[1]], file, p.String()))
		}
	}
}

// decodeLine converts line to a string, replacing malformed UTF-8 with U+FFFD.
func decodeLine(dec *encoding.Decoder, line []byte) string {
	if utf8.Valid(line) {
		return string(line)
	}
	out, err := dec.Bytes(line)
	if err != nil {
		return string(bytes.ToValidUTF8(line, []byte(string(utf8.RuneError))))
	}
	return string(out)
}

// CountLines returns the number of lines in c, using the same rules as Scan.
func CountLines(r io.ReaderAt, c types.Chunk) (int, error) {
	data, err := ReadChunk(r, c)
	if err != nil {
		return 0, err
	}
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n, nil
}

// Job scans one chunk of one file.
type Job struct {
	Path    string
	File    io.ReaderAt
	Chunk   types.Chunk
	Scanner *Scanner
}

// Run reads the chunk and scans it, returning the number of lines seen.
func (j Job) Run(emit func(types.MatchRecord)) (int, error) {
	data, err := ReadChunk(j.File, j.Chunk)
	if err != nil {
		return 0, &types.IOError{Path: j.Path, Chunk: j.Chunk.Seq, Err: err}
	}
	return j.Scanner.Scan(j.Path, data, emit), nil
}
