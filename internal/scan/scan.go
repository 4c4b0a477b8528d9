// Package scan splits a contiguous buffer of "key;value" lines into records
// without copying.
package scan

import (
	"bytes"
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"
)

// ErrMalformed is returned for a line without a ';' separator.
var ErrMalformed = errors.New("malformed record")

// Scanner walks data one record at a time, in the manner of bufio.Scanner.
// Key and Value alias data and stay valid as long as data does.
type Scanner struct {
	data  []byte
	pos   int
	line  int
	key   []byte
	value []byte
	err   error
}

// New returns a Scanner over data, which must not change while scanning.
func New(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Scan advances to the next record. It returns false at the end of the
// buffer or on the first malformed line; Err tells them apart.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.pos >= len(s.data) {
		s.key, s.value = nil, nil
		return false
	}
	s.line++

	rest := s.data[s.pos:]
	end := bytes.IndexByte(rest, '\n')
	next := s.pos + end + 1
	if end < 0 {
		// final record without terminator
		end = len(rest)
		next = len(s.data)
	}
	line := rest[:end]
	s.pos = next

	sep := indexSemicolon(line)
	if sep < 0 {
		s.key, s.value = nil, nil
		s.err = errors.Wrap(ErrMalformed, "missing ';'")
		return false
	}

	value := line[sep+1:]
	if n := len(value); n > 0 && value[n-1] == '\r' {
		value = value[:n-1]
	}
	s.key = line[:sep]
	s.value = value
	return true
}

// Key returns the key of the current record.
func (s *Scanner) Key() []byte { return s.key }

// Value returns the value text of the current record, without line terminator.
func (s *Scanner) Value() []byte { return s.value }

// Line returns the 1-based line number of the current record.
func (s *Scanner) Line() int { return s.line }

// Err returns the first error met by Scan.
func (s *Scanner) Err() error { return s.err }

const (
	semicolons = 0x3b3b3b3b3b3b3b3b
	lows       = 0x0101010101010101
	highs      = 0x8080808080808080
)

// indexSemicolon tests the first word with SWAR, since most keys are short,
// then falls back to bytes.IndexByte.
func indexSemicolon(line []byte) int {
	if len(line) >= 8 {
		word := binary.LittleEndian.Uint64(line) ^ semicolons
		// bit twiddling trick to find a zero byte, i.e. a byte matching 0x3b;
		// the lowest flagged byte is always exact
		found := (word - lows) &^ word & highs
		if found != 0 {
			return bits.TrailingZeros64(found) >> 3
		}
		if i := bytes.IndexByte(line[8:], ';'); i >= 0 {
			return i + 8
		}
		return -1
	}
	return bytes.IndexByte(line, ';')
}
