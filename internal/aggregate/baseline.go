package aggregate

import (
	"bufio"
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"xpug.it/stationagg/internal/fixedpoint"
	"xpug.it/stationagg/internal/scan"
	"xpug.it/stationagg/internal/table"
)

const maxLineLen = 1 << 20

// Baseline aggregates r line by line into a Go map. It is the plain
// reference for Run: same validation, no fixed capacity, much slower.
func Baseline(r io.Reader, maxKeyLen int) ([]table.Entry, error) {
	cities := map[string]*table.Record{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLen)

	line := 0
	for scanner.Scan() {
		line++
		city, temp, found := strings.Cut(scanner.Text(), ";")
		if !found {
			return nil, &LineError{Line: line, Err: errors.Wrap(scan.ErrMalformed, "missing ';'")}
		}
		v, err := fixedpoint.Parse([]byte(temp))
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		if city == "" {
			return nil, &LineError{Line: line, Err: table.ErrEmptyKey}
		}
		if len(city) > maxKeyLen {
			return nil, &LineError{Line: line, Err: errors.Wrapf(table.ErrKeyTooLong, "%d bytes, limit %d", len(city), maxKeyLen)}
		}

		if data, present := cities[city]; present {
			data.Add(v)
		} else {
			cities[city] = &table.Record{Min: v, Max: v, Sum: v, Count: 1}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read input")
	}

	entries := make([]table.Entry, 0, len(cities))
	for city, data := range cities {
		entries = append(entries, table.Entry{Key: []byte(city), Record: *data})
	}
	slices.SortFunc(entries, func(a, b table.Entry) int {
		return bytes.Compare(a.Key, b.Key)
	})
	return entries, nil
}
