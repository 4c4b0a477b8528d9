// Package report turns drained table entries into the final
// {key=min/mean/max, ...} line.
package report

import (
	"bufio"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"

	"xpug.it/stationagg/internal/fixedpoint"
	"xpug.it/stationagg/internal/table"
)

// ErrInvalidKey is returned for a key that is not valid UTF-8.
var ErrInvalidKey = errors.New("key is not valid UTF-8")

// Row is the result for one station.
type Row struct {
	Station string
	table.Record
}

// Extract converts sorted entries into rows, keeping their order.
func Extract(entries []table.Entry) ([]Row, error) {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		if !utf8.Valid(e.Key) {
			return nil, errors.Wrapf(ErrInvalidKey, "%q", e.Key)
		}
		rows[i] = Row{Station: string(e.Key), Record: e.Record}
	}
	return rows, nil
}

// Write renders rows as a single line terminated by a newline.
func Write(w io.Writer, rows []Row, mode Rounding) error {
	writer := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	writer.WriteByte('{')
	for i, r := range rows {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = append(buf, r.Station...)
		buf = append(buf, '=')
		buf = fixedpoint.Append(buf, r.Min)
		buf = append(buf, '/')
		buf = fixedpoint.Append(buf, r.Mean(mode.roundMode()))
		buf = append(buf, '/')
		buf = fixedpoint.Append(buf, r.Max)
		writer.Write(buf)
	}
	writer.WriteString("}\n")
	return errors.Wrap(writer.Flush(), "write report")
}
