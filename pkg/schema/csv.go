package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrMalformedCSV is wrapped by every ParseCSV failure.
	ErrMalformedCSV = errors.New("malformed CSV")
	// ErrFieldTooLong reports a text cell longer than its field's size.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
)

// ParseCSV reads comma-separated records from r and converts each into a Row of s.
// Every record must have exactly len(s.Fields) columns. If skipHeader is set the first
// record is discarded. A leading UTF-8 byte order mark is dropped.
func ParseCSV(r io.Reader, s Schema, skipHeader bool) ([]Row, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	cr.FieldsPerRecord = len(s.Fields)
	cr.TrimLeadingSpace = true

	var rows []Row
	first := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
		}
		if first && skipHeader {
			first = false
			continue
		}
		first = false

		line, _ := cr.FieldPos(0)
		row, err := convertRecord(record, s)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedCSV, line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func convertRecord(record []string, s Schema) (Row, error) {
	row := make(Row, len(s.Fields))
	for i, f := range s.Fields {
		cell := record[i]
		switch f.Type {
		case Int64:
			n, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: parsing %q as int64: %w", f.Name, cell, err)
			}
			row[i] = IntValue(n)
		default:
			if f.Size > 0 && utf8.RuneCountInString(cell) > f.Size {
				return nil, fmt.Errorf("field %q: %w (%d > %d)", f.Name, ErrFieldTooLong, utf8.RuneCountInString(cell), f.Size)
			}
			row[i] = TextValue(f.Type, cell)
		}
	}
	return row, nil
}
