package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sourceRow is one raw row with its 1-based position in the file.
type sourceRow struct {
	line  int
	cells []string
}

func readCSV(data []byte) ([]sourceRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows []sourceRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("could not read CSV at line %d: %v", parseErr.Line, parseErr.Err)
			}
			return nil, fmt.Errorf("could not read CSV: %v", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, sourceRow{line: line, cells: record})
	}
	return rows, nil
}

// sniffDelimiter inspects the first line: semicolon when it outnumbers commas, else tab
// when present, else comma.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	semicolons := bytes.Count(first, []byte{';'})
	commas := bytes.Count(first, []byte{','})
	switch {
	case semicolons > commas:
		return ';'
	case bytes.IndexByte(first, '\t') >= 0:
		return '\t'
	default:
		return ','
	}
}
