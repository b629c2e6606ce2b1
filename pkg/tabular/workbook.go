package tabular

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX loads the first worksheet of an Office Open XML workbook.
func readXLSX(data []byte) ([]sourceRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("the workbook has no worksheets")
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("could not read worksheet %q: %v", sheets[0], err)
	}

	rows := make([]sourceRow, 0, len(raw))
	for i, cells := range raw {
		rows = append(rows, sourceRow{line: i + 1, cells: integralCells(cells)})
	}
	return rows, nil
}

// readXLS loads the first worksheet of a legacy BIFF workbook. The decoder panics on some
// malformed files, so a panic is reported as an unreadable workbook.
func readXLS(data []byte) (rows []sourceRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("could not read workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("could not read workbook: %v", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("the workbook has no worksheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("the workbook has no worksheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		last := row.LastCol()
		if last <= 0 {
			continue
		}
		cells := make([]string, last)
		for c := row.FirstCol(); c < last; c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, sourceRow{line: i + 1, cells: integralCells(cells)})
	}
	return rows, nil
}

// integralCells renders numeric cells such as "2.0231001E+07" or "1001.0" as plain integers.
func integralCells(cells []string) []string {
	for i, cell := range cells {
		trimmed := strings.TrimSpace(cell)
		if !strings.ContainsAny(trimmed, ".eE") {
			continue
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v != math.Trunc(v) || math.Abs(v) >= 1e15 {
			continue
		}
		cells[i] = strconv.FormatInt(int64(v), 10)
	}
	return cells
}
