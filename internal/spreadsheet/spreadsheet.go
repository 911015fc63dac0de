// Package spreadsheet turns uploaded CSV and Excel files into header keyed rows.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("spreadsheet: unsupported file format")
	ErrEmpty             = errors.New("spreadsheet: no header row")
)

// Sheet is the first table of an uploaded file. Records keep the column
// order of Headers.
type Sheet struct {
	Headers []string
	Records [][]string
}

// Read parses r according to the extension of filename. CSV headers are
// lower-cased; Excel headers are kept as written.
func Read(filename string, r io.Reader) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readExcel(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func readCSV(r io.Reader) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}

	sheet := &Sheet{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		if isBlank(record) {
			continue
		}
		sheet.Records = append(sheet.Records, trimAll(record))
	}
	return sheet, nil
}

func readExcel(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	var sheet *Sheet
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		if sheet == nil {
			sheet = &Sheet{Headers: trimAll(row)}
			continue
		}
		sheet.Records = append(sheet.Records, trimAll(row))
	}
	if sheet == nil {
		return nil, ErrEmpty
	}
	return sheet, nil
}

// Maps returns one map per record, keyed by header. Empty cells and cells
// without a header are left out.
func (s *Sheet) Maps() []map[string]string {
	out := make([]map[string]string, 0, len(s.Records))
	for _, record := range s.Records {
		row := make(map[string]string, len(record))
		for i, value := range record {
			if i >= len(s.Headers) || s.Headers[i] == "" || value == "" {
				continue
			}
			if _, exists := row[s.Headers[i]]; !exists {
				row[s.Headers[i]] = value
			}
		}
		out = append(out, row)
	}
	return out
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
