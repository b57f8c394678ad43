package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed CSV file. Each row maps header names to cell values.
type Table struct {
	Header []string            `json:"header"`
	Rows   []map[string]string `json:"rows"`
}

// ParseCSV parses a CSV document with a header row. Missing cells are empty strings
// and rows where every cell is blank are skipped.
func ParseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	names := make([]string, len(header))
	empty := true
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil, ErrNoHeader
	}

	table := &Table{Header: names, Rows: []map[string]string{}}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if blank(record) {
			continue
		}
		row := make(map[string]string, len(names))
		for i, name := range names {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
