package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dsld-sync/internal/fetch"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Combine parses each member as CSV and appends the rows into one unified
// table, file by file in input order. The destination schema is
// authoritative: every name in Columns must appear in each member's header
// row, or the member is rejected so upstream schema drift is caught instead
// of silently inserting NULLs. Rows with an empty conflict key are dropped
// and counted. An empty input list yields an empty table.
func Combine(files []fetch.MemberFile) (*Table, error) {
	table := &Table{}

	for _, f := range files {
		if err := appendMember(table, f); err != nil {
			return nil, fmt.Errorf("combine %s: %w", f.Name, err)
		}
	}

	return table, nil
}

func appendMember(table *Table, f fetch.MemberFile) error {
	records, err := parseCSV(f.Data)
	if err != nil {
		return fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	headerIdx := MakeHeaderIndex(records[0])
	for _, col := range Columns {
		if _, ok := headerIdx[strings.ToLower(col)]; !ok {
			return fmt.Errorf("header is missing column %q", col)
		}
	}

	idIdx := headerIdx[strings.ToLower(ConflictColumn)]

	for _, row := range records[1:] {
		if isEmptyRow(row) {
			continue
		}
		if CleanCell(cell(row, idIdx)) == "" {
			table.SkippedRows++
			continue
		}
		table.Rows = append(table.Rows, buildProduct(row, headerIdx))
	}

	return nil
}

// buildProduct maps one CSV row onto the typed schema. Cells are cleaned
// before conversion; absent and empty cells both become NULL.
func buildProduct(row []string, idx HeaderIndex) Product {
	get := func(col string) string {
		pos, ok := idx[strings.ToLower(col)]
		if !ok {
			return ""
		}
		return CleanCell(cell(row, pos))
	}

	return Product{
		URL:            ToPgText(get("URL")),
		DSLDID:         ToPgText(get("DSLD ID")),
		ProductName:    ToPgText(get("Product Name")),
		BrandName:      ToPgText(get("Brand Name")),
		BarCode:        ToPgText(get("Bar Code")),
		NetContents:    ToPgText(get("Net Contents")),
		ServingSize:    ToPgText(get("Serving Size")),
		ProductType:    ToPgText(get("Product Type [LanguaL]")),
		SupplementForm: ToPgText(get("Supplement Form [LanguaL]")),
		DateEntered:    ToPgDate(get("Date Entered into DSLD")),
		MarketStatus:   ToPgText(get("Market Status")),
		SuggestedUse:   ToPgText(get("Suggested Use")),
	}
}

func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// cell returns the value at pos, or "" when the row is short.
func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return row[pos]
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
