// Package export turns a list into a single-sheet spreadsheet, one row per
// card in display order, one column per card field.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gmllt/listboard/internal/board"
	"github.com/xuri/excelize/v2"
)

const (
	DefaultFileName = "list.xlsx"
	DefaultSheet    = "List"
	ContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Header is the column order of an exported sheet.
var Header = []string{"id", "title"}

// Rows returns the sheet content, header first.
func Rows(cards []*board.Card) [][]string {
	rows := make([][]string, 0, len(cards)+1)
	rows = append(rows, Header)
	for _, c := range cards {
		rows = append(rows, []string{c.ID, c.Title})
	}
	return rows
}

// Write encodes cards as an xlsx workbook with a single sheet.
func Write(w io.Writer, sheet string, cards []*board.Card) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for i, row := range Rows(cards) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(sheet string, cards []*board.Card) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, sheet, cards); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName expands {list_id} and {list_title} in pattern. A pattern without
// placeholders names every export the same.
func FileName(pattern string, l *board.List) string {
	if pattern == "" {
		pattern = DefaultFileName
	}
	r := strings.NewReplacer(
		"{list_id}", sanitize(l.ID),
		"{list_title}", sanitize(l.Title),
	)
	return r.Replace(pattern)
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
