package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"
)

// ReadItems loads the whole input CSV before the batch starts and returns the
// items in file order. The header row decides which columns hold the
// identifier, title and description; title and description are optional.
// Rows with a blank identifier are dropped at read time.
func ReadItems(path string, cfg Config) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input csv %s is empty", path)
	}

	idCol, titleCol, descCol := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case cfg.IdentifierColumn:
			idCol = i
		case cfg.TitleColumn:
			titleCol = i
		case cfg.DescriptionColumn:
			descCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("input csv %s has no '%s' column", path, cfg.IdentifierColumn)
	}

	var items []Item
	for _, row := range rows[1:] {
		item := Item{Identifier: strings.TrimSpace(cell(row, idCol))}
		if item.Identifier == "" {
			log.Printf("itemsource skipped blank identifier row")
			continue
		}
		item.Title = strings.TrimSpace(cell(row, titleCol))
		item.Description = strings.TrimSpace(cell(row, descCol))
		items = append(items, item)
	}
	log.Printf("itemsource loaded path=%s items=%d", path, len(items))
	return items, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
