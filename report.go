package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var reportHeader = []string{"Title", "URL", "Description", "Accessibility Score", "Accessibility Issues", "Category"}

// WriteReport serializes the full record set and writes the artifact exactly
// once: the CSV is built in memory, written to a temp file and renamed into
// place, so a failed run never leaves a partial artifact behind.
func WriteReport(records []ResultRecord, outputDir string, runDate time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	content, err := encodeReport(records)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("accessibility_%s.csv", runDate.Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)

	tmp, err := os.CreateTemp(outputDir, filename+".tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	log.Printf("report written path=%s rows=%d", path, len(records))
	return path, nil
}

func encodeReport(records []ResultRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		issues, err := EncodeIssues(rec.Issues)
		if err != nil {
			return nil, fmt.Errorf("encoding issues for %s: %w", rec.Identifier, err)
		}
		row := []string{
			rec.Title,
			NormalizeTargetURL(rec.Identifier),
			rec.Description,
			formatScore(rec.Score),
			issues,
			rec.Category,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeIssues flattens the nested issue list into a JSON string fit for a
// tabular column. An empty or nil list always encodes as "[]".
func EncodeIssues(issues []Issue) (string, error) {
	if len(issues) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeIssues is the inverse of EncodeIssues.
func DecodeIssues(s string) ([]Issue, error) {
	var issues []Issue
	if err := json.Unmarshal([]byte(s), &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}
