// Package loader reads knowledge base datasets from disk.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// Record is one row of a dataset before validation.
type Record = domain.EntryInput

// SupportedExtensions returns the file extensions Load understands.
func SupportedExtensions() []string {
	return []string{".csv", ".json", ".jsonl"}
}

// Load reads every record from the file at path, choosing the format by
// extension.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = ReadCSV(f)
	case ".json":
		records, err = ReadJSON(f)
	case ".jsonl":
		records, err = ReadJSONL(f)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ReadCSV reads the support dataset layout: a header row naming at least
// question and answer columns (title and content are accepted as aliases),
// plus optional id, category and product. Row IDs are prefixed with "doc_".
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	qCol, ok := column(cols, "question", "title")
	if !ok {
		return nil, fmt.Errorf("missing question column")
	}
	aCol, ok := column(cols, "answer", "content")
	if !ok {
		return nil, fmt.Errorf("missing answer column")
	}
	idCol, hasID := column(cols, "id")
	catCol, hasCat := column(cols, "category")
	prodCol, hasProd := column(cols, "product")

	var records []Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := Record{
			Title:   field(row, qCol),
			Content: field(row, aCol),
		}
		if hasID {
			if id := field(row, idCol); id != "" {
				rec.ID = "doc_" + id
			}
		}
		if hasCat {
			rec.Category = field(row, catCol)
		}
		if hasProd {
			rec.Product = field(row, prodCol)
		}
		records = append(records, rec)
	}

	return records, nil
}

// ReadJSON reads either an array of records or an object with an "items"
// array.
func ReadJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var records []Record
	if data[0] == '{' {
		var wrapped struct {
			Items []Record `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		records = wrapped.Items
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	for i := range records {
		records[i] = clean(records[i])
	}
	return records, nil
}

// ReadJSONL reads one JSON record per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, clean(rec))
	}
	return records, scanner.Err()
}

func column(cols map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// clean strips the indentation that hand-written seed content tends to carry.
func clean(rec Record) Record {
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Content = dedent(rec.Content)
	rec.Category = strings.TrimSpace(rec.Category)
	rec.Product = strings.TrimSpace(rec.Product)
	return rec
}

func dedent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}
