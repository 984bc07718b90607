// Package dataset loads categorical training tables from comma-separated files
// and validates every row once, at load time.
package dataset

import (
	"bufio"
	"crypto/sha1"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is a single training record
type Row struct {
	Index  int               `json:"index"`
	Values map[string]string `json:"values"`
	Label  string            `json:"label"`
	// Record holds every cell of the source row, aligned with Dataset.Columns
	Record []string `json:"record,omitempty"`
}

// Value returns the value of a feature for this row
func (r Row) Value(feature string) (string, bool) {
	v, ok := r.Values[feature]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Dataset is an immutable table of categorical rows
type Dataset struct {
	Features   []string
	LabelField string
	Rows       []Row
	// Columns is the full source header, including columns that are
	// neither features nor the label
	Columns []string
}

// MalformedRowError reports a row missing a required feature or the label
type MalformedRowError struct {
	Row   int
	Field string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: missing field %q", e.Row, e.Field)
}

// HeaderError reports a header that cannot describe the requested schema
type HeaderError struct {
	Column string
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid header column %q: %s", e.Column, e.Reason)
}

// New builds a dataset from in-memory rows, validating each of them
func New(features []string, labelField string, rows []Row) (*Dataset, error) {
	if labelField == "" {
		return nil, &HeaderError{Column: labelField, Reason: "label field is empty"}
	}
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		if f == labelField {
			return nil, &HeaderError{Column: f, Reason: "feature is also the label"}
		}
		if seen[f] {
			return nil, &HeaderError{Column: f, Reason: "duplicate feature"}
		}
		seen[f] = true
	}

	ds := &Dataset{
		Features:   append([]string(nil), features...),
		LabelField: labelField,
		Rows:       make([]Row, len(rows)),
		Columns:    append(append([]string(nil), features...), labelField),
	}
	for i, row := range rows {
		if err := ds.validateRow(i, row); err != nil {
			return nil, err
		}
		values := make(map[string]string, len(features))
		for _, f := range features {
			values[f] = row.Values[f]
		}
		record := make([]string, 0, len(features)+1)
		for _, f := range features {
			record = append(record, values[f])
		}
		ds.Rows[i] = Row{Index: i, Values: values, Label: row.Label, Record: append(record, row.Label)}
	}
	return ds, nil
}

func (ds *Dataset) validateRow(index int, row Row) error {
	for _, f := range ds.Features {
		if _, ok := row.Value(f); !ok {
			return &MalformedRowError{Row: index, Field: f}
		}
	}
	if row.Label == "" {
		return &MalformedRowError{Row: index, Field: ds.LabelField}
	}
	return nil
}

// Load reads a dataset from a CSV file
func Load(path, labelField string, features []string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	ds, err := Read(file, labelField, features)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV with a header row. When features is empty every column
// other than the label becomes a feature, in header order.
func Read(r io.Reader, labelField string, features []string) (*Dataset, error) {
	// Spreadsheet exports often start with a byte-order mark that would
	// otherwise stick to the first column name.
	decoded := transform.NewReader(bufio.NewReader(r), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &HeaderError{Column: "", Reason: "missing header row"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	names := make([]string, len(header))
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		names[i] = name
		if _, dup := columns[name]; dup {
			return nil, &HeaderError{Column: name, Reason: "duplicate column"}
		}
		columns[name] = i
	}

	labelCol, ok := columns[labelField]
	if !ok {
		return nil, &HeaderError{Column: labelField, Reason: "label column not found"}
	}

	if len(features) == 0 {
		for _, name := range header {
			name = strings.TrimSpace(name)
			if name != labelField {
				features = append(features, name)
			}
		}
	}
	featureCols := make([]int, len(features))
	for i, f := range features {
		col, ok := columns[f]
		if !ok {
			return nil, &HeaderError{Column: f, Reason: "feature column not found"}
		}
		featureCols[i] = col
	}

	var rows []Row
	var records [][]string
	for index := 0; ; index++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", index, err)
		}

		row := Row{Index: index, Values: make(map[string]string, len(features))}
		for i, f := range features {
			row.Values[f] = cell(rec, featureCols[i])
		}
		row.Label = cell(rec, labelCol)
		rows = append(rows, row)

		record := make([]string, len(names))
		for i := range names {
			record[i] = cell(rec, i)
		}
		records = append(records, record)
	}

	ds, err := New(features, labelField, rows)
	if err != nil {
		return nil, err
	}
	ds.Columns = names
	for i := range ds.Rows {
		ds.Rows[i].Record = records[i]
	}
	return ds, nil
}

func cell(rec []string, col int) string {
	if col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

// Len returns the number of rows
func (ds *Dataset) Len() int {
	return len(ds.Rows)
}

// Labels returns the distinct labels in order of first appearance
func (ds *Dataset) Labels() []string {
	var labels []string
	seen := make(map[string]bool)
	for _, row := range ds.Rows {
		if !seen[row.Label] {
			seen[row.Label] = true
			labels = append(labels, row.Label)
		}
	}
	return labels
}

// Domain returns the distinct values of a feature in order of first appearance
func (ds *Dataset) Domain(feature string) []string {
	var values []string
	seen := make(map[string]bool)
	for _, row := range ds.Rows {
		v, ok := row.Value(feature)
		if ok && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

// Preview returns up to n leading rows; n <= 0 returns every row
func (ds *Dataset) Preview(n int) []Row {
	if n <= 0 || n > len(ds.Rows) {
		n = len(ds.Rows)
	}
	return ds.Rows[:n]
}

// Fingerprint identifies the dataset contents and schema
func (ds *Dataset) Fingerprint() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x1f%s\n", strings.Join(ds.Features, "\x1f"), ds.LabelField)
	for _, row := range ds.Rows {
		for _, f := range ds.Features {
			fmt.Fprintf(h, "%s\x1f", row.Values[f])
		}
		fmt.Fprintf(h, "%s\n", row.Label)
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
