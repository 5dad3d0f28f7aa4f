package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds one TSV line; concept names and descriptions can be long.
const maxLineSize = 4 * 1024 * 1024

// Record is one data row of a delimited file, keyed by lower-cased header name.
type Record struct {
	// Line is the 1-based line number in the file (the header is line 1).
	Line   int
	values map[string]string
}

// NewRecord builds a record from column->value pairs. Column names are lower-cased.
func NewRecord(line int, values map[string]string) Record {
	r := Record{Line: line, values: make(map[string]string, len(values))}
	for k, v := range values {
		r.values[strings.ToLower(k)] = v
	}
	return r
}

// Get returns the trimmed value of column, or "" when the column is absent.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r.values[column])
}

// Has reports whether the file declared column in its header.
func (r Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// FileRecords is every record of one file.
type FileRecords struct {
	File    File
	Header  []string
	Records []Record
}

// MissingColumns returns the columns of cols absent from the header, in the given order.
func (fr FileRecords) MissingColumns(cols ...string) []string {
	present := make(map[string]struct{}, len(fr.Header))
	for _, h := range fr.Header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, c := range cols {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Reader yields the records of one file lazily. Re-open the file to read it again.
type Reader struct {
	file   File
	closer io.Closer
	header []string
	next   func() ([]string, error)
	line   int
}

// Open opens f and reads its header row. Tab-separated files (.tsv, .txt) are split on
// tabs without quote processing; .csv files follow RFC 4180 quoting.
func Open(f File) (*Reader, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Path, err)
	}

	r := &Reader{file: f, closer: fh}
	if supportedExtensions[f.Ext] == ',' {
		cr := csv.NewReader(fh)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		r.next = cr.Read
	} else {
		sc := bufio.NewScanner(fh)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		r.next = func() ([]string, error) {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			return strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t"), nil
		}
	}

	header, err := r.next()
	if err != nil {
		fh.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header row", f.Path)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", f.Path, err)
	}
	r.line = 1
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.ToLower(h)
	}
	r.header = header
	return r, nil
}

// Header returns the lower-cased column names.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next non-blank record, or io.EOF when the file is exhausted.
// Short rows yield empty values for the missing trailing columns.
func (r *Reader) Next() (Record, error) {
	for {
		fields, err := r.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("failed to read %s after line %d: %w", r.file.Path, r.line, err)
		}
		r.line++
		if isBlank(fields) {
			continue
		}
		values := make(map[string]string, len(r.header))
		for i, col := range r.header {
			if i < len(fields) {
				values[col] = fields[i]
			} else {
				values[col] = ""
			}
		}
		return Record{Line: r.line, values: values}, nil
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.closer.Close()
}

// ReadFile reads every record of f.
func ReadFile(f File) (FileRecords, error) {
	r, err := Open(f)
	if err != nil {
		return FileRecords{}, err
	}
	defer r.Close()

	out := FileRecords{File: f, Header: r.Header()}
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return FileRecords{}, err
		}
		out.Records = append(out.Records, rec)
	}
}

// ReadFiles reads every record of every file, in order.
func ReadFiles(files []File) ([]FileRecords, error) {
	out := make([]FileRecords, 0, len(files))
	for _, f := range files {
		fr, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
