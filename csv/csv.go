// Package csv reads and writes the GTFS tables produced by the scraper.
//
// Reading is a thin layer over the stdlib csv reader that looks columns up by header
// name; writing uses fixed column orders so that output is stable across runs.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jamespfennell/mzkbb/constants"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type File struct {
	name                   constants.File
	csvReader              *csv.Reader
	headerMap              map[string]int
	rowNumber              int
	missingRequiredColumns []string
	cells                  []string
	missingKeys            []string
	ioErr                  error
	closer                 func() error
}

func New(name constants.File, reader io.ReadCloser) (*File, error) {
	csvReader := BOMAwareCSVReader(reader)
	csvReader.FieldsPerRecord = -1
	header, err := csvReader.Read()
	if err == io.EOF {
		reader.Close()
		return nil, fmt.Errorf("CSV file %s contains no rows", name)
	} else if err != nil {
		reader.Close()
		return nil, err
	}
	csvReader.ReuseRecord = true
	m := map[string]int{}
	for i, colHeader := range header {
		m[colHeader] = i
	}
	return &File{
		name:      name,
		headerMap: m,
		csvReader: csvReader,
		closer:    reader.Close,
	}, nil
}

func (f *File) Name() constants.File {
	return f.name
}

type RequiredColumn struct {
	i int
	s string
	f *File
}

func (f *File) RequiredColumn(s string) RequiredColumn {
	i, ok := f.headerMap[s]
	if !ok {
		f.missingRequiredColumns = append(f.missingRequiredColumns, s)
		i = -1
	}
	return RequiredColumn{i, s, f}
}

func (f *File) MissingRequiredColumns() []string {
	return f.missingRequiredColumns
}

func (c RequiredColumn) Read() string {
	if c.i < 0 || c.i >= len(c.f.cells) || c.f.cells[c.i] == "" {
		c.f.missingKeys = append(c.f.missingKeys, c.s)
		return ""
	}
	return c.f.cells[c.i]
}

type OptionalColumn struct {
	i int
	f *File
}

func (f *File) OptionalColumn(s string) OptionalColumn {
	i, ok := f.headerMap[s]
	if !ok {
		i = -1
	}
	return OptionalColumn{i: i, f: f}
}

func (c OptionalColumn) Read() string {
	if c.i < 0 || c.i >= len(c.f.cells) {
		return ""
	}
	return c.f.cells[c.i]
}

func (f *File) NextRow() bool {
	cells, err := f.csvReader.Read()
	if err != nil {
		if err != io.EOF {
			f.ioErr = err
		}
		f.cells = nil
		return false
	}
	f.rowNumber += 1
	f.cells = cells
	f.missingKeys = nil
	return true
}

// RowNumber is the 1-based number of the current data row, excluding the header.
func (f *File) RowNumber() int {
	return f.rowNumber
}

func (f *File) MissingRowKeys() []string {
	return f.missingKeys
}

func (f *File) Close() error {
	closeErr := f.closer()
	if f.ioErr != nil {
		return f.ioErr
	}
	return closeErr
}

// From: https://stackoverflow.com/a/76023436
//
// BOMAwareCSVReader will detect a UTF BOM (Byte Order Mark) at the
// start of the data and transform to UTF8 accordingly.
// If there is no BOM, it will read the data without any transformation.
func BOMAwareCSVReader(reader io.Reader) *csv.Reader {
	var transformer = unicode.BOMOverride(encoding.Nop.NewDecoder())
	return csv.NewReader(transform.NewReader(reader, transformer))
}
