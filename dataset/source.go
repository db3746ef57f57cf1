package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// RecordSource yields trip records.
type RecordSource interface {
	Records() ([]TripRecord, error)
}

// SliceSource serves records that are already in memory.
type SliceSource []TripRecord

// Records returns a copy of the slice.
func (s SliceSource) Records() ([]TripRecord, error) {
	out := make([]TripRecord, len(s))
	copy(out, s)
	return out, nil
}

// CSVSource reads records from a comma separated file with a header row.
type CSVSource struct {
	Path string
}

// NewCSVSource returns a source reading path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Records reads and decodes the whole file.
func (s *CSVSource) Records() ([]TripRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV decodes trip records from r. The header must name every column in
// Columns; extra columns are ignored.
func ReadCSV(r io.Reader) ([]TripRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}
	if err := checkNumericCells(data); err != nil {
		return nil, err
	}

	var records []TripRecord
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, errors.NewSchemaMismatchError("ReadCSV", "csv", err.Error())
	}
	return records, nil
}

func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return errors.NewSchemaMismatchError("ReadCSV", "header", "missing header row")
	}
	if err != nil {
		return errors.NewSchemaMismatchError("ReadCSV", "header", err.Error())
	}

	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[strings.TrimSpace(h)] = true
	}
	for _, col := range Columns {
		if !seen[col] {
			return errors.NewSchemaMismatchError("ReadCSV", col, "column missing from header")
		}
	}
	return nil
}

// NumericColumns lists the columns that must carry a value in every row.
// Empty categorical cells are allowed and encode as unseen categories.
var NumericColumns = []string{
	ColPassengerCount,
	ColTripTime,
	ColTripDistance,
	ColFareAmount,
}

// checkNumericCells rejects rows with a blank numeric cell, which gocsv would
// otherwise decode as 0.
func checkNumericCells(data []byte) error {
	rows, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return errors.NewSchemaMismatchError("ReadCSV", "csv", err.Error())
	}
	for i, row := range rows {
		cells := make(map[string]string, len(row))
		for k, v := range row {
			cells[strings.TrimSpace(k)] = v
		}
		for _, col := range NumericColumns {
			if strings.TrimSpace(cells[col]) == "" {
				return errors.NewSchemaMismatchError("ReadCSV", col, "empty value in record "+strconv.Itoa(i))
			}
		}
	}
	return nil
}

// WriteCSV writes records with the standard header.
func WriteCSV(w io.Writer, records []TripRecord) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}
