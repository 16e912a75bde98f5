package message

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVHeader is the column layout written by the recording tool.
var CSVHeader = []string{
	"VenturiAreaRegular",
	"VenturiAreaConstricted",
	"O2",
	"DifferentialPressure",
	"TimeStamp",
}

// ReadCSV reads a recording. Columns are matched by header name (case-insensitive),
// so their order may differ from CSVHeader. Blank lines are skipped.
func ReadCSV(r io.Reader) ([]ReadingPayload, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrCSVHeader)
		}
		return nil, fmt.Errorf("%w: %w", ErrCSVHeader, err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var payloads []ReadingPayload
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCSVRecord, err)
		}
		line, _ := cr.FieldPos(0)

		p, err := parseRecord(record, columns)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCSVRecord, line, err)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// WriteCSV writes payloads in the CSVHeader layout.
func WriteCSV(w io.Writer, payloads []ReadingPayload) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, p := range payloads {
		record := []string{
			formatFloat(p.VenturiAreaRegular),
			formatFloat(p.VenturiAreaConstricted),
			formatFloat(p.O2),
			formatFloat(p.DifferentialPressure),
			strconv.FormatUint(p.TimeStamp, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// mapColumns returns, for each CSVHeader entry, its index in header.
func mapColumns(header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	columns := make([]int, len(CSVHeader))
	for i, name := range CSVHeader {
		pos, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrCSVHeader, name)
		}
		columns[i] = pos
	}
	return columns, nil
}

func parseRecord(record []string, columns []int) (ReadingPayload, error) {
	floats := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[columns[i]]), 64)
		if err != nil {
			return ReadingPayload{}, fmt.Errorf("column %s: %w", CSVHeader[i], err)
		}
		floats[i] = v
	}
	ts, err := strconv.ParseUint(strings.TrimSpace(record[columns[4]]), 10, 64)
	if err != nil {
		return ReadingPayload{}, fmt.Errorf("column %s: %w", CSVHeader[4], err)
	}

	return ReadingPayload{
		VenturiAreaRegular:     floats[0],
		VenturiAreaConstricted: floats[1],
		O2:                     floats[2],
		DifferentialPressure:   floats[3],
		TimeStamp:              ts,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
