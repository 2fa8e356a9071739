package environment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/homesim/internal/home"
)

// LoadCSV reads mapping rows from a CSV file.
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping csv: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses mapping rows. Columns are located by header name, so their
// order does not matter and extra columns are ignored.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("mapping csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}

		row, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string, idx map[string]int) (Row, error) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var row Row
	row.Key.Room = home.Room(field(ColRoom))
	if row.Key.Room == "" {
		return Row{}, fmt.Errorf("%s is empty", ColRoom)
	}

	var err error
	if row.Key.Temperature, err = ParseLevel(field(ColExternalTemperature)); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColExternalTemperature, err)
	}
	if row.Key.Lighting, err = ParseLevel(field(ColExternalLighting)); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColExternalLighting, err)
	}
	if row.Key.Noise, err = ParseLevel(field(ColExternalNoise)); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColExternalNoise, err)
	}

	if row.Settings.Temperature, err = strconv.ParseFloat(field(ColInternalTemperature), 64); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColInternalTemperature, err)
	}
	if row.Settings.Lighting, err = strconv.ParseFloat(field(ColInternalLighting), 64); err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColInternalLighting, err)
	}

	music, err := strconv.ParseFloat(field(ColInternalMusic), 64)
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", ColInternalMusic, err)
	}
	if music != math.Trunc(music) {
		return Row{}, fmt.Errorf("%s: %v is not a whole genre code", ColInternalMusic, music)
	}
	row.Settings.Music = Genre(music)
	return row, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes rows with the canonical header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			string(r.Key.Room),
			string(r.Key.Temperature),
			string(r.Key.Lighting),
			string(r.Key.Noise),
			strconv.FormatFloat(r.Settings.Temperature, 'f', -1, 64),
			strconv.FormatFloat(r.Settings.Lighting, 'f', -1, 64),
			strconv.Itoa(int(r.Settings.Music)),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
