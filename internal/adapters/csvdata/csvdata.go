// Package csvdata lee las tablas de entrada del backtest y exporta trades.
//
// Formatos (con cabecera, columnas en cualquier orden):
//
//	precios:       game_id,timestamp,open,high,low,close,volume
//	eventos:       game_id,timestamp,score_a,score_b,period,clock
//	liquidaciones: game_id,settlement
package csvdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingColumn indica que la cabecera no trae una columna obligatoria.
var ErrMissingColumn = errors.New("missing column")

// timestampLayouts son los formatos aceptados además de epoch en segundos.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
}

// table es un CSV leído con índice de columnas por nombre.
type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(r io.Reader, required ...string) (table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return table{}, fmt.Errorf("header: %w", err)
	}
	t := table{cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := t.cols[name]; !ok {
			return table{}, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	t.rows, err = cr.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("rows: %w", err)
	}
	return t, nil
}

// get devuelve la celda de col en la fila, "" si la columna no existe.
func (t table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t table) float(row []string, col string) (float64, error) {
	v, err := strconv.ParseFloat(t.get(row, col), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return v, nil
}

// intOrZero parsea un entero; vacío vale 0. Acepta "12.0" como lo escribe pandas.
func (t table) intOrZero(row []string, col string) (int64, error) {
	s := t.get(row, col)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return int64(f), nil
}

func (t table) timestamp(row []string, col string) (time.Time, error) {
	return ParseTimestamp(t.get(row, col))
}

// ParseTimestamp acepta RFC3339, "YYYY-MM-DD HH:MM:SS" (UTC) o epoch en segundos.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("csvdata.ParseTimestamp: unrecognised timestamp %q", s)
}

// openFile abre path y aplica fn al reader.
func openFile[T any](path string, fn func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return fn(f)
}
