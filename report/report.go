// Package report exports arrays and their statistics as XLSX workbooks and
// TSV tables.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSheets is returned by WriteXLSX when there is nothing to write.
var ErrNoSheets = errors.New("report: no sheets")

// SummarySheet is the name of the first sheet of every workbook.
const SummarySheet = "Summary"

// Stats summarizes the finite values of an array.
type Stats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Sum    float64
}

// Summary computes Stats over the finite values of data. An array without
// finite values yields a zero Count and NaN statistics.
func Summary(data [][]float64) Stats {
	var flat []float64
	for i := range data {
		for _, v := range data[i] {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				flat = append(flat, v)
			}
		}
	}
	if len(flat) == 0 {
		nan := math.NaN()
		return Stats{Min: nan, Max: nan, Mean: nan, StdDev: nan}
	}
	s := Stats{
		Count: len(flat),
		Min:   floats.Min(flat),
		Max:   floats.Max(flat),
		Sum:   floats.Sum(flat),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(flat, nil)
	if len(flat) == 1 {
		s.StdDev = 0
	}
	return s
}

// KV is one row of the summary sheet.
type KV struct {
	Key   string
	Value any
}

// Sheet is a named table. Header may be empty.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Matrix turns a 2D array into sheet rows.
func Matrix(data [][]float64) [][]any {
	rows := make([][]any, len(data))
	for i := range data {
		rows[i] = make([]any, len(data[i]))
		for j, v := range data[i] {
			rows[i][j] = v
		}
	}
	return rows
}

// WriteXLSX writes a workbook whose first sheet lists meta as key/value
// pairs, followed by one sheet per entry of sheets.
func WriteXLSX(path string, meta []KV, sheets []Sheet) error {
	if len(meta) == 0 && len(sheets) == 0 {
		return ErrNoSheets
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{"Key", "Value"}); err != nil {
		return err
	}
	for i, kv := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &[]any{kv.Key, cellValue(kv.Value)}); err != nil {
			return err
		}
	}

	for _, s := range sheets {
		if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		row := 1
		if len(s.Header) > 0 {
			header := make([]any, len(s.Header))
			for i, h := range s.Header {
				header[i] = h
			}
			if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
				return err
			}
			row++
		}
		for _, r := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := make([]any, len(r))
			for i, v := range r {
				values[i] = cellValue(v)
			}
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				return err
			}
			row++
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// cellValue replaces non-finite floats, which excelize cannot store, by
// their string form.
func cellValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

// WriteTSV writes header and rows as tab-separated values. Floats use the
// shortest representation that round-trips.
func WriteTSV(path string, header []string, rows [][]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()

	w := csv.NewWriter(fp)
	w.Comma = '\t'
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, r := range rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fp.Close()
}
