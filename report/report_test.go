package report

import (
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSummary(t *testing.T) {
	s := Summary([][]float64{{1, 2, math.NaN()}, {3, 4, math.Inf(1)}})
	if s.Count != 4 || s.Min != 1 || s.Max != 4 || s.Sum != 10 || s.Mean != 2.5 {
		t.Errorf("Summary = %+v", s)
	}
	// Sample standard deviation of 1..4.
	if want := math.Sqrt(5.0 / 3); math.Abs(s.StdDev-want) > 1e-12 {
		t.Errorf("StdDev = %v, want %v", s.StdDev, want)
	}

	one := Summary([][]float64{{7}})
	if one.StdDev != 0 || one.Mean != 7 {
		t.Errorf("single value Summary = %+v", one)
	}

	empty := Summary([][]float64{{math.NaN()}})
	if empty.Count != 0 || !math.IsNaN(empty.Mean) {
		t.Errorf("empty Summary = %+v", empty)
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	meta := []KV{{"pupil", "telescope"}, {"nyquist", 4.5}, {"peak", math.NaN()}}
	sheets := []Sheet{{
		Name:   "PSF",
		Header: []string{"a", "b"},
		Rows:   Matrix([][]float64{{1, 2}, {3, 4}}),
	}}
	if err := WriteXLSX(path, meta, sheets); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != SummarySheet || got[1] != "PSF" {
		t.Errorf("sheets = %v", got)
	}
	tests := []struct {
		sheet, cell, want string
	}{
		{SummarySheet, "A1", "Key"},
		{SummarySheet, "A2", "pupil"},
		{SummarySheet, "B2", "telescope"},
		{SummarySheet, "B3", "4.5"},
		{SummarySheet, "B4", "NaN"},
		{"PSF", "A1", "a"},
		{"PSF", "B3", "4"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		if err != nil {
			t.Errorf("%s!%s: %v", tt.sheet, tt.cell, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s!%s = %q, want %q", tt.sheet, tt.cell, got, tt.want)
		}
	}
}

func TestWriteXLSXEmpty(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"), nil, nil)
	if !errors.Is(err, ErrNoSheets) {
		t.Errorf("error = %v, want ErrNoSheets", err)
	}
}

func TestWriteTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.tsv")
	if err := WriteTSV(path, []string{"k", "psf"}, [][]float64{{-0.5, 0.25}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	fp, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	r := csv.NewReader(fp)
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"k", "psf"}, {"-0.5", "0.25"}, {"0", "1"}}
	if len(records) != len(want) {
		t.Fatalf("records = %v", records)
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("record[%d][%d] = %q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}
}
