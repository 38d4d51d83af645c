// Package export renders reports as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"meeting-tracker/internal/report"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Report"

type table struct {
	headers []string
	widths  []float64
	rows    [][]any
}

func tableFor(r *report.Report) (table, error) {
	switch r.Kind {
	case report.ByUser:
		t := table{headers: []string{"Rank", "Name", "Email", "Meetings"}, widths: []float64{8, 30, 34, 12}}
		for i, u := range r.ByUser {
			name := u.Name
			if name == "" {
				name = u.Email
			}
			t.rows = append(t.rows, []any{i + 1, name, u.Email, u.Count})
		}
		return t, nil
	case report.ByCustomer:
		t := table{headers: []string{"Rank", "Customer", "Meetings"}, widths: []float64{8, 40, 12}}
		for i, c := range r.ByCustomer {
			t.rows = append(t.rows, []any{i + 1, c.CustomerName, c.Count})
		}
		return t, nil
	case report.ByPeriod:
		t := table{headers: []string{"Month", "Meetings"}, widths: []float64{12, 12}}
		for _, p := range r.ByPeriod {
			t.rows = append(t.rows, []any{p.Period, p.Count})
		}
		return t, nil
	}
	return table{}, fmt.Errorf("unsupported report type %q", r.Kind)
}

// Report renders r as a single-sheet workbook with a frozen, styled header.
func Report(r *report.Report) ([]byte, error) {
	t, err := tableFor(r)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(t.headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, w := range t.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
