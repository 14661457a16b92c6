// Package spreadsheet reads and writes repair tickets as .xlsx workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Ремонты"

// Column describes one workbook column: the caption written on export and the
// field name also accepted on import.
type Column struct {
	Header string
	Field  string
	get    func(model.RepairFields) string
	set    func(*model.RepairFields, string)
}

var Columns = []Column{
	{"ФИО клиента", "client_name",
		func(f model.RepairFields) string { return f.ClientName },
		func(f *model.RepairFields, v string) { f.ClientName = v }},
	{"Тип устройства", "device_type",
		func(f model.RepairFields) string { return f.DeviceType },
		func(f *model.RepairFields, v string) { f.DeviceType = v }},
	{"Изготовитель", "manufacturer",
		func(f model.RepairFields) string { return f.Manufacturer },
		func(f *model.RepairFields, v string) { f.Manufacturer = v }},
	{"Модель", "model",
		func(f model.RepairFields) string { return f.Model },
		func(f *model.RepairFields, v string) { f.Model = v }},
	{"Серийный номер", "serial_number",
		func(f model.RepairFields) string { return f.SerialNumber },
		func(f *model.RepairFields, v string) { f.SerialNumber = v }},
	{"Комплектация", "accessories",
		func(f model.RepairFields) string { return f.Accessories },
		func(f *model.RepairFields, v string) { f.Accessories = v }},
	{"Адрес клиента", "client_address",
		func(f model.RepairFields) string { return f.ClientAddress },
		func(f *model.RepairFields, v string) { f.ClientAddress = v }},
	{"Статус", "status",
		func(f model.RepairFields) string { return statusLabel(f.Status) },
		func(f *model.RepairFields, v string) { f.Status = v }},
	{"Время статуса", "status_timestamp",
		func(f model.RepairFields) string { return f.StatusTimestamp },
		func(f *model.RepairFields, v string) { f.StatusTimestamp = v }},
	{"Неисправность", "issue_description",
		func(f model.RepairFields) string { return f.IssueDescription },
		func(f *model.RepairFields, v string) { f.IssueDescription = v }},
	{"Примечания", "notes",
		func(f model.RepairFields) string { return f.Notes },
		func(f *model.RepairFields, v string) { f.Notes = v }},
}

var ErrNoHeader = errors.New("spreadsheet: no recognised column headers")

func statusLabel(s string) string {
	if st, err := model.ParseStatus(s); err == nil {
		return st.Label()
	}
	return s
}

// Export writes the tickets to w as a single-sheet workbook, one row per ticket.
func Export(w io.Writer, repairs []model.Repair) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("spreadsheet: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c.Header
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("spreadsheet: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("spreadsheet: style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("spreadsheet: style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetColWidth(SheetName, "A", last, 20); err != nil {
		return fmt.Errorf("spreadsheet: width: %w", err)
	}

	for i, r := range repairs {
		fields := r.Fields()
		row := make([]interface{}, len(Columns))
		for j, c := range Columns {
			row[j] = c.get(fields)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("spreadsheet: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("spreadsheet: row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write: %w", err)
	}
	return nil
}

// Read returns the rows of the first sheet of the workbook.
func Read(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read %s: %w", sheets[0], err)
	}
	return rows, nil
}

// Import parses a workbook into ticket field sets. The first row is the
// header; columns are matched by caption or by field name, unknown columns are
// ignored and blank rows are skipped. Cell values are taken verbatim, so an
// exported workbook imports back to the same fields. Statuses are normalised to the
// canonical vocabulary; an unknown status fails the whole import.
func Import(r io.Reader) ([]model.RepairFields, error) {
	rows, err := Read(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	idx := map[int]Column{}
	for i, h := range rows[0] {
		if c, ok := columnFor(h); ok {
			idx[i] = c
		}
	}
	if len(idx) == 0 {
		return nil, ErrNoHeader
	}

	out := make([]model.RepairFields, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var f model.RepairFields
		for i, v := range row {
			if c, ok := idx[i]; ok {
				c.set(&f, v)
			}
		}
		st, err := model.ParseStatus(f.Status)
		if err != nil {
			return nil, fmt.Errorf("spreadsheet: row %d: %w", n+2, err)
		}
		f.Status = string(st)
		out = append(out, f)
	}
	return out, nil
}

func columnFor(h string) (Column, bool) {
	h = strings.TrimSpace(h)
	for _, c := range Columns {
		if strings.EqualFold(h, c.Header) || strings.EqualFold(h, c.Field) {
			return c, true
		}
	}
	return Column{}, false
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// View prints the workbook rows as a bordered text table.
func View(w io.Writer, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(пусто)")
		return err
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	pad := func(r []string) []string {
		out := make([]string, width)
		copy(out, r)
		return out
	}
	body := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		body = append(body, pad(r))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		Headers(pad(rows[0])...).
		Rows(body...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}
