// Package report renders an audit result as an xlsx workbook with detail and
// summary tabs.
package report

import (
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/census-audit/internal/model"
)

// Tab names in the report workbook.
const (
	DetailSheet         = "Comparison_Detail_AllFields"
	FieldSummarySheet   = "Field_Summary"
	DatasetSummarySheet = "Dataset_Summary"
)

// Write renders the result to a workbook file.
func Write(res *model.AuditResult, path string) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// WriteTo renders the result to a writer, e.g. an HTTP response.
func WriteTo(res *model.AuditResult, w io.Writer) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write")
	}
	return nil
}

func build(res *model.AuditResult) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if err := buildDetail(f, res); err != nil {
		return nil, err
	}
	if err := buildFieldSummary(f, res); err != nil {
		return nil, err
	}
	if err := buildDatasetSummary(f, res); err != nil {
		return nil, err
	}

	return f, nil
}

func buildDetail(f *xlsx.File, res *model.AuditResult) error {
	sheet, err := f.AddSheet(DetailSheet)
	if err != nil {
		return eris.Wrap(err, "report: add detail sheet")
	}

	header := []string{"Employee", "Field"}
	header = append(header, res.ContextColumns...)
	header = append(header, "Secondary Value", "Truth Value", "Status")
	addRow(sheet, header...)

	for _, d := range res.Details {
		row := []string{d.EmployeeID, d.Mapping.Secondary}
		for i := range res.ContextColumns {
			v := ""
			if i < len(d.Context) {
				v = d.Context[i]
			}
			row = append(row, v)
		}
		row = append(row, d.SecondaryValue, d.TruthValue, string(d.Status))
		addRow(sheet, row...)
	}

	return nil
}

func buildFieldSummary(f *xlsx.File, res *model.AuditResult) error {
	sheet, err := f.AddSheet(FieldSummarySheet)
	if err != nil {
		return eris.Wrap(err, "report: add field summary sheet")
	}

	header := []string{"Secondary Column", "Truth Column"}
	for _, s := range model.AllStatuses {
		header = append(header, string(s))
	}
	header = append(header, "Total")
	addRow(sheet, header...)

	for _, fs := range res.Fields {
		row := []string{fs.Mapping.Secondary, fs.Mapping.Truth}
		for _, s := range model.AllStatuses {
			row = append(row, strconv.Itoa(fs.Counts[s]))
		}
		row = append(row, strconv.Itoa(fs.Total))
		addRow(sheet, row...)
	}

	return nil
}

func buildDatasetSummary(f *xlsx.File, res *model.AuditResult) error {
	sheet, err := f.AddSheet(DatasetSummarySheet)
	if err != nil {
		return eris.Wrap(err, "report: add dataset summary sheet")
	}

	addRow(sheet, "Metric", "Count")
	ds := res.Dataset
	for _, metric := range []struct {
		name  string
		count int
	}{
		{"Secondary Records", ds.SecondaryTotal},
		{"Truth Records", ds.TruthTotal},
		{"Matched Employees", ds.Matched},
		{"Secondary Only", ds.SecondaryOnly},
		{"Truth Only", ds.TruthOnly},
	} {
		addRow(sheet, metric.name, strconv.Itoa(metric.count))
	}

	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteFile is a convenience wrapper that refuses to clobber an existing
// report unless overwrite is set.
func WriteFile(res *model.AuditResult, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return eris.Errorf("report: %s already exists (use --overwrite)", path)
		}
	}
	return Write(res, path)
}
