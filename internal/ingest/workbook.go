// Package ingest parses an uploaded census workbook into the tables and
// mapping list the audit engine consumes.
package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/census-audit/internal/model"
	"github.com/sells-group/census-audit/internal/normalize"
)

// Options names the sheets and mapping-sheet columns of a census workbook.
type Options struct {
	SecondarySheet string
	TruthSheet     string
	MappingSheet   string
	// Header names of the two mapping-sheet columns.
	MappingSecondaryColumn string
	MappingTruthColumn     string
}

// Workbook is a fully parsed census workbook.
type Workbook struct {
	Secondary *model.Table
	Truth     *model.Table
	Mappings  []model.FieldMapping
}

// Load parses a workbook from disk.
func Load(path string, opts Options) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open workbook %s", path)
	}
	return parse(f, opts)
}

// LoadBytes parses an in-memory workbook, e.g. an HTTP upload.
func LoadBytes(data []byte, opts Options) (*Workbook, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open workbook")
	}
	return parse(f, opts)
}

func parse(f *xlsx.File, opts Options) (*Workbook, error) {
	wb := &Workbook{}

	// The two data sheets are independent; parse them concurrently.
	var g errgroup.Group
	g.Go(func() error {
		t, err := parseTable(f, opts.SecondarySheet, "secondary", model.SourceSecondary)
		if err != nil {
			return err
		}
		wb.Secondary = t
		return nil
	})
	g.Go(func() error {
		t, err := parseTable(f, opts.TruthSheet, "truth", model.SourceTruth)
		if err != nil {
			return err
		}
		wb.Truth = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mappings, err := parseMappings(f, opts)
	if err != nil {
		return nil, err
	}
	wb.Mappings = mappings

	return wb, nil
}

// findSheet resolves a sheet name case-insensitively.
func findSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	want := normalize.HeaderKey(name)
	for _, sheet := range f.Sheets {
		if normalize.HeaderKey(sheet.Name) == want {
			return sheet, nil
		}
	}
	return nil, eris.Errorf("ingest: sheet %q not found in workbook", name)
}

func parseTable(f *xlsx.File, sheetName, datasetName string, source model.Source) (*model.Table, error) {
	sheet, err := findSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return model.NewTable(datasetName, source, nil, normalize.HeaderKey), nil
	}

	headers := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, normalize.FoldHeader(cell.String()))
	}

	table := model.NewTable(datasetName, source, headers, normalize.HeaderKey)

	for i, row := range sheet.Rows[1:] {
		fields := make(map[string]string, len(headers))
		empty := true
		for j, h := range headers {
			if h == "" {
				continue
			}
			var v string
			if j < len(row.Cells) {
				v = row.Cells[j].String()
			}
			if _, dup := fields[h]; dup {
				continue
			}
			fields[h] = v
			if v != "" {
				empty = false
			}
		}
		// Trailing all-empty rows are spreadsheet noise, not data.
		if empty {
			continue
		}
		table.Append(&model.Record{
			Source: source,
			Row:    i + 1,
			Fields: fields,
		})
	}

	return table, nil
}

func parseMappings(f *xlsx.File, opts Options) ([]model.FieldMapping, error) {
	sheet, err := findSheet(f, opts.MappingSheet)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: mapping sheet %q is empty", opts.MappingSheet)
	}

	secIdx, truthIdx := -1, -1
	for j, cell := range sheet.Rows[0].Cells {
		switch normalize.HeaderKey(cell.String()) {
		case normalize.HeaderKey(opts.MappingSecondaryColumn):
			if secIdx < 0 {
				secIdx = j
			}
		case normalize.HeaderKey(opts.MappingTruthColumn):
			if truthIdx < 0 {
				truthIdx = j
			}
		}
	}
	if secIdx < 0 {
		return nil, eris.Errorf("ingest: mapping sheet missing column %q", opts.MappingSecondaryColumn)
	}
	if truthIdx < 0 {
		return nil, eris.Errorf("ingest: mapping sheet missing column %q", opts.MappingTruthColumn)
	}

	var mappings []model.FieldMapping
	for _, row := range sheet.Rows[1:] {
		var sec, truth string
		if secIdx < len(row.Cells) {
			sec = normalize.FoldHeader(row.Cells[secIdx].String())
		}
		if truthIdx < len(row.Cells) {
			truth = normalize.FoldHeader(row.Cells[truthIdx].String())
		}
		if sec == "" && truth == "" {
			continue
		}
		mappings = append(mappings, model.FieldMapping{Secondary: sec, Truth: truth})
	}

	return mappings, nil
}
