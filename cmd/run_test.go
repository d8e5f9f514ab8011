package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func fixtureSheets() map[string][][]string {
	return map[string][][]string{
		"Secondary Data": {
			{"Employee ID", "Work Phone", "Employment Status"},
			{"E100", "1-555-123-4567", "Full-Time"},
			{"E200", "555-000-1111", "Part Time"},
		},
		"Truth Data": {
			{"Employee ID", "Phone", "Employment Status"},
			{"E100", "5551234567", "Full Time"},
			{"E300", "555-999-0000", "Terminated"},
		},
		"Mapping Sheet": {
			{"Secondary Column", "Truth Column"},
			{"Work Phone", "Phone"},
			{"Employment Status", "Employment Status"},
		},
	}
}

func writeWorkbook(t *testing.T, dir string, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	// Fixed sheet order keeps the fixture reproducible.
	for _, name := range []string{"Secondary Data", "Truth Data", "Mapping Sheet"} {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cell := range rowData {
				row.AddCell().SetString(cell)
			}
		}
	}
	path := filepath.Join(dir, "census.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func writeFixtureWorkbook(t *testing.T, dir string) string {
	t.Helper()
	return writeWorkbook(t, dir, fixtureSheets())
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := chdirTemp(t)
	workbook := writeFixtureWorkbook(t, dir)
	out := filepath.Join(dir, "report.xlsx")

	_, err := execute(t, "run", "--workbook", workbook, "--out", out)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(out)
	require.NoError(t, err)

	detail, ok := f.Sheet["Comparison_Detail_AllFields"]
	require.True(t, ok)
	// 1 matched + 1 secondary-only + 1 truth-only employees x 2 fields + header.
	assert.Len(t, detail.Rows, 1+3*2)

	_, ok = f.Sheet["Field_Summary"]
	assert.True(t, ok)
	_, ok = f.Sheet["Dataset_Summary"]
	assert.True(t, ok)
}

func TestRunCommandRefusesClobber(t *testing.T) {
	dir := chdirTemp(t)
	workbook := writeFixtureWorkbook(t, dir)
	out := filepath.Join(dir, "report.xlsx")
	require.NoError(t, os.WriteFile(out, []byte("existing"), 0o644))

	_, err := execute(t, "run", "--workbook", workbook, "--out", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "run", "--workbook", workbook, "--out", out, "--overwrite")
	assert.NoError(t, err)
}

func TestCheckCommand(t *testing.T) {
	dir := chdirTemp(t)
	workbook := writeFixtureWorkbook(t, dir)

	out, err := execute(t, "check", "--workbook", workbook)
	require.NoError(t, err)

	assert.Contains(t, out, "secondary rows: 2")
	assert.Contains(t, out, "truth rows:     2")
	assert.Contains(t, out, "mappings:       2")
	assert.Contains(t, out, "Work Phone")
	assert.Contains(t, out, "(phone)")
}

func TestCheckCommandEmptyTruthSheet(t *testing.T) {
	dir := chdirTemp(t)
	sheets := fixtureSheets()
	// Header row only: the sheet parses but a run would refuse it.
	sheets["Truth Data"] = sheets["Truth Data"][:1]
	workbook := writeWorkbook(t, dir, sheets)

	_, err := execute(t, "check", "--workbook", workbook)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truth dataset has no data rows")
}

func TestCheckCommandIgnoresStaleDuplicateMapping(t *testing.T) {
	dir := chdirTemp(t)
	sheets := fixtureSheets()
	// A superseded duplicate row points at a column that no longer exists.
	// A run would drop it before validation, so check must pass too.
	sheets["Mapping Sheet"] = [][]string{
		{"Secondary Column", "Truth Column"},
		{"Work Phone", "Old Phone Column"},
		{"Work Phone", "Phone"},
		{"Employment Status", "Employment Status"},
	}
	workbook := writeWorkbook(t, dir, sheets)

	out, err := execute(t, "check", "--workbook", workbook)
	require.NoError(t, err)
	assert.Contains(t, out, "mappings:       2")
	assert.NotContains(t, out, "Old Phone Column")
}

func TestCheckCommandMissingWorkbook(t *testing.T) {
	dir := chdirTemp(t)

	_, err := execute(t, "check", "--workbook", filepath.Join(dir, "nope.xlsx"))
	assert.Error(t, err)
}
