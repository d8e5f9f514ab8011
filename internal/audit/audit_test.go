package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-audit/internal/model"
	"github.com/sells-group/census-audit/internal/normalize"
	"github.com/sells-group/census-audit/internal/rules"
)

func newTable(t *testing.T, name string, source model.Source, headers []string, rows [][]string) *model.Table {
	t.Helper()
	table := model.NewTable(name, source, headers, normalize.HeaderKey)
	for i, row := range rows {
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(row) {
				fields[h] = row[j]
			}
		}
		table.Append(&model.Record{Source: source, Row: i + 1, Fields: fields})
	}
	return table
}

func fixtureInput(t *testing.T) Input {
	t.Helper()
	secondary := newTable(t, "secondary", model.SourceSecondary,
		[]string{"Employee ID", "Work Phone", "Employment Status", "Employer Name"},
		[][]string{
			{"E100", "1-555-123-4567", "Full-Time", "  Acme Corp"},
			{"E200", "555-000-1111", "Part Time", "Globex"},
			{"E300", "555-222-3333", "Terminated", "Initech"},
		})
	truth := newTable(t, "truth", model.SourceTruth,
		[]string{"Employee ID", "Phone", "Status", "Employer"},
		[][]string{
			{"E100", "5551234567", "Full Time", "Acme corp"},
			{"E200", "555-000-9999", "PT", ""},
			{"E400", "555-444-5555", "FT", "Umbrella"},
		})
	return Input{
		Secondary: secondary,
		Truth:     truth,
		Mappings: []model.FieldMapping{
			{Secondary: "Work Phone", Truth: "Phone"},
			{Secondary: "Employment Status", Truth: "Status"},
			{Secondary: "Employer Name", Truth: "Employer"},
		},
		SecondaryIDColumn: "Employee ID",
		TruthIDColumn:     "Employee ID",
	}
}

func TestRunHappyPath(t *testing.T) {
	runner := NewRunner(rules.Default())
	result, err := runner.Run(fixtureInput(t))
	require.NoError(t, err)

	// 2 matched + 1 secondary-only + 1 truth-only, 3 fields each.
	assert.Len(t, result.Details, 4*3)

	assert.Equal(t, model.DatasetSummary{
		SecondaryTotal: 3,
		TruthTotal:     3,
		Matched:        2,
		SecondaryOnly:  1,
		TruthOnly:      1,
	}, result.Dataset)

	byKey := make(map[string]model.ComparisonResult)
	for _, d := range result.Details {
		byKey[d.EmployeeID+"/"+d.Mapping.Secondary] = d
	}

	// Phone: country code vs bare digits agree.
	assert.Equal(t, model.StatusOK, byKey["E100/Work Phone"].Status)
	// Status vocabulary: Full-Time vs Full Time agree.
	assert.Equal(t, model.StatusOK, byKey["E100/Employment Status"].Status)
	// Employer: case/whitespace differences agree via fuzzy equality.
	assert.Equal(t, model.StatusOK, byKey["E100/Employer Name"].Status)
	// Genuine phone discrepancy.
	assert.Equal(t, model.StatusMismatch, byKey["E200/Work Phone"].Status)
	// Value present only in secondary.
	assert.Equal(t, model.StatusMissingInTruth, byKey["E200/Employer Name"].Status)
}

func TestRunUnmatchedEmployees(t *testing.T) {
	runner := NewRunner(rules.Default())
	result, err := runner.Run(fixtureInput(t))
	require.NoError(t, err)

	var e300, e400 []model.ComparisonResult
	for _, d := range result.Details {
		switch d.EmployeeID {
		case "E300":
			e300 = append(e300, d)
		case "E400":
			e400 = append(e400, d)
		}
	}

	// Every field of a one-sided employee is fixed by membership.
	require.Len(t, e300, 3)
	for _, d := range e300 {
		assert.Equal(t, model.StatusMissingInTruth, d.Status)
		assert.Empty(t, d.TruthValue)
	}
	require.Len(t, e400, 3)
	for _, d := range e400 {
		assert.Equal(t, model.StatusMissingInSecondary, d.Status)
		assert.Empty(t, d.SecondaryValue)
	}
}

func TestRunDetailOrderDeterministic(t *testing.T) {
	runner := NewRunner(rules.Default())

	first, err := runner.Run(fixtureInput(t))
	require.NoError(t, err)
	second, err := runner.Run(fixtureInput(t))
	require.NoError(t, err)

	assert.Equal(t, first.Details, second.Details)
	assert.Equal(t, first.Fields, second.Fields)
	assert.Equal(t, first.Dataset, second.Dataset)

	// Matched pairs in secondary row order, fields in mapping order.
	assert.Equal(t, "E100", first.Details[0].EmployeeID)
	assert.Equal(t, "Work Phone", first.Details[0].Mapping.Secondary)
	assert.Equal(t, "Employment Status", first.Details[1].Mapping.Secondary)
	assert.Equal(t, "E200", first.Details[3].EmployeeID)
}

func TestRunConfigurationErrorUnknownColumn(t *testing.T) {
	in := fixtureInput(t)
	in.Mappings[2].Truth = "Zip Cod" // typo: no such truth header

	runner := NewRunner(rules.Default())
	result, err := runner.Run(in)

	require.Error(t, err)
	assert.Nil(t, result, "no partial output on fatal errors")

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "truth", cfgErr.Dataset)
	assert.Equal(t, "Zip Cod", cfgErr.Column)
}

func TestRunConfigurationErrorIdentifier(t *testing.T) {
	in := fixtureInput(t)
	in.Secondary = newTable(t, "secondary", model.SourceSecondary,
		[]string{"Badge", "Work Phone"}, [][]string{{"1", "555"}})

	runner := NewRunner(rules.Default())
	_, err := runner.Run(in)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "secondary", cfgErr.Dataset)
}

func TestRunEmptyDataset(t *testing.T) {
	in := fixtureInput(t)
	in.Truth = newTable(t, "truth", model.SourceTruth, []string{"Employee ID"}, nil)

	runner := NewRunner(rules.Default())
	_, err := runner.Run(in)

	var emptyErr *EmptyDatasetError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, "truth", emptyErr.Dataset)
}

func TestRunDropsIdentifierMappings(t *testing.T) {
	in := fixtureInput(t)
	// Users sometimes map the join key itself; it must not be audited.
	in.Mappings = append([]model.FieldMapping{{Secondary: "Employee ID", Truth: "Employee ID"}}, in.Mappings...)

	runner := NewRunner(rules.Default())
	result, err := runner.Run(in)
	require.NoError(t, err)

	require.Len(t, result.Fields, 3)
	for _, fs := range result.Fields {
		assert.NotEqual(t, "Employee ID", fs.Mapping.Secondary)
	}
}

func TestRunDuplicateMappingLastWins(t *testing.T) {
	in := fixtureInput(t)
	// A stale duplicate row pointing at a column that no longer exists must
	// not fail the run: the later row supersedes it before validation.
	in.Mappings = append([]model.FieldMapping{{Secondary: "Work Phone", Truth: "Old Phone Column"}}, in.Mappings...)

	runner := NewRunner(rules.Default())
	result, err := runner.Run(in)
	require.NoError(t, err)

	require.Len(t, result.Fields, 3)
	assert.Equal(t, "Phone", result.Fields[0].Mapping.Truth)
}

func TestValidateReportsEffectiveRun(t *testing.T) {
	in := fixtureInput(t)
	// Identifier rows and stale duplicates must vanish from the effective
	// mapping list exactly as they do in a run.
	in.Mappings = append([]model.FieldMapping{
		{Secondary: "Employee ID", Truth: "Employee ID"},
		{Secondary: "Work Phone", Truth: "Old Phone Column"},
	}, in.Mappings...)

	runner := NewRunner(rules.Default())
	v, err := runner.Validate(in)
	require.NoError(t, err)

	assert.Equal(t, "Employee ID", v.SecondaryIDColumn)
	assert.Equal(t, "Employee ID", v.TruthIDColumn)

	require.Len(t, v.Mappings, 3)
	assert.Equal(t, "Phone", v.Mappings[0].Truth)
	assert.Equal(t, normalize.KindPhone, v.Mappings[0].Kind)
	assert.Equal(t, normalize.KindStatus, v.Mappings[1].Kind)
}

func TestValidateEmptyDataset(t *testing.T) {
	in := fixtureInput(t)
	// Header-only sheet: parses fine, has no data rows.
	in.Truth = newTable(t, "truth", model.SourceTruth, []string{"Employee ID", "Phone"}, nil)

	runner := NewRunner(rules.Default())
	v, err := runner.Validate(in)

	require.Error(t, err)
	assert.Nil(t, v)
	var emptyErr *EmptyDatasetError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, "truth", emptyErr.Dataset)
}

func TestValidateUnknownColumn(t *testing.T) {
	in := fixtureInput(t)
	in.Mappings[2].Truth = "Zip Cod"

	_, err := NewRunner(rules.Default()).Validate(in)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Zip Cod", cfgErr.Column)
}

func TestRunPayTypeSkip(t *testing.T) {
	secondary := newTable(t, "secondary", model.SourceSecondary,
		[]string{"Employee ID", "Pay Type", "Annual Salary", "Hourly Pay Rate"},
		[][]string{
			{"E1", "Hourly", "0", "17.50"},
			{"E2", "Salary", "90000", "0"},
		})
	truth := newTable(t, "truth", model.SourceTruth,
		[]string{"Employee ID", "Pay Type", "Annual Salary", "Hourly Pay Rate"},
		[][]string{
			{"E1", "Hourly", "99999", "17.5"},
			{"E2", "Salary", "90,000.00", "55"},
		})
	in := Input{
		Secondary: secondary,
		Truth:     truth,
		Mappings: []model.FieldMapping{
			{Secondary: "Annual Salary", Truth: "Annual Salary"},
			{Secondary: "Hourly Pay Rate", Truth: "Hourly Pay Rate"},
		},
		SecondaryIDColumn: "Employee ID",
		TruthIDColumn:     "Employee ID",
	}

	runner := NewRunner(rules.Default())
	result, err := runner.Run(in)
	require.NoError(t, err)

	byKey := make(map[string]model.Status)
	for _, d := range result.Details {
		byKey[d.EmployeeID+"/"+d.Mapping.Secondary] = d.Status
	}

	// Hourly employee: salary comparison does not apply, rate does.
	assert.Equal(t, model.StatusSkipped, byKey["E1/Annual Salary"])
	assert.Equal(t, model.StatusOK, byKey["E1/Hourly Pay Rate"])
	// Salaried employee: the reverse.
	assert.Equal(t, model.StatusOK, byKey["E2/Annual Salary"])
	assert.Equal(t, model.StatusSkipped, byKey["E2/Hourly Pay Rate"])

	// Skips count in totals but never as OK or MISMATCH.
	salary := result.Fields[0]
	assert.Equal(t, 1, salary.Counts[model.StatusSkipped])
	assert.Equal(t, 1, salary.Counts[model.StatusOK])
	assert.Equal(t, 0, salary.Counts[model.StatusMismatch])
	assert.Equal(t, 2, salary.Total)
}

func TestRunContextColumns(t *testing.T) {
	runner := NewRunner(rules.Default())
	result, err := runner.Run(fixtureInput(t))
	require.NoError(t, err)

	// Only Employment Status exists in the fixture (no Pay Type anywhere).
	require.Equal(t, []string{"Employment Status"}, result.ContextColumns)

	for _, d := range result.Details {
		if d.EmployeeID != "E100" {
			continue
		}
		// The truth sheet has no Employment Status column, so the value
		// falls back to the secondary row.
		require.Len(t, d.Context, 1)
		assert.Equal(t, "Full-Time", d.Context[0])
	}
}

func TestRunContextPrefersTruth(t *testing.T) {
	secondary := newTable(t, "secondary", model.SourceSecondary,
		[]string{"Employee ID", "Employment Status", "Name"},
		[][]string{{"E1", "Active", "Alice"}})
	truth := newTable(t, "truth", model.SourceTruth,
		[]string{"Employee ID", "Employment Status", "Name"},
		[][]string{{"E1", "Terminated", "Alice"}})
	in := Input{
		Secondary:         secondary,
		Truth:             truth,
		Mappings:          []model.FieldMapping{{Secondary: "Name", Truth: "Name"}},
		SecondaryIDColumn: "Employee ID",
		TruthIDColumn:     "Employee ID",
	}

	result, err := NewRunner(rules.Default()).Run(in)
	require.NoError(t, err)

	require.Len(t, result.Details, 1)
	require.Len(t, result.Details[0].Context, 1)
	assert.Equal(t, "Terminated", result.Details[0].Context[0])
}

func TestFieldSummaryCounts(t *testing.T) {
	runner := NewRunner(rules.Default())
	result, err := runner.Run(fixtureInput(t))
	require.NoError(t, err)

	require.Len(t, result.Fields, 3)
	phone := result.Fields[0]
	assert.Equal(t, model.FieldMapping{Secondary: "Work Phone", Truth: "Phone"}, phone.Mapping)
	assert.Equal(t, 4, phone.Total) // one row per employee in the union
	assert.Equal(t, 1, phone.Counts[model.StatusOK])
	assert.Equal(t, 1, phone.Counts[model.StatusMismatch])
	assert.Equal(t, 1, phone.Counts[model.StatusMissingInTruth])
	assert.Equal(t, 1, phone.Counts[model.StatusMissingInSecondary])
}
