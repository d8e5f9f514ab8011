// Package audit orchestrates one census reconciliation run: fail-fast input
// validation, identifier join, per-field comparison over every employee, and
// the summary fold.
package audit

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/census-audit/internal/compare"
	"github.com/sells-group/census-audit/internal/model"
	"github.com/sells-group/census-audit/internal/normalize"
	"github.com/sells-group/census-audit/internal/resolve"
	"github.com/sells-group/census-audit/internal/rules"
)

// Input is the full input contract of one audit run. ID columns are the
// configured names before alias fallback.
type Input struct {
	Secondary         *model.Table
	Truth             *model.Table
	Mappings          []model.FieldMapping
	SecondaryIDColumn string
	TruthIDColumn     string
}

// Runner executes audit runs. One Runner is reusable across runs; it holds
// no per-run state.
type Runner struct {
	rules *rules.Rules
	norm  *normalize.Normalizer
	cmp   *compare.Comparator
	res   *resolve.Resolver
}

// NewRunner wires the engine components from one rule set.
func NewRunner(r *rules.Rules) *Runner {
	norm := normalize.New(r)
	return &Runner{
		rules: r,
		norm:  norm,
		cmp:   compare.New(norm, r),
		res:   resolve.New(norm, r),
	}
}

// resolvedMapping is a FieldMapping with both columns resolved to display
// headers and the field kind fixed up front.
type resolvedMapping struct {
	model.FieldMapping
	secondaryCol string
	truthCol     string
	kind         normalize.Kind
}

// Validation is the outcome of the fail-fast checks: the resolved identifier
// columns and the effective mapping list a run would compare, after
// identifier rows drop out and duplicates collapse.
type Validation struct {
	SecondaryIDColumn string
	TruthIDColumn     string
	Mappings          []ValidatedMapping
}

// ValidatedMapping is one effective mapping with its inferred field kind.
type ValidatedMapping struct {
	model.FieldMapping
	Kind normalize.Kind
}

// Validate runs the same fail-fast checks as Run without comparing anything:
// both datasets non-empty, identifier columns resolve (with alias fallback),
// and every effective mapped column exists in its dataset.
func (r *Runner) Validate(in Input) (*Validation, error) {
	secIDCol, truthIDCol, mappings, err := r.validate(in)
	if err != nil {
		return nil, err
	}

	v := &Validation{SecondaryIDColumn: secIDCol, TruthIDColumn: truthIDCol}
	for _, m := range mappings {
		v.Mappings = append(v.Mappings, ValidatedMapping{FieldMapping: m.FieldMapping, Kind: m.kind})
	}
	return v, nil
}

// validate is the shared fail-fast path of Run and Validate.
func (r *Runner) validate(in Input) (string, string, []resolvedMapping, error) {
	if in.Secondary == nil || in.Secondary.Len() == 0 {
		return "", "", nil, &EmptyDatasetError{Dataset: "secondary"}
	}
	if in.Truth == nil || in.Truth.Len() == 0 {
		return "", "", nil, &EmptyDatasetError{Dataset: "truth"}
	}

	secIDCol, ok := r.res.ResolveIDColumn(in.Secondary, in.SecondaryIDColumn)
	if !ok {
		return "", "", nil, &ConfigurationError{Dataset: "secondary", Column: in.SecondaryIDColumn}
	}
	truthIDCol, ok := r.res.ResolveIDColumn(in.Truth, in.TruthIDColumn)
	if !ok {
		return "", "", nil, &ConfigurationError{Dataset: "truth", Column: in.TruthIDColumn}
	}

	mappings, err := r.resolveMappings(in, secIDCol)
	if err != nil {
		return "", "", nil, err
	}
	return secIDCol, truthIDCol, mappings, nil
}

// Run executes one audit. Fatal validation happens before any comparison:
// either both tables, all mapped columns, and both identifier columns
// resolve, or no output is produced.
func (r *Runner) Run(in Input) (*model.AuditResult, error) {
	log := zap.L().With(zap.String("component", "audit"))

	secIDCol, truthIDCol, mappings, err := r.validate(in)
	if err != nil {
		return nil, err
	}

	join := r.res.Join(in.Secondary, in.Truth, secIDCol, truthIDCol)

	ctxCols := r.resolveContextColumns(in)
	payTypeCol, _ := in.Secondary.ResolveColumn(r.rules.PayTypeColumn)

	result := &model.AuditResult{}
	for _, c := range ctxCols {
		result.ContextColumns = append(result.ContextColumns, c.name)
	}

	// Matched pairs first, in secondary row order; unmatched rows of either
	// side follow in their sheet's row order. Fields iterate in mapping
	// order throughout, which fixes the detail-row order for good.
	for _, pair := range join.Pairs {
		payType := ""
		if payTypeCol != "" {
			payType = r.norm.Fold(pair.Secondary.Value(payTypeCol))
		}
		for _, m := range mappings {
			secVal := pair.Secondary.Value(m.secondaryCol)
			truthVal := pair.Truth.Value(m.truthCol)
			skip := r.shouldSkip(m.Secondary, payType)

			status, secNorm, truthNorm := r.cmp.Compare(secVal, truthVal, m.kind, skip)
			result.Details = append(result.Details, model.ComparisonResult{
				EmployeeID:          pair.ID,
				Mapping:             m.FieldMapping,
				SecondaryValue:      secVal,
				TruthValue:          truthVal,
				SecondaryNormalized: secNorm,
				TruthNormalized:     truthNorm,
				Status:              status,
				Context:             r.contextValues(ctxCols, pair.Truth, pair.Secondary),
			})
		}
	}

	// Employees on one side only: every field's status is fixed by
	// membership, there is no counterpart to compare against.
	for _, rec := range join.SecondaryOnly {
		id := normalize.CleanIdentifier(rec.Value(secIDCol))
		ctx := r.contextValues(ctxCols, nil, rec)
		for _, m := range mappings {
			result.Details = append(result.Details, model.ComparisonResult{
				EmployeeID:     id,
				Mapping:        m.FieldMapping,
				SecondaryValue: rec.Value(m.secondaryCol),
				Status:         model.StatusMissingInTruth,
				Context:        ctx,
			})
		}
	}
	for _, rec := range join.TruthOnly {
		id := normalize.CleanIdentifier(rec.Value(truthIDCol))
		ctx := r.contextValues(ctxCols, rec, nil)
		for _, m := range mappings {
			result.Details = append(result.Details, model.ComparisonResult{
				EmployeeID: id,
				Mapping:    m.FieldMapping,
				TruthValue: rec.Value(m.truthCol),
				Status:     model.StatusMissingInSecondary,
				Context:    ctx,
			})
		}
	}

	plain := make([]model.FieldMapping, len(mappings))
	for i, m := range mappings {
		plain[i] = m.FieldMapping
	}
	result.Fields = BuildFieldSummaries(result.Details, plain)
	result.Dataset = BuildDatasetSummary(in.Secondary, in.Truth, join)

	log.Info("audit complete",
		zap.Int("employees_matched", result.Dataset.Matched),
		zap.Int("secondary_only", result.Dataset.SecondaryOnly),
		zap.Int("truth_only", result.Dataset.TruthOnly),
		zap.Int("fields", len(mappings)),
		zap.Int("detail_rows", len(result.Details)),
	)

	return result, nil
}

// resolveMappings validates and resolves the mapping list: duplicates on the
// secondary column collapse (last wins), identifier-column rows drop out, and
// any column absent from its dataset fails the run.
func (r *Runner) resolveMappings(in Input, secIDCol string) ([]resolvedMapping, error) {
	idKeys := make(map[string]bool, len(r.rules.IDAliases)+1)
	idKeys[r.norm.Fold(normalize.FoldHeader(secIDCol))] = true
	for _, alias := range r.rules.IDAliases {
		idKeys[r.norm.Fold(normalize.FoldHeader(alias))] = true
	}

	// Last occurrence wins between duplicate secondary columns.
	lastIdx := make(map[string]int, len(in.Mappings))
	for i, m := range in.Mappings {
		lastIdx[r.norm.Fold(normalize.FoldHeader(m.Secondary))] = i
	}

	var out []resolvedMapping
	for i, m := range in.Mappings {
		key := r.norm.Fold(normalize.FoldHeader(m.Secondary))
		if idKeys[key] || lastIdx[key] != i {
			continue
		}

		secCol, ok := in.Secondary.ResolveColumn(m.Secondary)
		if !ok {
			return nil, &ConfigurationError{Dataset: "secondary", Column: m.Secondary}
		}
		truthCol, ok := in.Truth.ResolveColumn(m.Truth)
		if !ok {
			return nil, &ConfigurationError{Dataset: "truth", Column: m.Truth}
		}

		out = append(out, resolvedMapping{
			FieldMapping: m,
			secondaryCol: secCol,
			truthCol:     truthCol,
			kind:         r.norm.KindFor(m.Secondary),
		})
	}
	return out, nil
}

// shouldSkip reports whether a pay-structure field does not apply to the
// employee's pay type ("annual salary" for hourly staff and vice versa).
func (r *Runner) shouldSkip(secondaryColumn, foldedPayType string) bool {
	if foldedPayType == "" {
		return false
	}
	col := r.norm.Fold(normalize.FoldHeader(secondaryColumn))
	for _, rule := range r.rules.SkipRules {
		if !strings.Contains(foldedPayType, r.norm.Fold(rule.WhenPayTypeContains)) {
			continue
		}
		for _, frag := range rule.ColumnContains {
			if strings.Contains(col, r.norm.Fold(frag)) {
				return true
			}
		}
	}
	return false
}

// contextColumn is a review-only column resolved against both tables up
// front; either display header may be empty when the table lacks it.
type contextColumn struct {
	name         string
	secondaryCol string
	truthCol     string
}

// resolveContextColumns keeps the configured context columns that exist in
// at least one dataset. Context is review-only, so absent columns are not an
// error.
func (r *Runner) resolveContextColumns(in Input) []contextColumn {
	var cols []contextColumn
	for _, name := range r.rules.ContextColumns {
		c := contextColumn{name: normalize.FoldHeader(name)}
		c.secondaryCol, _ = in.Secondary.ResolveColumn(name)
		c.truthCol, _ = in.Truth.ResolveColumn(name)
		if c.secondaryCol != "" || c.truthCol != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// contextValues pulls context column values, preferring the truth record.
func (r *Runner) contextValues(cols []contextColumn, truth, secondary *model.Record) []string {
	if len(cols) == 0 {
		return nil
	}
	vals := make([]string, len(cols))
	for i, c := range cols {
		if truth != nil && c.truthCol != "" {
			if v := truth.Value(c.truthCol); v != "" {
				vals[i] = v
				continue
			}
		}
		if secondary != nil && c.secondaryCol != "" {
			vals[i] = secondary.Value(c.secondaryCol)
		}
	}
	return vals
}
