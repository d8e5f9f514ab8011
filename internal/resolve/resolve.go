package resolve

import (
	"go.uber.org/zap"

	"github.com/sells-group/census-audit/internal/model"
	"github.com/sells-group/census-audit/internal/normalize"
	"github.com/sells-group/census-audit/internal/rules"
)

// MatchedPair is a secondary/truth record pair sharing a resolved employee
// identifier. ID is the cleaned display identifier from the secondary row.
type MatchedPair struct {
	ID        string
	Secondary *model.Record
	Truth     *model.Record
}

// JoinResult partitions the union of both record sets. Pairs follow secondary
// row order; the Only slices follow their sheet's row order.
type JoinResult struct {
	Pairs         []MatchedPair
	SecondaryOnly []*model.Record
	TruthOnly     []*model.Record
	// DuplicateTruthIDs lists normalized identifiers that occurred more than
	// once in the truth set. First occurrence wins; later rows join TruthOnly.
	DuplicateTruthIDs []string
}

// Resolver joins secondary records to truth records on a normalized
// identifier, with alias fallback for the identifier column itself.
type Resolver struct {
	norm    *normalize.Normalizer
	aliases []string
}

// New creates a Resolver using the rule file's identifier aliases.
func New(norm *normalize.Normalizer, r *rules.Rules) *Resolver {
	return &Resolver{norm: norm, aliases: r.IDAliases}
}

// ResolveIDColumn finds the identifier column in a table: the configured
// name first, then each alias in rule-file order; all matches are
// case-insensitive. Returns false when nothing resolves.
func (r *Resolver) ResolveIDColumn(t *model.Table, configured string) (string, bool) {
	candidates := make([]string, 0, len(r.aliases)+1)
	if configured != "" {
		candidates = append(candidates, configured)
	}
	candidates = append(candidates, r.aliases...)

	for _, name := range candidates {
		if display, ok := t.ResolveColumn(name); ok {
			return display, ok
		}
	}
	return "", false
}

// Join matches every secondary record to at most one truth record. The truth
// set is authoritative: on duplicate normalized truth identifiers the first
// row wins and later rows are surfaced as truth-only. Iteration is strictly
// by row order so the output is reproducible.
func (r *Resolver) Join(secondary, truth *model.Table, secondaryIDCol, truthIDCol string) *JoinResult {
	log := zap.L().With(zap.String("component", "resolver"))

	index := make(map[string]int, truth.Len())
	var dups []string
	for i, rec := range truth.Records {
		key := r.norm.Key(rec.Value(truthIDCol))
		if key == "" {
			continue
		}
		if _, seen := index[key]; seen {
			dups = append(dups, key)
			log.Warn("duplicate identifier in truth set",
				zap.String("identifier", key),
				zap.Int("row", rec.Row),
			)
			continue
		}
		index[key] = i
	}

	res := &JoinResult{DuplicateTruthIDs: dups}
	matched := make(map[int]bool, truth.Len())

	for _, rec := range secondary.Records {
		raw := rec.Value(secondaryIDCol)
		key := r.norm.Key(raw)
		if key == "" {
			res.SecondaryOnly = append(res.SecondaryOnly, rec)
			continue
		}
		i, ok := index[key]
		if !ok {
			res.SecondaryOnly = append(res.SecondaryOnly, rec)
			continue
		}
		matched[i] = true
		res.Pairs = append(res.Pairs, MatchedPair{
			ID:        normalize.CleanIdentifier(raw),
			Secondary: rec,
			Truth:     truth.Records[i],
		})
	}

	for i, rec := range truth.Records {
		if !matched[i] {
			res.TruthOnly = append(res.TruthOnly, rec)
		}
	}

	log.Debug("join complete",
		zap.Int("matched", len(res.Pairs)),
		zap.Int("secondary_only", len(res.SecondaryOnly)),
		zap.Int("truth_only", len(res.TruthOnly)),
		zap.Int("duplicate_truth_ids", len(dups)),
	)

	return res
}
