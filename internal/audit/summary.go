package audit

import (
	"github.com/sells-group/census-audit/internal/model"
	"github.com/sells-group/census-audit/internal/resolve"
)

// BuildFieldSummaries folds detail rows into per-mapping status counts,
// preserving mapping order.
func BuildFieldSummaries(details []model.ComparisonResult, mappings []model.FieldMapping) []model.FieldSummary {
	summaries := make([]model.FieldSummary, len(mappings))
	byMapping := make(map[model.FieldMapping]int, len(mappings))
	for i, m := range mappings {
		summaries[i] = model.FieldSummary{
			Mapping: m,
			Counts:  make(map[model.Status]int, len(model.AllStatuses)),
		}
		byMapping[m] = i
	}

	for _, d := range details {
		i, ok := byMapping[d.Mapping]
		if !ok {
			continue
		}
		summaries[i].Counts[d.Status]++
		summaries[i].Total++
	}

	return summaries
}

// BuildDatasetSummary computes dataset-level totals from the join result.
func BuildDatasetSummary(secondary, truth *model.Table, join *resolve.JoinResult) model.DatasetSummary {
	return model.DatasetSummary{
		SecondaryTotal: secondary.Len(),
		TruthTotal:     truth.Len(),
		Matched:        len(join.Pairs),
		SecondaryOnly:  len(join.SecondaryOnly),
		TruthOnly:      len(join.TruthOnly),
	}
}
