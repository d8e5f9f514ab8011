package compare

import (
	"go.uber.org/zap"

	"github.com/sells-group/census-audit/internal/model"
	"github.com/sells-group/census-audit/internal/normalize"
	"github.com/sells-group/census-audit/internal/rules"
)

// Comparator classifies one mapped field value pair into a status.
type Comparator struct {
	norm       *normalize.Normalizer
	strategies map[normalize.Kind]Strategy
}

// New builds a Comparator. Per-kind strategies come from the rule file;
// kinds without an entry use exact canonical equality.
func New(norm *normalize.Normalizer, r *rules.Rules) *Comparator {
	c := &Comparator{
		norm:       norm,
		strategies: make(map[normalize.Kind]Strategy, len(r.Similarity)),
	}
	for kind, sc := range r.Similarity {
		c.strategies[normalize.Kind(kind)] = buildStrategy(sc)
	}
	return c
}

func buildStrategy(sc rules.SimilarityConfig) Strategy {
	switch sc.Strategy {
	case "levenshtein":
		t := sc.Threshold
		if t <= 0 {
			t = 0.85
		}
		return Levenshtein{Threshold: t}
	case "containment":
		return Containment{}
	case "jaccard":
		t := sc.Threshold
		if t <= 0 {
			t = 0.6
		}
		return Jaccard{Threshold: t}
	case "", "exact":
		return Exact{}
	default:
		zap.L().Warn("unknown similarity strategy, falling back to exact equality",
			zap.String("strategy", sc.Strategy),
		)
		return Exact{}
	}
}

// Compare classifies a secondary/truth value pair. Precedence: blank checks,
// then the skip flag, then canonical equality, then the kind's similarity
// strategy. Returns the status and both canonical forms (empty for blanks).
func (c *Comparator) Compare(secondary, truth string, kind normalize.Kind, skip bool) (model.Status, string, string) {
	secBlank := c.norm.IsBlank(secondary)
	truthBlank := c.norm.IsBlank(truth)

	switch {
	case secBlank && truthBlank:
		return model.StatusMissingInBoth, "", ""
	case secBlank:
		return model.StatusMissingInSecondary, "", c.norm.Normalize(truth, kind)
	case truthBlank:
		return model.StatusMissingInTruth, c.norm.Normalize(secondary, kind), ""
	}

	secNorm := c.norm.Normalize(secondary, kind)
	truthNorm := c.norm.Normalize(truth, kind)

	if skip {
		return model.StatusSkipped, secNorm, truthNorm
	}
	if secNorm == truthNorm {
		return model.StatusOK, secNorm, truthNorm
	}
	if s, ok := c.strategies[kind]; ok && s.Equal(secNorm, truthNorm) {
		return model.StatusOK, secNorm, truthNorm
	}
	return model.StatusMismatch, secNorm, truthNorm
}
