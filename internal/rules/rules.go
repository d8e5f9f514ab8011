package rules

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules holds the normalization and comparison policy for one deployment:
// blank sentinels, identifier aliases, status vocabulary, per-column field
// kinds, per-kind similarity strategies, and the pay-type skip rules.
type Rules struct {
	NullSentinels  []string            `yaml:"null_sentinels"`
	IDAliases      []string            `yaml:"id_aliases"`
	StatusSynonyms map[string][]string `yaml:"status_synonyms"`
	// Kinds pins a field kind per secondary column, overriding name-based
	// inference. Values: text, phone, status, zip, initial, number.
	Kinds          map[string]string           `yaml:"kinds"`
	Similarity     map[string]SimilarityConfig `yaml:"similarity"`
	ContextColumns []string                    `yaml:"context_columns"`
	PayTypeColumn  string                      `yaml:"pay_type_column"`
	SkipRules      []SkipRule                  `yaml:"skip_rules"`
}

// SimilarityConfig selects the fuzzy-equality strategy for one field kind.
type SimilarityConfig struct {
	Strategy  string  `yaml:"strategy"` // exact, levenshtein, containment, jaccard
	Threshold float64 `yaml:"threshold"`
}

// SkipRule suppresses comparison of pay-structure fields that do not apply
// to the employee's pay type (an hourly employee has no annual salary).
type SkipRule struct {
	WhenPayTypeContains string   `yaml:"when_pay_type_contains"`
	ColumnContains      []string `yaml:"column_contains"`
}

// Default returns the compiled-in rule set.
func Default() *Rules {
	return &Rules{
		NullSentinels: []string{"n/a", "na", "none", "null", "nan", "-", "--"},
		IDAliases: []string{
			"Employee ID",
			"Employee Code",
			"Employee",
			"Emp ID",
			"EE ID",
		},
		StatusSynonyms: map[string][]string{
			"FULL_TIME":  {"full-time", "full time", "ft", "fulltime", "active full time"},
			"PART_TIME":  {"part-time", "part time", "pt", "parttime"},
			"TERMINATED": {"terminated", "term", "inactive", "separated"},
			"LEAVE":      {"leave", "loa", "on leave", "leave of absence"},
		},
		Similarity: map[string]SimilarityConfig{
			"text": {Strategy: "levenshtein", Threshold: 0.85},
		},
		ContextColumns: []string{"Employment Status", "Pay Type"},
		PayTypeColumn:  "Pay Type",
		SkipRules: []SkipRule{
			{WhenPayTypeContains: "hour", ColumnContains: []string{"annual salary"}},
			{WhenPayTypeContains: "salar", ColumnContains: []string{"hourly pay rate", "working hours"}},
		},
	}
}

// Load reads a rule file and overlays it on the defaults. Only sections
// present in the file replace their default counterparts.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	// The YAML has a top-level "rules" key.
	var wrapper struct {
		Rules Rules `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}

	merged := merge(Default(), &wrapper.Rules)
	if err := merged.validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// validate rejects rule files that would silently misbehave; a misspelled
// strategy name must not degrade to exact equality unnoticed.
func (r *Rules) validate() error {
	for kind, sc := range r.Similarity {
		switch sc.Strategy {
		case "", "exact", "levenshtein", "containment", "jaccard":
		default:
			return eris.Errorf("rules: unknown similarity strategy %q for kind %q", sc.Strategy, kind)
		}
	}
	return nil
}

func merge(base, over *Rules) *Rules {
	if len(over.NullSentinels) > 0 {
		base.NullSentinels = over.NullSentinels
	}
	if len(over.IDAliases) > 0 {
		base.IDAliases = over.IDAliases
	}
	if len(over.StatusSynonyms) > 0 {
		base.StatusSynonyms = over.StatusSynonyms
	}
	if len(over.Kinds) > 0 {
		base.Kinds = over.Kinds
	}
	for kind, sc := range over.Similarity {
		if base.Similarity == nil {
			base.Similarity = map[string]SimilarityConfig{}
		}
		base.Similarity[kind] = sc
	}
	if len(over.ContextColumns) > 0 {
		base.ContextColumns = over.ContextColumns
	}
	if over.PayTypeColumn != "" {
		base.PayTypeColumn = over.PayTypeColumn
	}
	if len(over.SkipRules) > 0 {
		base.SkipRules = over.SkipRules
	}
	return base
}
