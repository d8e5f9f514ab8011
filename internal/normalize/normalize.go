package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/sells-group/census-audit/internal/rules"
)

// Kind is the comparison semantics of a mapped field.
type Kind string

const (
	KindText    Kind = "text"
	KindPhone   Kind = "phone"
	KindStatus  Kind = "status"
	KindZip     Kind = "zip"
	KindInitial Kind = "initial"
	KindNumber  Kind = "number"
)

// Normalizer converts raw census values into canonical comparable forms.
// All methods are pure; the rule set is fixed at construction. Safe for
// concurrent use.
type Normalizer struct {
	sentinels map[string]bool
	synonyms  map[string]string // folded synonym -> canonical token
	kinds     map[string]Kind   // folded column name -> pinned kind
}

// New builds a Normalizer from a rule set.
func New(r *rules.Rules) *Normalizer {
	n := &Normalizer{
		sentinels: make(map[string]bool, len(r.NullSentinels)),
		synonyms:  make(map[string]string),
		kinds:     make(map[string]Kind, len(r.Kinds)),
	}
	for _, s := range r.NullSentinels {
		n.sentinels[n.Fold(strings.TrimSpace(s))] = true
	}
	for canonical, syns := range r.StatusSynonyms {
		for _, s := range syns {
			n.synonyms[n.Fold(CollapseWhitespace(s))] = canonical
		}
		// The canonical token maps to itself.
		n.synonyms[n.Fold(canonical)] = canonical
	}
	for col, kind := range r.Kinds {
		n.kinds[n.Fold(FoldHeader(col))] = Kind(kind)
	}
	return n
}

// Fold case-folds a string for comparison. A fresh caser per call: the
// x/text casers are stateful and must not be shared between goroutines.
func (n *Normalizer) Fold(s string) string {
	return cases.Fold().String(s)
}

// IsBlank reports whether a raw value is blank: empty after trimming, or a
// configured null sentinel. Blank values never undergo kind-specific
// normalization.
func (n *Normalizer) IsBlank(v string) bool {
	s := strings.TrimSpace(v)
	if s == "" {
		return true
	}
	return n.sentinels[n.Fold(s)]
}

// Normalize converts a raw value to its canonical form for the given kind.
// Unknown kinds fall back to generic text rules.
func (n *Normalizer) Normalize(v string, kind Kind) string {
	switch kind {
	case KindPhone:
		return NormalizePhone(v)
	case KindStatus:
		return n.normalizeStatus(v)
	case KindZip:
		return NormalizeZip(v)
	case KindInitial:
		return normalizeInitial(v)
	case KindNumber:
		if canon, ok := normalizeNumber(v); ok {
			return canon
		}
		return n.normalizeText(v)
	default:
		return n.normalizeText(v)
	}
}

// Key canonicalizes an identifier for joining: trailing ".0" from float
// exports stripped, whitespace collapsed, case folded, non-alphanumerics
// removed.
func (n *Normalizer) Key(v string) string {
	s := CleanIdentifier(v)
	var b strings.Builder
	for _, r := range n.Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// KindFor infers the field kind for a secondary column: a pinned kind from
// the rule file wins, then name-based inference, then generic text.
func (n *Normalizer) KindFor(column string) Kind {
	name := n.Fold(FoldHeader(column))
	if kind, ok := n.kinds[name]; ok {
		return kind
	}
	switch {
	case strings.Contains(name, "phone"):
		return KindPhone
	case strings.Contains(name, "zip"):
		return KindZip
	case strings.Contains(name, "middle initial"):
		return KindInitial
	case strings.Contains(name, "status"):
		return KindStatus
	case strings.Contains(name, "salary"),
		strings.Contains(name, "pay rate"),
		strings.Contains(name, "working hours"):
		return KindNumber
	default:
		return KindText
	}
}

func (n *Normalizer) normalizeText(v string) string {
	return n.Fold(CollapseWhitespace(v))
}

func (n *Normalizer) normalizeStatus(v string) string {
	s := n.normalizeText(v)
	if canonical, ok := n.synonyms[s]; ok {
		return canonical
	}
	return s
}

// NormalizePhone strips non-digits and drops a leading-one country code from
// 11-digit numbers. Digit strings of any other length pass through as-is and
// are compared literally.
func NormalizePhone(v string) string {
	d := digitsOnly(v)
	if len(d) == 11 && d[0] == '1' {
		return d[1:]
	}
	return d
}

// NormalizeZip keeps the first five digits of the digit string.
func NormalizeZip(v string) string {
	d := digitsOnly(v)
	if len(d) > 5 {
		return d[:5]
	}
	return d
}

func normalizeInitial(v string) string {
	s := strings.TrimSpace(v)
	for _, r := range s {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// normalizeNumber parses a decimal with thousands separators and currency
// prefixes stripped, returning a canonical rendering. ok is false when the
// value is not numeric.
func normalizeNumber(v string) (string, bool) {
	s := strings.TrimSpace(v)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// CleanIdentifier trims an identifier and strips the trailing ".0" that
// spreadsheet float coercion appends to numeric employee IDs.
func CleanIdentifier(v string) string {
	s := strings.TrimSpace(v)
	return strings.TrimSuffix(s, ".0")
}

// FoldHeader display-normalizes a column header: newlines, carriage returns,
// and non-breaking spaces become spaces, then whitespace runs collapse.
func FoldHeader(name string) string {
	s := strings.NewReplacer("\n", " ", "\r", " ", " ", " ").Replace(name)
	return CollapseWhitespace(s)
}

// HeaderKey is the lookup key for a column header: display-normalized, then
// case-folded. Tables index their headers by this key.
func HeaderKey(name string) string {
	return cases.Fold().String(FoldHeader(name))
}

// CollapseWhitespace trims a string and collapses internal whitespace runs
// to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
