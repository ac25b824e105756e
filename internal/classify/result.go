package classify

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical sentiment labels.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// Result is the canonical classification payload: exactly four keys, label
// title-cased, confidence rounded to two decimals, at most three evidence
// phrases.
type Result struct {
	Label           string   `json:"label"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation"`
	EvidencePhrases []string `json:"evidence_phrases"`
}

var labelCaser = cases.Title(language.Und)

// NormalizeLabel folds the shorthand variants providers emit into a canonical
// label. It accepts any casing and surrounding whitespace.
func NormalizeLabel(raw string) (string, error) {
	var folded string
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "pos", "p":
		folded = "positive"
	case "negative", "neg", "n":
		folded = "negative"
	case "neutral", "neu", "ntrl", "neut":
		folded = "neutral"
	default:
		return "", fmt.Errorf("unrecognized label %q", raw)
	}
	return labelCaser.String(folded), nil
}
