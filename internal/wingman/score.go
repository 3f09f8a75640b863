package wingman

import (
	"regexp"
	"strconv"
)

// Score extraction modes.
const (
	// ScoreLabeled reads the number after a "Chemistry Score" label. Markdown
	// and punctuation around the label and a trailing "/100" are tolerated.
	ScoreLabeled = "labeled"
	// ScoreFirstInteger takes the first run of digits anywhere in the reply.
	ScoreFirstInteger = "first_integer"
)

var (
	labeledScore = regexp.MustCompile(`(?i)chemistry\s+score\W*(\d{1,3})(?:\s*/\s*100)?`)
	firstInteger = regexp.MustCompile(`\d+`)
)

// Score is an optional 0..100 chemistry value.
type Score struct {
	Value int
	Valid bool
}

// ExtractScore pulls the chemistry score out of a reply. A reply without a
// usable number yields an invalid Score, never zero.
func ExtractScore(text, mode string) Score {
	var digits string
	switch mode {
	case ScoreFirstInteger:
		digits = firstInteger.FindString(text)
	default:
		if m := labeledScore.FindStringSubmatch(text); m != nil {
			digits = m[1]
		}
	}
	if digits == "" {
		return Score{}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Score{}
	}
	if mode != ScoreFirstInteger && n > 100 {
		return Score{}
	}
	return Score{Value: n, Valid: true}
}
