package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/ports"
)

// AnswerValidator judges submissions. Riddle answers are compared after
// normalisation and, unless Strict, within a small edit distance.
type AnswerValidator struct {
	Strict bool
}

func New(strict bool) *AnswerValidator { return &AnswerValidator{Strict: strict} }

func (v *AnswerValidator) Check(step domain.Step, sub ports.Submission) bool {
	switch ch := step.Challenge.(type) {
	case domain.Riddle:
		return v.matchText(ch.Answer, sub.Text)
	case domain.Choice:
		return sub.Index >= 0 && sub.Index < len(ch.Choices) && sub.Index == ch.CorrectIndex
	default:
		return false
	}
}

func (v *AnswerValidator) matchText(expected, got string) bool {
	want := Normalise(expected)
	have := Normalise(got)
	if want == "" || have == "" {
		return false
	}
	if want == have {
		return true
	}
	if v.Strict {
		return false
	}
	return levenshtein.ComputeDistance(want, have) <= tolerance(want)
}

// tolerance is the number of edits a typo may cost. Short answers and
// anything containing a digit must match exactly: there one edit already
// lands on a different answer ("13" for "12", "bat" for "cat").
func tolerance(want string) int {
	if strings.IndexFunc(want, unicode.IsDigit) >= 0 {
		return 0
	}
	switch n := utf8.RuneCountInString(want); {
	case n < 6:
		return 0
	case n < 10:
		return 1
	default:
		return 2
	}
}

// Normalise folds case, strips accents, drops punctuation and collapses
// whitespace: "  L'Île-de-France! " becomes "l ile de france".
func Normalise(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = cases.Fold().String(stripped)

	var b strings.Builder
	lastSpace := true
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
