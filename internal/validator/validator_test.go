package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/ports"
)

func TestNormalise(t *testing.T) {
	cases := map[string]string{
		"  L'Île-de-France! ": "l ile de france",
		"KEYBOARD":            "keyboard",
		"café\tcrème":         "cafe creme",
		"...":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalise(in), "Normalise(%q)", in)
	}
}

func TestCheckRiddle(t *testing.T) {
	step := domain.Step{ID: "r", Challenge: domain.Riddle{Answer: "Lighthouse"}}
	lenient := New(false)
	strict := New(true)

	cases := []struct {
		in      string
		lenient bool
		strict  bool
	}{
		{"lighthouse", true, true},
		{"  LIGHTHOUSE!", true, true},
		{"lighthuose", true, false},
		{"lamp post", false, false},
		{"boat", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		sub := ports.Submission{Text: tc.in}
		assert.Equal(t, tc.lenient, lenient.Check(step, sub), "lenient %q", tc.in)
		assert.Equal(t, tc.strict, strict.Check(step, sub), "strict %q", tc.in)
	}
}

func TestShortAndNumericAnswersMatchExactly(t *testing.T) {
	v := New(false)
	cases := []struct {
		answer, in string
		want       bool
	}{
		{"cat", "bat", false},
		{"cat", "CAT", true},
		{"north", "south", false},
		{"north", "North!", true},
		{"12", "13", false},
		{"7", "9", false},
		{"2024", "2025", false},
		{"platform 9", "platform 8", false},
		{"platform 9", "Platform 9", true},
		{"footsteps", "footstep", true},
		{"footsteps", "footnotes", false},
	}
	for _, tc := range cases {
		step := domain.Step{ID: "r", Challenge: domain.Riddle{Answer: tc.answer}}
		assert.Equal(t, tc.want, v.Check(step, ports.Submission{Text: tc.in}), "%q against %q", tc.in, tc.answer)
	}
}

func TestCheckChoice(t *testing.T) {
	step := domain.Step{ID: "c", Challenge: domain.Choice{Choices: []string{"a", "b", "c"}, CorrectIndex: 2}}
	v := New(false)
	assert.True(t, v.Check(step, ports.Submission{Index: 2}))
	assert.False(t, v.Check(step, ports.Submission{Index: 1}))
	assert.False(t, v.Check(step, ports.Submission{Index: -1}))
	assert.False(t, v.Check(step, ports.Submission{Index: 3}))
	assert.False(t, v.Check(step, ports.Submission{Text: "c"}), "choices are judged by index")
}

func TestCheckStepWithoutChallenge(t *testing.T) {
	assert.False(t, New(false).Check(domain.Step{ID: "x"}, ports.Submission{Text: "x"}))
}
