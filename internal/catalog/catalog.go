// Package catalog holds the immutable, ordered definition of a hunt.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"svw.info/hunt/internal/domain"
)

//go:embed data/hunt.example.yaml
var exampleHunt []byte

// Format names the encoding of a hunt definition.
type Format int

const (
	YAML Format = iota
	JSON
)

var (
	ErrEmptyID          = errors.New("step has no id")
	ErrDuplicateID      = errors.New("duplicate step id")
	ErrUnknownKind      = errors.New("unknown step type")
	ErrChoiceOutOfRange = errors.New("correctIndex out of range")
)

// rawStep mirrors the on-disk layout where kind-specific fields sit next to
// the common ones.
type rawStep struct {
	ID           string   `json:"id" yaml:"id"`
	Type         string   `json:"type" yaml:"type"`
	Title        string   `json:"title" yaml:"title"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Hint         string   `json:"hint,omitempty" yaml:"hint,omitempty"`
	Success      string   `json:"success,omitempty" yaml:"success,omitempty"`
	Answer       string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Choices      []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	CorrectIndex int      `json:"correctIndex,omitempty" yaml:"correctIndex,omitempty"`
}

type rawHunt struct {
	Title string    `json:"title" yaml:"title"`
	Steps []rawStep `json:"steps" yaml:"steps"`
}

// Catalog is safe for concurrent use; nothing mutates it after Parse.
type Catalog struct {
	title string
	steps []domain.Step
	index map[string]int
}

// Parse decodes and validates a hunt definition.
func Parse(data []byte, f Format) (*Catalog, error) {
	var raw rawHunt
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode hunt: %w", err)
	}

	c := &Catalog{
		title: raw.Title,
		steps: make([]domain.Step, 0, len(raw.Steps)),
		index: make(map[string]int, len(raw.Steps)),
	}
	for i, rs := range raw.Steps {
		id := strings.TrimSpace(rs.ID)
		if id == "" {
			return nil, fmt.Errorf("step %d: %w", i, ErrEmptyID)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("step %d %q: %w", i, id, ErrDuplicateID)
		}
		var ch domain.Challenge
		switch domain.StepKind(strings.ToLower(strings.TrimSpace(rs.Type))) {
		case domain.KindRiddle:
			ch = domain.Riddle{Answer: rs.Answer}
		case domain.KindChoice:
			if rs.CorrectIndex < 0 || rs.CorrectIndex >= len(rs.Choices) {
				return nil, fmt.Errorf("step %q: %w", id, ErrChoiceOutOfRange)
			}
			ch = domain.Choice{Choices: append([]string(nil), rs.Choices...), CorrectIndex: rs.CorrectIndex}
		default:
			return nil, fmt.Errorf("step %q type %q: %w", id, rs.Type, ErrUnknownKind)
		}
		c.index[id] = len(c.steps)
		c.steps = append(c.steps, domain.Step{
			ID:        id,
			Title:     rs.Title,
			Prompt:    rs.Prompt,
			Hint:      rs.Hint,
			Success:   rs.Success,
			Challenge: ch,
		})
	}
	return c, nil
}

// Open reads a hunt file; ".json" files are decoded as JSON, anything else as YAML.
func Open(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := YAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		f = JSON
	}
	return Parse(data, f)
}

// Default returns the bundled example hunt.
func Default() *Catalog {
	c, err := Parse(exampleHunt, YAML)
	if err != nil {
		panic("catalog: bundled hunt is invalid: " + err.Error())
	}
	return c
}

// Load returns the hunt. Every call yields an equal, independent copy.
func (c *Catalog) Load() domain.Hunt {
	steps := make([]domain.Step, len(c.steps))
	for i, s := range c.steps {
		if ch, ok := s.Challenge.(domain.Choice); ok {
			ch.Choices = append([]string(nil), ch.Choices...)
			s.Challenge = ch
		}
		steps[i] = s
	}
	return domain.Hunt{Title: c.title, Steps: steps}
}

func (c *Catalog) Title() string { return c.title }

func (c *Catalog) Len() int { return len(c.steps) }

// IndexOf returns the catalog position of id.
func (c *Catalog) IndexOf(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// IDAt returns the id of the step at i, or "" when i is out of range.
func (c *Catalog) IDAt(i int) string {
	if i < 0 || i >= len(c.steps) {
		return ""
	}
	return c.steps[i].ID
}

// Step looks a step up by id.
func (c *Catalog) Step(id string) (domain.Step, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Step{}, false
	}
	return c.steps[i], true
}
