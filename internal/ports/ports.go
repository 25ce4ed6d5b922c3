package ports

import (
	"context"

	"svw.info/hunt/internal/domain"
)

// KeyValue is a string key-value store scoped to one namespace,
// the server-side counterpart of a browser's origin-scoped local storage.
type KeyValue interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Clear erases every key in the namespace.
	Clear(ctx context.Context) error
}

// Namespaces opens key-value namespaces, one per player session.
type Namespaces interface {
	Namespace(name string) KeyValue
}

// Submission is a player's answer to a step: text for riddles, an index for choices.
type Submission struct {
	Text  string
	Index int
}

// AnswerChecker judges a submission against a step's challenge.
type AnswerChecker interface {
	Check(step domain.Step, sub Submission) bool
}
