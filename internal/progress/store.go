// Package progress tracks a player's way through a hunt: which steps are
// done, which step is current, and what navigation that allows.
//
// A Store is a single-actor state machine. It does no locking; callers that
// share one across goroutines serialise access themselves.
package progress

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/ports"
)

// NoStep is returned for step ids when the hunt has no steps.
const NoStep = ""

// Catalog is the view of the hunt definition the store needs.
type Catalog interface {
	Len() int
	IndexOf(id string) (int, bool)
	IDAt(i int) string
}

// Store owns the progress of one player and persists every change
// immediately under domain.KeyProgress.
type Store struct {
	cat Catalog
	kv  ports.KeyValue
	log *zap.Logger

	currentIndex   int
	done           map[string]bool
	stepValidation map[string]bool

	subs    map[int]func(domain.Snapshot)
	nextSub int
}

// New returns a store at the initial state. Call Load to hydrate it.
func New(cat Catalog, kv ports.KeyValue, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		cat:            cat,
		kv:             kv,
		log:            log,
		done:           map[string]bool{},
		stepValidation: map[string]bool{},
		subs:           map[int]func(domain.Snapshot){},
	}
}

// Load hydrates the store from its namespace. A missing record yields the
// initial state; missing or malformed fields default individually. A failed
// read is returned and leaves the store untouched.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, domain.KeyProgress)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	var r record
	if ok {
		r = decodeRecord(raw)
	}

	s.currentIndex = s.resolveIndex(r)
	s.done = make(map[string]bool, len(r.Done))
	for _, id := range r.Done {
		s.done[id] = true
	}
	s.stepValidation = make(map[string]bool, len(r.StepValidation))
	for _, p := range r.StepValidation {
		s.stepValidation[p.ID] = p.Valid
	}
	s.notify()
	return nil
}

// resolveIndex prefers the persisted step id so a reordered catalog still
// resumes on the same step, and keeps the index inside the catalog.
func (s *Store) resolveIndex(r record) int {
	if r.CurrentStepID != "" {
		if i, ok := s.cat.IndexOf(r.CurrentStepID); ok {
			return i
		}
	}
	i := r.CurrentIndex
	if n := s.cat.Len(); i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Save writes the current state as a single record.
func (s *Store) Save(ctx context.Context) error {
	r := record{
		CurrentIndex:  s.currentIndex,
		CurrentStepID: s.cat.IDAt(s.currentIndex),
		Done:          sortedKeys(s.done),
	}
	for _, id := range sortedKeys(s.stepValidation) {
		r.StepValidation = append(r.StepValidation, validationPair{ID: id, Valid: s.stepValidation[id]})
	}
	raw, err := encodeRecord(r)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, domain.KeyProgress, raw)
}

// commit persists and notifies after an applied mutation. Storage failures
// are logged; in-memory state stays authoritative.
func (s *Store) commit(ctx context.Context) {
	if err := s.Save(ctx); err != nil {
		s.log.Warn("progress save failed", zap.Error(err))
	}
	s.notify()
}

// MarkDone completes id and moves the cursor to it. Ids outside the catalog
// are still recorded but leave the cursor where it is.
func (s *Store) MarkDone(ctx context.Context, id string) {
	s.done[id] = true
	s.stepValidation[id] = true
	if i, ok := s.cat.IndexOf(id); ok {
		s.currentIndex = i
	}
	s.commit(ctx)
}

// RecordFailure notes a wrong answer for a step that is not done yet.
func (s *Store) RecordFailure(ctx context.Context, id string) {
	if s.done[id] {
		return
	}
	s.stepValidation[id] = false
	s.commit(ctx)
}

// GoNext advances one step if the current one is done.
func (s *Store) GoNext(ctx context.Context) bool {
	if !s.CanGoNext() {
		return false
	}
	s.currentIndex++
	s.commit(ctx)
	return true
}

// GoPrevious steps back; there is no completion requirement.
func (s *Store) GoPrevious(ctx context.Context) bool {
	if !s.CanGoPrevious() {
		return false
	}
	s.currentIndex--
	s.commit(ctx)
	return true
}

// GoToStep jumps to index; out-of-range requests are ignored.
func (s *Store) GoToStep(ctx context.Context, index int) bool {
	if index < 0 || index >= s.cat.Len() {
		return false
	}
	s.currentIndex = index
	s.commit(ctx)
	return true
}

// Reset returns to the initial state and wipes the whole namespace, not
// only the progress record.
func (s *Store) Reset(ctx context.Context) {
	s.currentIndex = 0
	s.done = map[string]bool{}
	s.stepValidation = map[string]bool{}
	if err := s.kv.Clear(ctx); err != nil {
		s.log.Warn("storage clear failed", zap.Error(err))
	}
	s.commit(ctx)
}

// IsHuntCompleted compares counts only: it assumes done never holds ids
// outside the catalog.
func (s *Store) IsHuntCompleted() bool {
	n := s.cat.Len()
	return n > 0 && len(s.done) == n
}

func (s *Store) CanGoNext() bool {
	if s.currentIndex >= s.cat.Len()-1 {
		return false
	}
	id := s.cat.IDAt(s.currentIndex)
	return id != "" && s.done[id]
}

func (s *Store) CanGoPrevious() bool { return s.currentIndex > 0 }

func (s *Store) IsStepCompleted(id string) bool { return s.done[id] }

func (s *Store) CurrentIndex() int { return s.currentIndex }

// CurrentStepID returns NoStep when the cursor is outside the catalog.
func (s *Store) CurrentStepID() string {
	return s.cat.IDAt(s.currentIndex)
}

// NextStepID is clamped to the last step.
func (s *Store) NextStepID() string {
	n := s.cat.Len()
	if n == 0 {
		return NoStep
	}
	next := s.currentIndex + 1
	if next > n-1 {
		next = n - 1
	}
	return s.cat.IDAt(next)
}

// ResumeIndex skips past the current step when it is already done and
// another step follows.
func (s *Store) ResumeIndex() int {
	id := s.cat.IDAt(s.currentIndex)
	if id != "" && s.done[id] && s.currentIndex+1 < s.cat.Len() {
		return s.currentIndex + 1
	}
	return s.currentIndex
}

func (s *Store) validation(id string) (valid, ok bool) {
	valid, ok = s.stepValidation[id]
	return valid, ok
}

// Snapshot copies the state together with every derived query.
func (s *Store) Snapshot() domain.Snapshot {
	val := make(map[string]bool, len(s.stepValidation))
	for k, v := range s.stepValidation {
		val[k] = v
	}
	return domain.Snapshot{
		CurrentIndex:    s.currentIndex,
		CurrentStepID:   s.CurrentStepID(),
		NextStepID:      s.NextStepID(),
		ResumeIndex:     s.ResumeIndex(),
		Done:            sortedKeys(s.done),
		StepValidation:  val,
		TotalSteps:      s.cat.Len(),
		CanGoNext:       s.CanGoNext(),
		CanGoPrevious:   s.CanGoPrevious(),
		IsHuntCompleted: s.IsHuntCompleted(),
	}
}

// state copies the raw persisted fields.
func (s *Store) state() domain.ProgressState {
	st := domain.ProgressState{
		CurrentIndex:   s.currentIndex,
		Done:           make(map[string]bool, len(s.done)),
		StepValidation: make(map[string]bool, len(s.stepValidation)),
	}
	for k := range s.done {
		st.Done[k] = true
	}
	for k, v := range s.stepValidation {
		st.StepValidation[k] = v
	}
	return st
}

// Subscribe registers fn to receive a snapshot after every load and applied
// mutation. The returned func removes it.
func (s *Store) Subscribe(fn func(domain.Snapshot)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Store) notify() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.subs {
		fn(snap)
	}
}
