package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"svw.info/hunt/internal/catalog"
	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/infrastructure/storage"
	"svw.info/hunt/internal/ports"
	"svw.info/hunt/internal/validator"
)

func newService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return NewService(catalog.Default(), mem, validator.New(false), nil), mem
}

// answers for the bundled hunt
var solutions = []struct {
	id  string
	sub ports.Submission
}{
	{"step-1", ports.Submission{Text: "Keyboard"}},
	{"step-2", ports.Submission{Index: 1}},
	{"step-3", ports.Submission{Text: "footsteps"}},
	{"step-4", ports.Submission{Index: 1}},
	{"step-5", ports.Submission{Text: "light house"}},
}

func TestWalkThroughHunt(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)

	for i, sol := range solutions {
		res, err := u.Submit(ctx, "p1", sol.id, sol.sub)
		require.NoError(t, err)
		require.True(t, res.Correct, "step %s", sol.id)
		assert.Equal(t, i, res.Progress.CurrentIndex)

		if i < len(solutions)-1 {
			applied, snap, err := u.Next(ctx, "p1")
			require.NoError(t, err)
			require.True(t, applied)
			assert.Equal(t, i+1, snap.CurrentIndex)
		}
	}

	snap, err := u.Progress(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, snap.IsHuntCompleted)

	hunt, _, err := u.Summary(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "The Lighthouse Hunt", hunt.Title)
}

func TestWrongAnswerRecordsFailureAndGates(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)

	res, err := u.Submit(ctx, "p1", "step-1", ports.Submission{Text: "piano"})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Empty(t, res.Success)
	assert.Equal(t, map[string]bool{"step-1": false}, res.Progress.StepValidation)

	applied, _, err := u.Next(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, applied)

	_, _, err = u.Summary(ctx, "p1")
	assert.ErrorIs(t, err, ErrHuntNotCompleted)
}

func TestSubmitUnknownStep(t *testing.T) {
	u, _ := newService(t)
	_, err := u.Submit(context.Background(), "p1", "step-99", ports.Submission{Text: "x"})
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)

	_, err := u.Submit(ctx, "alice", "step-2", ports.Submission{Index: 1})
	require.NoError(t, err)

	a, err := u.Progress(ctx, "alice")
	require.NoError(t, err)
	b, err := u.Progress(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, a.CurrentIndex)
	assert.Equal(t, 0, b.CurrentIndex)
	assert.Empty(t, b.Done)
}

func TestProgressSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	u := NewService(catalog.Default(), mem, validator.New(false), nil)
	_, err := u.Submit(ctx, "p1", "step-1", ports.Submission{Text: "keyboard"})
	require.NoError(t, err)
	_, err = u.MarkIntroSeen(ctx, "p1")
	require.NoError(t, err)

	restarted := NewService(catalog.Default(), mem, validator.New(false), nil)
	snap, err := restarted.Progress(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"step-1"}, snap.Done)

	idx, stepID, err := restarted.Resume(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "step-2", stepID)

	st, err := restarted.Screens(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, st.HasSeenIntro)
	assert.False(t, st.HasSeenSplash)
}

func TestResetWipesScreensToo(t *testing.T) {
	ctx := context.Background()
	u, mem := newService(t)
	kv := mem.Namespace("p1")

	_, err := u.MarkSplashSeen(ctx, "p1")
	require.NoError(t, err)
	_, err = u.Submit(ctx, "p1", "step-1", ports.Submission{Text: "keyboard"})
	require.NoError(t, err)

	snap, err := u.Reset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Empty(t, snap.Done)

	st, err := u.Screens(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ScreensState{}, st)

	_, ok, err := kv.Get(ctx, domain.KeyHasSeenSplash)
	require.NoError(t, err)
	assert.False(t, ok)
	v, _, err := kv.Get(ctx, domain.KeyHasSeenIntro)
	require.NoError(t, err)
	assert.Equal(t, "false", v)
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)

	applied, snap, err := u.GoTo(ctx, "p1", 3)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "step-4", snap.CurrentStepID)

	applied, _, err = u.GoTo(ctx, "p1", 9)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, snap, err = u.Previous(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, snap.CurrentIndex)
}

func TestMissingSessionAndDependencies(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)
	_, err := u.Progress(ctx, "  ")
	assert.ErrorIs(t, err, ErrNoSession)

	empty := &Service{}
	_, err = empty.Progress(ctx, "p1")
	assert.ErrorIs(t, err, errNotConfigured)
	_, err = empty.Hunt()
	assert.ErrorIs(t, err, errNotConfigured)
}

func TestCompletionIsLoggedOnce(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	u := NewService(catalog.Default(), storage.NewMemory(), validator.New(false), zap.New(core))

	for _, sol := range solutions {
		_, err := u.Submit(ctx, "p1", sol.id, sol.sub)
		require.NoError(t, err)
	}
	// a repeat answer after completion does not log again
	_, err := u.Submit(ctx, "p1", "step-1", ports.Submission{Text: "keyboard"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("hunt completed").Len())
}

func TestConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, sol := range solutions {
				_, _ = u.Submit(ctx, id, sol.id, sol.sub)
				_, _, _ = u.Next(ctx, id)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		snap, err := u.Progress(ctx, id)
		require.NoError(t, err)
		assert.True(t, snap.IsHuntCompleted, id)
	}
}

// flakyStorage fails every read while down is set and otherwise behaves like
// its backing store. Reads with a cancelled context fail the way a database
// driver would.
type flakyStorage struct {
	*storage.Memory
	mu   sync.Mutex
	down bool
}

func (f *flakyStorage) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyStorage) Namespace(name string) ports.KeyValue {
	return flakyKV{KeyValue: f.Memory.Namespace(name), s: f}
}

type flakyKV struct {
	ports.KeyValue
	s *flakyStorage
}

func (k flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	k.s.mu.Lock()
	down := k.s.down
	k.s.mu.Unlock()
	if down {
		return "", false, errors.New("database is locked")
	}
	return k.KeyValue.Get(ctx, key)
}

func TestFailedReadNeverOverwritesProgress(t *testing.T) {
	ctx := context.Background()
	st := &flakyStorage{Memory: storage.NewMemory()}
	u := NewService(catalog.Default(), st, validator.New(false), nil)

	_, err := u.Submit(ctx, "p1", "step-1", ports.Submission{Text: "keyboard"})
	require.NoError(t, err)
	_, _, err = u.GoTo(ctx, "p1", 3)
	require.NoError(t, err)

	st.setDown(true)
	_, err = u.Progress(ctx, "p1")
	require.Error(t, err)
	_, _, err = u.GoTo(ctx, "p1", 1)
	require.Error(t, err, "no write may follow a failed read")
	st.setDown(false)

	snap, err := u.Progress(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.CurrentIndex)
	assert.Equal(t, []string{"step-1"}, snap.Done)
}

func TestCancelledRequestStillReadsStoredProgress(t *testing.T) {
	st := &flakyStorage{Memory: storage.NewMemory()}
	u := NewService(catalog.Default(), st, validator.New(false), nil)
	_, err := u.Submit(context.Background(), "p1", "step-1", ports.Submission{Text: "keyboard"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := u.Progress(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"step-1"}, snap.Done)
}

func TestNoPerSessionStateIsRetained(t *testing.T) {
	ctx := context.Background()
	u, _ := newService(t)

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := u.Progress(ctx, fmt.Sprintf("visitor-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	u.mu.Lock()
	defer u.mu.Unlock()
	assert.Empty(t, u.locks)
}
