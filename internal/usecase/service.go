package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"svw.info/hunt/internal/catalog"
	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/ports"
	"svw.info/hunt/internal/progress"
	"svw.info/hunt/internal/screens"
)

// Service is the application context: it owns the hunt definition and
// hydrates a progress/screens pair from storage for every session call.
// Nothing per player outlives a call except its persisted record.
type Service struct {
	Catalog *catalog.Catalog
	Storage ports.Namespaces
	Checker ports.AnswerChecker
	Log     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serialises calls for one session id. It is dropped once no
// call holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type session struct {
	progress *progress.Store
	screens  *screens.Store
}

func NewService(c *catalog.Catalog, st ports.Namespaces, chk ports.AnswerChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Catalog: c, Storage: st, Checker: chk, Log: log, locks: map[string]*sessionLock{}}
}

var (
	errNotConfigured = errors.New("usecase dependency not configured")

	ErrNoSession        = errors.New("missing session id")
	ErrUnknownStep      = errors.New("unknown step")
	ErrHuntNotCompleted = errors.New("hunt not completed")
)

// SubmitResult is the outcome of answering a step.
type SubmitResult struct {
	Correct  bool
	Success  string
	Progress domain.Snapshot
}

func (u *Service) ready() error {
	if u.Catalog == nil || u.Storage == nil {
		return errNotConfigured
	}
	return nil
}

func (u *Service) logger() *zap.Logger {
	if u.Log == nil {
		return zap.NewNop()
	}
	return u.Log
}

func (u *Service) lock(id string) *sessionLock {
	u.mu.Lock()
	if u.locks == nil {
		u.locks = map[string]*sessionLock{}
	}
	l, ok := u.locks[id]
	if !ok {
		l = &sessionLock{}
		u.locks[id] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return l
}

func (u *Service) unlock(id string, l *sessionLock) {
	l.mu.Unlock()
	u.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(u.locks, id)
	}
	u.mu.Unlock()
}

// with hydrates the session's stores and runs fn on them while holding the
// session lock. Storage work is detached from ctx cancellation so a dropped
// client cannot cut a write in half.
func (u *Service) with(ctx context.Context, id string, fn func(context.Context, *session)) error {
	if err := u.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNoSession
	}

	l := u.lock(id)
	defer u.unlock(id, l)

	ctx = context.WithoutCancel(ctx)
	s, err := u.open(ctx, id)
	if err != nil {
		u.logger().Warn("session load failed", zap.String("session", id), zap.Error(err))
		return fmt.Errorf("session %s: %w", id, err)
	}
	fn(ctx, s)
	return nil
}

func (u *Service) open(ctx context.Context, id string) (*session, error) {
	log := u.logger().With(zap.String("session", id))
	kv := u.Storage.Namespace(id)
	s := &session{
		progress: progress.New(u.Catalog, kv, log),
		screens:  screens.New(kv, log),
	}
	if err := s.progress.Load(ctx); err != nil {
		return nil, err
	}
	if err := s.screens.Load(ctx); err != nil {
		return nil, err
	}

	completed := s.progress.IsHuntCompleted()
	s.progress.Subscribe(func(snap domain.Snapshot) {
		log.Debug("progress changed",
			zap.Int("index", snap.CurrentIndex),
			zap.String("step", snap.CurrentStepID),
			zap.Int("done", len(snap.Done)),
		)
		if snap.IsHuntCompleted && !completed {
			log.Info("hunt completed", zap.Int("steps", snap.TotalSteps))
		}
		completed = snap.IsHuntCompleted
	})
	return s, nil
}

func (u *Service) Hunt() (domain.Hunt, error) {
	if u.Catalog == nil {
		return domain.Hunt{}, errNotConfigured
	}
	return u.Catalog.Load(), nil
}

func (u *Service) Progress(ctx context.Context, id string) (snap domain.Snapshot, err error) {
	err = u.with(ctx, id, func(_ context.Context, s *session) { snap = s.progress.Snapshot() })
	return snap, err
}

// Submit checks an answer; a correct one completes the step.
func (u *Service) Submit(ctx context.Context, id, stepID string, sub ports.Submission) (SubmitResult, error) {
	if u.Checker == nil {
		return SubmitResult{}, errNotConfigured
	}
	if err := u.ready(); err != nil {
		return SubmitResult{}, err
	}
	step, ok := u.Catalog.Step(stepID)
	if !ok {
		return SubmitResult{}, ErrUnknownStep
	}
	var res SubmitResult
	err := u.with(ctx, id, func(ctx context.Context, s *session) {
		res.Correct = u.Checker.Check(step, sub)
		if res.Correct {
			s.progress.MarkDone(ctx, step.ID)
			res.Success = step.Success
		} else {
			s.progress.RecordFailure(ctx, step.ID)
		}
		res.Progress = s.progress.Snapshot()
	})
	return res, err
}

func (u *Service) Next(ctx context.Context, id string) (applied bool, snap domain.Snapshot, err error) {
	err = u.with(ctx, id, func(ctx context.Context, s *session) {
		applied = s.progress.GoNext(ctx)
		snap = s.progress.Snapshot()
	})
	return applied, snap, err
}

func (u *Service) Previous(ctx context.Context, id string) (applied bool, snap domain.Snapshot, err error) {
	err = u.with(ctx, id, func(ctx context.Context, s *session) {
		applied = s.progress.GoPrevious(ctx)
		snap = s.progress.Snapshot()
	})
	return applied, snap, err
}

func (u *Service) GoTo(ctx context.Context, id string, index int) (applied bool, snap domain.Snapshot, err error) {
	err = u.with(ctx, id, func(ctx context.Context, s *session) {
		applied = s.progress.GoToStep(ctx, index)
		snap = s.progress.Snapshot()
	})
	return applied, snap, err
}

// Reset wipes the session's namespace and marks both onboarding screens
// unseen again.
func (u *Service) Reset(ctx context.Context, id string) (snap domain.Snapshot, err error) {
	err = u.with(ctx, id, func(ctx context.Context, s *session) {
		s.progress.Reset(ctx)
		s.screens.Reset(ctx)
		snap = s.progress.Snapshot()
	})
	return snap, err
}

// Resume returns where a returning player should land.
func (u *Service) Resume(ctx context.Context, id string) (index int, stepID string, err error) {
	err = u.with(ctx, id, func(_ context.Context, s *session) {
		index = s.progress.ResumeIndex()
		stepID = u.Catalog.IDAt(index)
	})
	return index, stepID, err
}

func (u *Service) Screens(ctx context.Context, id string) (st domain.ScreensState, err error) {
	err = u.with(ctx, id, func(_ context.Context, s *session) { st = s.screens.State() })
	return st, err
}

func (u *Service) MarkSplashSeen(ctx context.Context, id string) (st domain.ScreensState, err error) {
	err = u.with(ctx, id, func(ctx context.Context, s *session) {
		s.screens.MarkSplashSeen(ctx)
		st = s.screens.State()
	})
	return st, err
}

func (u *Service) MarkIntroSeen(ctx context.Context, id string) (st domain.ScreensState, err error) {
	err = u.with(ctx, id, func(ctx context.Context, s *session) {
		s.screens.MarkIntroSeen(ctx)
		st = s.screens.State()
	})
	return st, err
}

// Summary is only available once every step is done.
func (u *Service) Summary(ctx context.Context, id string) (domain.Hunt, domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := u.with(ctx, id, func(_ context.Context, s *session) { snap = s.progress.Snapshot() }); err != nil {
		return domain.Hunt{}, domain.Snapshot{}, err
	}
	if !snap.IsHuntCompleted {
		return domain.Hunt{}, snap, ErrHuntNotCompleted
	}
	return u.Catalog.Load(), snap, nil
}
