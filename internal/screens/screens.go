// Package screens remembers which onboarding screens a player has seen.
package screens

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/ports"
)

// Store keeps each flag as its own "true"/"false" entry.
type Store struct {
	kv  ports.KeyValue
	log *zap.Logger

	hasSeenSplash bool
	hasSeenIntro  bool
}

func New(kv ports.KeyValue, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log}
}

// Load reads both flags; anything other than "true" counts as unseen. On a
// read error the flags keep their previous values.
func (s *Store) Load(ctx context.Context) error {
	splash, err := s.flag(ctx, domain.KeyHasSeenSplash)
	if err != nil {
		return err
	}
	intro, err := s.flag(ctx, domain.KeyHasSeenIntro)
	if err != nil {
		return err
	}
	s.hasSeenSplash, s.hasSeenIntro = splash, intro
	return nil
}

func (s *Store) flag(ctx context.Context, key string) (bool, error) {
	v, _, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	return v == "true", nil
}

func (s *Store) save(ctx context.Context) {
	for key, v := range map[string]bool{
		domain.KeyHasSeenSplash: s.hasSeenSplash,
		domain.KeyHasSeenIntro:  s.hasSeenIntro,
	} {
		if err := s.kv.Set(ctx, key, encode(v)); err != nil {
			s.log.Warn("screens save failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func encode(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func (s *Store) MarkSplashSeen(ctx context.Context) {
	s.hasSeenSplash = true
	s.save(ctx)
}

func (s *Store) MarkIntroSeen(ctx context.Context) {
	s.hasSeenIntro = true
	s.save(ctx)
}

// Reset marks both screens unseen. The intro flag is written as "false";
// the splash entry is removed outright.
func (s *Store) Reset(ctx context.Context) {
	s.hasSeenSplash = false
	s.hasSeenIntro = false
	s.save(ctx)
	if err := s.kv.Remove(ctx, domain.KeyHasSeenSplash); err != nil {
		s.log.Warn("screens reset failed", zap.Error(err))
	}
}

func (s *Store) State() domain.ScreensState {
	return domain.ScreensState{HasSeenSplash: s.hasSeenSplash, HasSeenIntro: s.hasSeenIntro}
}
