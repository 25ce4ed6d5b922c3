package screens

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svw.info/hunt/internal/domain"
	"svw.info/hunt/internal/infrastructure/storage"
	"svw.info/hunt/internal/ports"
)

func TestMarkAndReload(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory().Namespace("p1")

	s := New(kv, nil)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, domain.ScreensState{}, s.State())

	s.MarkSplashSeen(ctx)
	v, ok, err := kv.Get(ctx, domain.KeyHasSeenSplash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", v)
	v, _, _ = kv.Get(ctx, domain.KeyHasSeenIntro)
	assert.Equal(t, "false", v)

	s.MarkIntroSeen(ctx)
	again := New(kv, nil)
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, domain.ScreensState{HasSeenSplash: true, HasSeenIntro: true}, again.State())
}

func TestLoadTreatsGarbageAsUnseen(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory().Namespace("p1")
	require.NoError(t, kv.Set(ctx, domain.KeyHasSeenSplash, "yes"))
	require.NoError(t, kv.Set(ctx, domain.KeyHasSeenIntro, "true"))

	s := New(kv, nil)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, domain.ScreensState{HasSeenIntro: true}, s.State())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory().Namespace("p1")
	s := New(kv, nil)
	s.MarkSplashSeen(ctx)
	s.MarkIntroSeen(ctx)

	s.Reset(ctx)
	assert.Equal(t, domain.ScreensState{}, s.State())

	_, ok, _ := kv.Get(ctx, domain.KeyHasSeenSplash)
	assert.False(t, ok, "splash entry removed")
	v, ok, _ := kv.Get(ctx, domain.KeyHasSeenIntro)
	require.True(t, ok)
	assert.Equal(t, "false", v)
}

type unreadableKV struct{ ports.KeyValue }

func (unreadableKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}

func TestLoadErrorKeepsFlags(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory().Namespace("p1")
	s := New(kv, nil)
	s.MarkIntroSeen(ctx)

	s.kv = unreadableKV{kv}
	require.Error(t, s.Load(ctx))
	assert.Equal(t, domain.ScreensState{HasSeenIntro: true}, s.State())
}
