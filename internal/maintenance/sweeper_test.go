package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	gotMaxAge time.Duration
	n         int64
	err       error
	calls     int
}

func (f *fakeArchiver) ArchiveStale(_ context.Context, maxAge time.Duration) (int64, error) {
	f.calls++
	f.gotMaxAge = maxAge
	return f.n, f.err
}

func TestSweeper_RunOncePassesTTL(t *testing.T) {
	repo := &fakeArchiver{n: 2}
	s := NewSweeper(repo, 30*24*time.Hour)

	s.runOnce()
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 30*24*time.Hour, repo.gotMaxAge)
}

func TestSweeper_ErrorDoesNotPanic(t *testing.T) {
	repo := &fakeArchiver{err: errors.New("db down")}
	s := NewSweeper(repo, time.Hour)
	s.runOnce()
	assert.Equal(t, 1, repo.calls)
}

func TestSweeper_DisabledWithoutTTL(t *testing.T) {
	repo := &fakeArchiver{}
	s := NewSweeper(repo, 0)
	require.NoError(t, s.Start())
	s.Stop()
	assert.Zero(t, repo.calls)
}
