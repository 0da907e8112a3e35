package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	decayCutoff int64
	decayStep   int
	trimCutoff  int64
	decayErr    error
}

func (f *fakeStore) DecayIdleRelationships(_ context.Context, beforeMS int64, decay int) (int, error) {
	f.decayCutoff = beforeMS
	f.decayStep = decay
	return 3, f.decayErr
}

func (f *fakeStore) TrimPersonaWindow(_ context.Context, beforeMS int64) (int, error) {
	f.trimCutoff = beforeMS
	return 5, nil
}

func TestNewSweeperRejectsBadCron(t *testing.T) {
	_, err := NewSweeper(&fakeStore{}, Options{CronExpr: "not cron"})
	require.Error(t, err)
}

func TestRunOnceUsesConfiguredCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	fs := &fakeStore{}
	sw, err := NewSweeper(fs, Options{
		CronExpr:        "0 4 * * *",
		DecayAfter:      14 * 24 * time.Hour,
		DecayStep:       2,
		WindowRetention: 30 * 24 * time.Hour,
		Now:             func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, sw.RunOnce(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -14).UnixMilli(), fs.decayCutoff)
	assert.Equal(t, 2, fs.decayStep)
	assert.Equal(t, now.AddDate(0, 0, -30).UnixMilli(), fs.trimCutoff)
}

func TestRunOnceStopsOnDecayError(t *testing.T) {
	fs := &fakeStore{decayErr: errors.New("locked")}
	sw, err := NewSweeper(fs, Options{CronExpr: "* * * * *"})
	require.NoError(t, err)

	err = sw.RunOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, fs.trimCutoff, "trim must not run after a decay failure")
}
