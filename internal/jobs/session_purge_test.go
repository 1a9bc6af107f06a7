package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
)

type fakeSessions struct {
	storage.Sessions // only DeleteSessionsIssuedBefore is called

	cutoff time.Time
	calls  int
	err    error
}

func (f *fakeSessions) DeleteSessionsIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 3, f.err
}

func TestSessionPurgeJobUsesTTLCutoff(t *testing.T) {
	fake := &fakeSessions{}
	job := NewSessionPurgeJob(fake, time.Hour, logger.Discard())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	job.Run()

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, now.Add(-time.Hour), fake.cutoff)
}

func TestSessionPurgeJobSurvivesStoreError(t *testing.T) {
	fake := &fakeSessions{err: errors.New("database is locked")}
	job := NewSessionPurgeJob(fake, time.Hour, logger.Discard())

	assert.NotPanics(t, job.Run)
	assert.Equal(t, 1, fake.calls)
}

func TestNewScheduler(t *testing.T) {
	job := NewSessionPurgeJob(&fakeSessions{}, time.Hour, logger.Discard())

	c, err := NewScheduler("@every 15m", job)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = NewScheduler("not a schedule", job)
	assert.Error(t, err)
}
