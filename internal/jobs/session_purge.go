// Package jobs holds the background work scheduled with robfig/cron.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aanand-mishra/institute-api/internal/storage"
)

// SessionPurgeJob deletes session records whose token has expired. A
// token older than the TTL is rejected by the signature check anyway,
// so its row only takes up space.
type SessionPurgeJob struct {
	sessions storage.Sessions
	ttl      time.Duration
	log      *slog.Logger
	now      func() time.Time
}

var _ cron.Job = (*SessionPurgeJob)(nil)

func NewSessionPurgeJob(sessions storage.Sessions, ttl time.Duration, log *slog.Logger) *SessionPurgeJob {
	return &SessionPurgeJob{sessions: sessions, ttl: ttl, log: log, now: time.Now}
}

// Run implements cron.Job.
func (j *SessionPurgeJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := j.now().Add(-j.ttl)
	n, err := j.sessions.DeleteSessionsIssuedBefore(ctx, cutoff)
	if err != nil {
		j.log.Error("session purge failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		j.log.Info("expired sessions purged", slog.Int64("count", n))
	}
}

// NewScheduler returns a cron scheduler with the purge job registered on
// schedule (e.g. "@every 15m"). The caller starts and stops it.
func NewScheduler(schedule string, job *SessionPurgeJob) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddJob(schedule, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(job)); err != nil {
		return nil, err
	}
	return c, nil
}
