package sessions

import (
	"context"
	"time"

	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
)

// PurgeJob deletes expired refresh sessions. It implements cron.Job so it can
// be scheduled for stores that do not expire keys on their own.
type PurgeJob struct {
	purger  Purger
	timeout time.Duration
	now     func() time.Time
}

func NewPurgeJob(p Purger) *PurgeJob {
	return &PurgeJob{purger: p, timeout: 30 * time.Second, now: func() time.Time { return time.Now().UTC() }}
}

func (j *PurgeJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	n, err := j.purger.PurgeExpired(ctx, j.now())
	if err != nil {
		logger.Warnf("purge expired sessions: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("purged %d expired sessions", n)
	}
}
