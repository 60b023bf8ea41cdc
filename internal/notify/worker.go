package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"brhygiene/internal/logging"
	"brhygiene/internal/metrics"
)

const defaultClaimBatch = 20

// RetryWorker redelivers notifications from the outbox.
type RetryWorker struct {
	outbox      *Outbox
	notifier    *Notifier
	interval    time.Duration
	timeout     time.Duration
	maxAttempts int
	batch       int
	log         *logrus.Entry
}

// NewRetryWorker creates a worker polling every interval. A job is
// dead-lettered once it has failed maxAttempts times in total.
func NewRetryWorker(outbox *Outbox, notifier *Notifier, interval, timeout time.Duration, maxAttempts int) *RetryWorker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RetryWorker{
		outbox:      outbox,
		notifier:    notifier,
		interval:    interval,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		batch:       defaultClaimBatch,
		log:         logging.For("notify-retry"),
	}
}

// Run polls the outbox until ctx is cancelled.
func (w *RetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("retry worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("retry worker stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := w.ProcessDue(ctx, now); err != nil {
				w.log.WithError(err).Error("retry pass failed")
			}
		}
	}
}

// ProcessDue redelivers the jobs due at now and returns how many were
// delivered. Failed jobs are rescheduled with linear backoff.
func (w *RetryWorker) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	jobs, err := w.outbox.Claim(ctx, now, w.batch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, job := range jobs {
		log := w.log.WithFields(logrus.Fields{
			"job_id":     job.ID,
			"kind":       job.Kind,
			"inquiry_id": job.Inquiry.ID,
			"attempt":    job.Attempt + 1,
		})

		sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.notifier.Deliver(sendCtx, job.Kind, job.Inquiry)
		cancel()

		if err == nil {
			delivered++
			metrics.RecordOutbox("delivered")
			log.Info("queued notification delivered")
			continue
		}

		job.Attempt++
		job.LastError = err.Error()
		if job.Attempt >= w.maxAttempts {
			if derr := w.outbox.DeadLetter(ctx, job); derr != nil {
				log.WithError(derr).Error("failed to dead-letter notification")
			} else {
				log.WithError(err).Error("notification abandoned after max attempts")
			}
			continue
		}

		due := now.Add(time.Duration(job.Attempt) * w.interval)
		if qerr := w.outbox.Enqueue(ctx, job, due); qerr != nil {
			log.WithError(qerr).Error("failed to reschedule notification")
			continue
		}
		metrics.RecordOutbox("rescheduled")
		log.WithError(err).Warn("notification retry failed, rescheduled")
	}
	return delivered, nil
}
