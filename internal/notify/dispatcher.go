package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
)

// DispatcherOptions configures how notifications are dispatched.
type DispatcherOptions struct {
	// Async runs delivery in a background goroutine.
	Async bool
	// Timeout bounds one delivery attempt of all kinds.
	Timeout time.Duration
	// RetryDelay is how long a failed notification waits in the outbox.
	RetryDelay time.Duration
}

// Dispatcher runs best-effort notification after an inquiry is stored.
// Delivery is detached from the request context so a client disconnect
// never cancels it.
type Dispatcher struct {
	notifier *Notifier
	outbox   *Outbox
	opts     DispatcherOptions
	wg       sync.WaitGroup
	log      *logrus.Entry
}

// NewDispatcher creates a dispatcher. outbox may be nil, in which case
// failures are only logged.
func NewDispatcher(notifier *Notifier, outbox *Outbox, opts DispatcherOptions) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Minute
	}
	return &Dispatcher{
		notifier: notifier,
		outbox:   outbox,
		opts:     opts,
		log:      logging.For("notify"),
	}
}

// Dispatch notifies about a stored inquiry. It never returns an error:
// failures are logged and queued for retry when an outbox is configured.
func (d *Dispatcher) Dispatch(ctx context.Context, inq *domain.Inquiry) {
	snapshot := *inq
	ctx = context.WithoutCancel(ctx)

	if !d.opts.Async {
		d.run(ctx, &snapshot)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx, &snapshot)
	}()
}

// Wait blocks until in-flight background deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(parent context.Context, inq *domain.Inquiry) {
	log := d.log.WithField("inquiry_id", inq.ID)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("notification panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(parent, d.opts.Timeout)
	err := d.notifier.Notify(ctx, inq)
	cancel()

	if err == nil {
		log.Info("notification sent")
		return
	}
	log.WithError(err).Error("notification failed")

	if d.outbox == nil {
		return
	}

	failed := d.notifier.Kinds()
	var derr *DeliveryError
	if errors.As(err, &derr) {
		failed = derr.Failed
	}

	ctx, cancel = context.WithTimeout(parent, d.opts.Timeout)
	defer cancel()
	due := time.Now().Add(d.opts.RetryDelay)
	for _, kind := range failed {
		job := NewJob(kind, inq, err)
		if qerr := d.outbox.Enqueue(ctx, job, due); qerr != nil {
			log.WithError(qerr).WithField("kind", kind).Error("failed to queue notification for retry")
			continue
		}
		log.WithFields(logrus.Fields{"kind": kind, "job_id": job.ID}).Warn("notification queued for retry")
	}
}
