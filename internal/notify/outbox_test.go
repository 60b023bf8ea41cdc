package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutbox(t *testing.T) (*Outbox, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOutbox(rdb, "test:notify"), mr
}

func TestOutboxClaimsOnlyDueJobs(t *testing.T) {
	ctx := context.Background()
	box, _ := newTestOutbox(t)
	now := time.Unix(1_700_000_000, 0)

	due := NewJob(KindOperator, storedInquiry(), errors.New("timeout"))
	later := NewJob(KindAcknowledgement, storedInquiry(), nil)
	require.NoError(t, box.Enqueue(ctx, due, now.Add(-time.Second)))
	require.NoError(t, box.Enqueue(ctx, later, now.Add(time.Hour)))

	jobs, err := box.Claim(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, due.ID, jobs[0].ID)
	assert.Equal(t, KindOperator, jobs[0].Kind)
	assert.Equal(t, "timeout", jobs[0].LastError)
	assert.Equal(t, storedInquiry().ID, jobs[0].Inquiry.ID)
	assert.True(t, storedInquiry().CreatedAt.Equal(jobs[0].Inquiry.CreatedAt))

	again, err := box.Claim(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	pending, err := box.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)
}

func TestOutboxParksCorruptPayloads(t *testing.T) {
	ctx := context.Background()
	box, mr := newTestOutbox(t)

	_, err := mr.ZAdd("test:notify", 1, "{not json")
	require.NoError(t, err)

	jobs, err := box.Claim(ctx, time.Unix(10, 0), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	dead, err := box.DeadLettered(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)
}

func TestOutboxParksJobsWithoutInquiry(t *testing.T) {
	ctx := context.Background()
	box, mr := newTestOutbox(t)

	_, err := mr.ZAdd("test:notify", 1, `{"id":"job-1","kind":"operator","inquiry":null,"attempt":1}`)
	require.NoError(t, err)

	jobs, err := box.Claim(ctx, time.Unix(10, 0), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	dead, err := box.DeadLettered(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)
}

type panicMailer struct{}

func (panicMailer) Send(ctx context.Context, msg Message) error {
	panic("mailer exploded")
}

func TestDispatcherRecoversFromPanics(t *testing.T) {
	for _, async := range []bool{false, true} {
		d := NewDispatcher(newTestNotifier(t, panicMailer{}, false), nil, DispatcherOptions{
			Async:   async,
			Timeout: time.Second,
		})

		assert.NotPanics(t, func() { d.Dispatch(context.Background(), storedInquiry()) })

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		assert.NoError(t, d.Wait(ctx))
		cancel()
	}
}

func TestDispatcherQueuesFailedNotifications(t *testing.T) {
	box, _ := newTestOutbox(t)
	mailer := &fakeMailer{failFor: map[string]error{operatorAddr: errors.New("smtp down")}}
	d := NewDispatcher(newTestNotifier(t, mailer, true), box, DispatcherOptions{
		Timeout:    time.Second,
		RetryDelay: time.Minute,
	})

	d.Dispatch(context.Background(), storedInquiry())

	jobs, err := box.Claim(context.Background(), time.Now().Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, KindOperator, jobs[0].Kind)
	assert.Equal(t, 1, jobs[0].Attempt)
}

func TestDispatcherDetachesFromRequestContext(t *testing.T) {
	mailer := &fakeMailer{block: make(chan struct{})}
	d := NewDispatcher(newTestNotifier(t, mailer, false), nil, DispatcherOptions{
		Async:   true,
		Timeout: 5 * time.Second,
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	d.Dispatch(reqCtx, storedInquiry())
	cancel()
	close(mailer.block)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, d.Wait(waitCtx))

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, operatorAddr, sent[0].To)
}

func TestDispatcherWaitHonoursDeadline(t *testing.T) {
	mailer := &fakeMailer{block: make(chan struct{})}
	defer close(mailer.block)
	d := NewDispatcher(newTestNotifier(t, mailer, false), nil, DispatcherOptions{
		Async:   true,
		Timeout: 5 * time.Second,
	})

	d.Dispatch(context.Background(), storedInquiry())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
}

func TestRetryWorkerDeliversDueJobs(t *testing.T) {
	ctx := context.Background()
	box, _ := newTestOutbox(t)
	mailer := &fakeMailer{}
	w := NewRetryWorker(box, newTestNotifier(t, mailer, false), time.Minute, time.Second, 3)

	now := time.Now()
	require.NoError(t, box.Enqueue(ctx, NewJob(KindOperator, storedInquiry(), nil), now))

	delivered, err := w.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, mailer.messages(), 1)

	pending, err := box.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRetryWorkerReschedulesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	box, _ := newTestOutbox(t)
	mailer := &fakeMailer{failFor: map[string]error{operatorAddr: errors.New("smtp down")}}
	w := NewRetryWorker(box, newTestNotifier(t, mailer, false), time.Minute, time.Second, 3)

	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, box.Enqueue(ctx, NewJob(KindOperator, storedInquiry(), nil), now))

	// Second attempt fails and is rescheduled one interval times the attempt count out.
	delivered, err := w.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, delivered)

	jobs, err := box.Claim(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	pending, err := box.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	// Third attempt reaches the limit.
	later := now.Add(2 * time.Minute)
	_, err = w.ProcessDue(ctx, later)
	require.NoError(t, err)

	pending, err = box.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	dead, err := box.DeadLettered(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)
}
