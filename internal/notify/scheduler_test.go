package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/cuongbtq/printdesk/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	to   string
	text string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingSender) SendText(_ context.Context, customerID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{to: customerID, text: text})
	return nil
}

func (r *recordingSender) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentMessage, len(r.sent))
	copy(out, r.sent)
	return out
}

type mapJobs struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func (m *mapJobs) Get(customerID string) (domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[customerID]
	return job, ok
}

func (m *mapJobs) set(job domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.CustomerID] = job
}

func (m *mapJobs) remove(customerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, customerID)
}

func jobWith(customerID string, names ...string) domain.Job {
	job := domain.NewJob(customerID, time.Now(), time.Hour)
	for _, n := range names {
		job.Files = append(job.Files, domain.FileDescriptor{FileName: n})
	}
	return *job
}

func newTestScheduler(t *testing.T, delay time.Duration, notifyOwner bool) (*Scheduler, *mapJobs, *recordingSender) {
	t.Helper()
	jobs := &mapJobs{jobs: map[string]domain.Job{}}
	sender := &recordingSender{}
	s := NewScheduler(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Jobs:        jobs,
		Sender:      sender,
		Formatter:   pricing.Formatter{},
		Delay:       delay,
		OwnerID:     "owner",
		NotifyOwner: notifyOwner,
	})
	t.Cleanup(s.Stop)
	return s, jobs, sender
}

func TestScheduler_FiresSummary(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 20*time.Millisecond, false)
	jobs.set(jobWith("628111", "a.pdf", "b.pdf"))

	s.Arm("628111")
	assert.True(t, s.Pending("628111"))

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)

	msg := sender.messages()[0]
	assert.Equal(t, "628111", msg.to)
	assert.Contains(t, msg.text, "Received 2 files")
	assert.False(t, s.Pending("628111"), "fired task must clear its handle")
}

func TestScheduler_NotifiesOwnerWhenEnabled(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 10*time.Millisecond, true)
	jobs.set(jobWith("628111", "a.pdf"))

	s.Arm("628111")

	require.Eventually(t, func() bool { return len(sender.messages()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := sender.messages()
	assert.Equal(t, "628111", msgs[0].to)
	assert.Equal(t, "owner", msgs[1].to)
	assert.Contains(t, msgs[1].text, "628111")
}

func TestScheduler_ReArmKeepsSingleTimer(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 50*time.Millisecond, false)
	jobs.set(jobWith("628111", "a.pdf"))

	s.Arm("628111")
	time.Sleep(20 * time.Millisecond)
	jobs.set(jobWith("628111", "a.pdf", "b.pdf", "c.pdf"))
	s.Arm("628111")
	s.Arm("628111")

	require.Eventually(t, func() bool { return len(sender.messages()) >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	msgs := sender.messages()
	require.Len(t, msgs, 1, "only one summary may be sent")
	assert.Contains(t, msgs[0].text, "Received 3 files")
}

func TestScheduler_DisarmCancels(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 30*time.Millisecond, true)
	jobs.set(jobWith("628111", "a.pdf"))

	s.Arm("628111")
	s.Disarm("628111")
	assert.False(t, s.Pending("628111"))

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, sender.messages())

	s.Disarm("unknown")
}

func TestScheduler_ToleratesDeletedJob(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 10*time.Millisecond, true)
	jobs.set(jobWith("628111", "a.pdf"))

	s.Arm("628111")
	jobs.remove("628111")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, sender.messages())
	assert.False(t, s.Pending("628111"))
}

func TestScheduler_ToleratesEmptiedJob(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 10*time.Millisecond, false)
	jobs.set(jobWith("628111"))

	s.Arm("628111")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, sender.messages())
}

func TestScheduler_IndependentCustomers(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 20*time.Millisecond, false)
	jobs.set(jobWith("a", "1.pdf"))
	jobs.set(jobWith("b", "2.pdf"))

	s.Arm("a")
	s.Arm("b")
	s.Disarm("a")

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "b", sender.messages()[0].to)
}

func TestScheduler_StopCancelsAll(t *testing.T) {
	s, jobs, sender := newTestScheduler(t, 30*time.Millisecond, false)
	jobs.set(jobWith("a", "1.pdf"))

	s.Arm("a")
	s.Stop()
	s.Arm("a")

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, sender.messages())
	assert.False(t, s.Pending("a"))
}
