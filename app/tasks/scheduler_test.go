package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/release"
	"github.com/superman-links/links-bridge/app/webhook"
)

type mockNotifier struct {
	mu     sync.Mutex
	events []webhook.Event
	done   chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{done: make(chan struct{}, 10)}
}

func (m *mockNotifier) Notify(_ context.Context, event webhook.Event) webhook.Delivery {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return webhook.Delivery{Action: event.Action, PostID: event.Post.ID, Outcome: webhook.OutcomeDelivered}
}

type mockChecker struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (m *mockChecker) Check(_ context.Context) (*release.Status, error) {
	m.calls.Add(1)
	defer func() { m.done <- struct{}{} }()
	if m.err != nil {
		return nil, m.err
	}
	return &release.Status{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateAvailable: true}, nil
}

type failingTask struct {
	Task
	calls atomic.Int32
}

func (t *failingTask) Execute(_ context.Context) error {
	t.calls.Add(1)
	return errors.New("boom")
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for task")
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeCheckRelease, "feed")

	if task.ID == "" {
		t.Error("Expected task ID to be set")
	}
	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected %d max retries, got %d", DefaultMaxRetries, task.MaxRetries)
	}
	if !task.CanRetry() {
		t.Error("Expected new task to be retryable")
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	other := NewTask(TaskTypeCheckRelease, "feed")
	if task.ID == other.ID {
		t.Error("Expected unique task IDs")
	}
}

func TestDeliverWebhookTaskIsNotRetried(t *testing.T) {
	task := NewDeliverWebhookTask(webhook.Event{Action: webhook.ActionPostUpdated, Post: database.Post{ID: 5}}, newMockNotifier())

	if task.CanRetry() {
		t.Error("Expected webhook delivery to have no retries")
	}
	if task.GetSubject() != "5" {
		t.Errorf("Expected subject '5', got '%s'", task.GetSubject())
	}
	if task.GetType() != TaskTypeDeliverWebhook {
		t.Errorf("Expected type %s, got %s", TaskTypeDeliverWebhook, task.GetType())
	}
}

func TestSchedulerDeliversEvents(t *testing.T) {
	notifier := newMockNotifier()
	scheduler := NewScheduler(notifier, nil, "", time.Hour, 2)
	scheduler.Start()
	defer scheduler.Stop()

	for _, id := range []int64{1, 2} {
		if err := scheduler.EnqueueDelivery(webhook.Event{Action: webhook.ActionPostUpdated, Post: database.Post{ID: id}}); err != nil {
			t.Fatalf("Failed to enqueue delivery: %v", err)
		}
	}

	waitFor(t, notifier.done)
	waitFor(t, notifier.done)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) != 2 {
		t.Errorf("Expected 2 delivered events, got %d", len(notifier.events))
	}
}

func TestSchedulerChecksReleaseOnStart(t *testing.T) {
	checker := &mockChecker{done: make(chan struct{}, 10)}
	scheduler := NewScheduler(newMockNotifier(), checker, "https://example.com/releases.atom", time.Hour, 1)
	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, checker.done)

	if got := checker.calls.Load(); got != 1 {
		t.Errorf("Expected 1 release check, got %d", got)
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	// Not started, so nothing drains the queue
	scheduler := NewScheduler(newMockNotifier(), nil, "", time.Hour, 1)

	var lastErr error
	for i := 0; i <= queueSize; i++ {
		lastErr = scheduler.EnqueueDelivery(webhook.Event{Post: database.Post{ID: int64(i)}})
	}

	if lastErr == nil || lastErr.Error() != "task queue is full" {
		t.Errorf("Expected 'task queue is full', got %v", lastErr)
	}
}

func TestSchedulerRejectsAfterStop(t *testing.T) {
	scheduler := NewScheduler(newMockNotifier(), nil, "", time.Hour, 1)
	scheduler.Start()
	scheduler.Stop()

	if err := scheduler.EnqueueTask(NewDeliverWebhookTask(webhook.Event{}, newMockNotifier())); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled after stop, got %v", err)
	}
}

func TestExecuteTaskRetry(t *testing.T) {
	s := NewScheduler(newMockNotifier(), nil, "", time.Hour, 1).(*Scheduler)
	defer s.Stop()

	task := &failingTask{Task: NewTask(TaskTypeCheckRelease, "feed")}
	task.MaxRetries = 1

	s.executeTask(0, task)

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}

	// The retry is re-enqueued after a one second backoff
	select {
	case queued := <-s.taskQueue:
		if queued.GetID() != task.GetID() {
			t.Errorf("Expected task %s to be re-enqueued, got %s", task.GetID(), queued.GetID())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected failed task to be re-enqueued")
	}

	s.executeTask(0, task)
	if task.CanRetry() {
		t.Error("Expected task to have exhausted its retries")
	}
	if task.calls.Load() != 2 {
		t.Errorf("Expected 2 executions, got %d", task.calls.Load())
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{40, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryBackoff(tt.retry); got != tt.expected {
			t.Errorf("retryBackoff(%d): expected %v, got %v", tt.retry, tt.expected, got)
		}
	}
}
