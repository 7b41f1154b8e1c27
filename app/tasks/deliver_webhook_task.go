package tasks

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/superman-links/links-bridge/app/webhook"
)

// DeliverWebhookTask sends one content event. Deliveries are attempted
// once; failures are logged by the dispatcher and never retried.
type DeliverWebhookTask struct {
	Task
	Event    webhook.Event
	notifier Notifier
}

func NewDeliverWebhookTask(event webhook.Event, notifier Notifier) *DeliverWebhookTask {
	task := NewTask(TaskTypeDeliverWebhook, strconv.FormatInt(event.Post.ID, 10))
	task.MaxRetries = 0

	return &DeliverWebhookTask{
		Task:     task,
		Event:    event,
		notifier: notifier,
	}
}

func (t *DeliverWebhookTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	delivery := t.notifier.Notify(ctx, t.Event)

	slog.Debug("Task completed",
		"type", "DeliverWebhook",
		"post_id", t.Event.Post.ID,
		"action", string(t.Event.Action),
		"outcome", string(delivery.Outcome),
		"duration", t.GetDuration())

	return nil
}
