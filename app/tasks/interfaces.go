package tasks

import (
	"context"

	"github.com/superman-links/links-bridge/app/release"
	"github.com/superman-links/links-bridge/app/webhook"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing and by
// the webhook trigger to queue deliveries.
// Example usage:
//
//	scheduler := NewScheduler(dispatcher, releaseChecker, feedURL, interval, workers)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCheckReleaseTask(feedURL, releaseChecker))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueDelivery(event webhook.Event) error
}

type Notifier interface {
	Notify(ctx context.Context, event webhook.Event) webhook.Delivery
}

type ReleaseChecker interface {
	Check(ctx context.Context) (*release.Status, error)
}
