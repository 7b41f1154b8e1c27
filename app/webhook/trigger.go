package webhook

import (
	"context"
	"log/slog"

	"github.com/superman-links/links-bridge/app/database"
)

// Queue hands events to the background workers.
type Queue interface {
	EnqueueDelivery(event Event) error
}

// PostTypeFilter decides which post types are announced to the receiver.
type PostTypeFilter interface {
	WebhookAllows(postType string) bool
}

// Trigger turns content mutations into queued webhook events.
type Trigger struct {
	posts  database.PostRepository
	filter PostTypeFilter
	queue  Queue
}

func NewTrigger(posts database.PostRepository, filter PostTypeFilter, queue Queue) *Trigger {
	return &Trigger{posts: posts, filter: filter, queue: queue}
}

// Saved announces an updated record. Only published records of an allowed
// type are announced. Reports whether an event was queued.
func (t *Trigger) Saved(ctx context.Context, postID int64) bool {
	post := t.load(ctx, postID)
	if post == nil {
		return false
	}

	switch {
	case post.PostType == database.TypeRevision:
		return false
	case post.Status == database.StatusAutoDraft, post.Status == database.StatusInherit:
		return false
	case post.Status != database.StatusPublish:
		return false
	case !t.filter.WebhookAllows(post.PostType):
		return false
	}

	return t.enqueue(Event{Action: ActionPostUpdated, Post: *post})
}

// Deleted announces a trashed or removed record of an allowed type,
// whatever its status. post is the record as it was before removal so the
// receiver gets its public URL.
func (t *Trigger) Deleted(_ context.Context, post database.Post) bool {
	if !t.filter.WebhookAllows(post.PostType) {
		return false
	}

	return t.enqueue(Event{Action: ActionPostDeleted, Post: post})
}

func (t *Trigger) load(ctx context.Context, postID int64) *database.Post {
	post, err := t.posts.GetPost(ctx, postID)
	if err != nil {
		slog.Warn("Failed to load post for webhook", "post_id", postID, "error", err)
		return nil
	}
	return post
}

func (t *Trigger) enqueue(event Event) bool {
	if err := t.queue.EnqueueDelivery(event); err != nil {
		slog.Warn("Failed to enqueue webhook", "action", string(event.Action), "post_id", event.Post.ID, "error", err)
		return false
	}
	return true
}
