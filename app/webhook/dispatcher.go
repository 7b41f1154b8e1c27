package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/superman-links/links-bridge/app/database"
)

const responseLogLimit = 1024

// KeywordSource resolves the primary focus keyword of a record.
type KeywordSource interface {
	PrimaryKeyword(ctx context.Context, postID int64) *string
}

type Site interface {
	SiteURL() string
	Permalink(id int64, slug, status string) string
}

// Recorder receives the outcome of every delivery.
type Recorder interface {
	WebhookDelivered(outcome string)
}

type Dispatcher struct {
	url      string
	token    string
	client   *http.Client
	options  database.OptionRepository
	keywords KeywordSource
	site     Site
	recorder Recorder
}

func NewDispatcher(url, token string, timeout time.Duration, options database.OptionRepository,
	keywords KeywordSource, site Site, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		url:      url,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		options:  options,
		keywords: keywords,
		site:     site,
		recorder: recorder,
	}
}

// Notify sends one event to the configured receiver. It makes exactly one
// attempt; the outcome is logged and recorded, never returned as an error.
func (d *Dispatcher) Notify(ctx context.Context, event Event) Delivery {
	delivery := Delivery{
		ID:     uuid.NewString(),
		Action: event.Action,
		PostID: event.Post.ID,
	}

	started := time.Now()
	d.send(ctx, event, &delivery)
	delivery.Duration = time.Since(started)

	d.report(delivery)
	return delivery
}

func (d *Dispatcher) send(ctx context.Context, event Event, delivery *Delivery) {
	if d.url == "" {
		delivery.Outcome = OutcomeSkipped
		return
	}

	apiKey, err := d.options.GetOption(ctx, database.OptionAPIKey)
	if err != nil {
		delivery.Outcome = OutcomeFailed
		delivery.Err = fmt.Errorf("failed to read API key: %w", err)
		return
	}
	if apiKey == "" {
		delivery.Outcome = OutcomeSkipped
		return
	}

	body, err := json.Marshal(d.payload(ctx, event, apiKey))
	if err != nil {
		delivery.Outcome = OutcomeFailed
		delivery.Err = fmt.Errorf("failed to encode payload: %w", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		delivery.Outcome = OutcomeFailed
		delivery.Err = fmt.Errorf("failed to create request: %w", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Superman-Links-Delivery", delivery.ID)
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	slog.Debug("Sending webhook", "delivery_id", delivery.ID, "url", d.url, "payload", string(body))

	resp, err := d.client.Do(req)
	if err != nil {
		delivery.Outcome = OutcomeFailed
		delivery.Err = err
		return
	}
	defer resp.Body.Close()

	delivery.StatusCode = resp.StatusCode
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, responseLogLimit))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		delivery.Outcome = OutcomeDelivered
		slog.Debug("Webhook response", "delivery_id", delivery.ID, "status", resp.StatusCode, "body", string(respBody))
		return
	}

	delivery.Outcome = OutcomeRejected
	delivery.Err = fmt.Errorf("receiver returned HTTP %d: %s", resp.StatusCode, respBody)
}

func (d *Dispatcher) payload(ctx context.Context, event Event, apiKey string) Payload {
	post := event.Post
	return Payload{
		Action:  event.Action,
		SiteURL: d.site.SiteURL(),
		APIKey:  apiKey,
		Post: PostPayload{
			ID:           post.ID,
			URL:          d.site.Permalink(post.ID, post.Slug, post.Status),
			Title:        post.Title,
			FocusKeyword: d.keywords.PrimaryKeyword(ctx, post.ID),
			ModifiedAt:   post.ModifiedAt.UTC().Format(database.TimeLayout),
		},
	}
}

func (d *Dispatcher) report(delivery Delivery) {
	if d.recorder != nil {
		d.recorder.WebhookDelivered(string(delivery.Outcome))
	}

	attrs := []any{
		"delivery_id", delivery.ID,
		"action", string(delivery.Action),
		"post_id", delivery.PostID,
		"outcome", string(delivery.Outcome),
		"duration", delivery.Duration,
	}

	switch delivery.Outcome {
	case OutcomeDelivered:
		slog.Info("Webhook delivered", append(attrs, "status", delivery.StatusCode)...)
	case OutcomeSkipped:
		slog.Debug("Webhook skipped", attrs...)
	default:
		slog.Warn("Webhook delivery failed", append(attrs, "status", delivery.StatusCode, "error", delivery.Err)...)
	}
}
