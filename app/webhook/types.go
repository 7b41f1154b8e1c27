package webhook

import (
	"time"

	"github.com/superman-links/links-bridge/app/database"
)

type Action string

const (
	ActionPostUpdated Action = "post_updated"
	ActionPostDeleted Action = "post_deleted"
)

// Event is a content change waiting to be delivered. Post is a snapshot
// taken when the change happened.
type Event struct {
	Action Action
	Post   database.Post
}

type Payload struct {
	Action  Action      `json:"action"`
	SiteURL string      `json:"site_url"`
	APIKey  string      `json:"api_key"`
	Post    PostPayload `json:"post"`
}

type PostPayload struct {
	ID           int64   `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	FocusKeyword *string `json:"focus_keyword"`
	ModifiedAt   string  `json:"modified_at"`
}

type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Delivery is the result of one notification attempt.
type Delivery struct {
	ID         string
	Action     Action
	PostID     int64
	Outcome    Outcome
	StatusCode int
	Duration   time.Duration
	Err        error
}
