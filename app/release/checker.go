package release

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/hashicorp/go-version"
	"github.com/mmcdole/gofeed"

	"github.com/superman-links/links-bridge/app/cache"
)

const (
	fetchTimeout = 10 * time.Second
	maxRetries   = 2
)

var ErrNoReleases = errors.New("release feed has no versioned entries")

// Status compares the running build with the newest published release.
type Status struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	UpdateAvailable bool      `json:"update_available"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
}

// latest is what gets cached; the comparison is redone on every read.
type latest struct {
	Version   string    `json:"version"`
	URL       string    `json:"url"`
	CheckedAt time.Time `json:"checked_at"`
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.code, http.StatusText(e.code))
}

type Checker struct {
	feedURL  string
	current  string
	store    cache.Store
	ttl      time.Duration
	client   *http.Client
	parser   *gofeed.Parser
	executor failsafe.Executor[[]byte]
	now      func() time.Time
}

func NewChecker(feedURL, current string, store cache.Store, ttl time.Duration) *Checker {
	retry := retrypolicy.NewBuilder[[]byte]().
		WithBackoff(500*time.Millisecond, 5*time.Second).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
			}
			return err != nil
		}).
		Build()

	return &Checker{
		feedURL:  feedURL,
		current:  current,
		store:    store,
		ttl:      ttl,
		client:   &http.Client{Timeout: fetchTimeout},
		parser:   gofeed.NewParser(),
		executor: failsafe.With(retry),
		now:      time.Now,
	}
}

// Check fetches the release feed, caches the newest version and compares
// it with the running one.
func (c *Checker) Check(ctx context.Context) (*Status, error) {
	data, err := c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release feed: %w", err)
	}

	newest, err := c.newest(data)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, cache.ReleaseKey(c.feedURL), newest, c.ttl); err != nil {
		slog.Warn("Failed to cache release check", "error", err)
	}

	status := c.compare(newest)

	slog.Info("Release check completed",
		"current", status.CurrentVersion,
		"latest", status.LatestVersion,
		"update_available", status.UpdateAvailable)

	return status, nil
}

// Cached returns the last check result without any network access, or nil
// when there is none.
func (c *Checker) Cached(ctx context.Context) *Status {
	raw, err := c.store.Get(ctx, cache.ReleaseKey(c.feedURL))
	if err != nil {
		slog.Debug("Failed to read cached release check", "error", err)
		return nil
	}
	if raw == "" {
		return nil
	}

	var entry latest
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		slog.Debug("Ignoring malformed cached release check", "error", err)
		return nil
	}

	return c.compare(entry)
}

func (c *Checker) fetch(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// newest picks the highest stable version among the feed entries. Tags
// are taken from the entry link, falling back to the title.
func (c *Checker) newest(data []byte) (latest, error) {
	feed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return latest{}, fmt.Errorf("failed to parse release feed: %w", err)
	}

	var (
		best    *version.Version
		bestURL string
	)
	for _, item := range feed.Items {
		v := entryVersion(item)
		if v == nil || v.Prerelease() != "" {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestURL = item.Link
		}
	}

	if best == nil {
		return latest{}, ErrNoReleases
	}

	return latest{Version: best.String(), URL: bestURL, CheckedAt: c.now().UTC()}, nil
}

func (c *Checker) compare(entry latest) *Status {
	status := &Status{
		CurrentVersion: c.current,
		LatestVersion:  entry.Version,
		ReleaseURL:     entry.URL,
		CheckedAt:      entry.CheckedAt,
	}

	current, err := version.NewVersion(strings.TrimPrefix(c.current, "v"))
	if err != nil {
		return status
	}
	newest, err := version.NewVersion(entry.Version)
	if err != nil {
		return status
	}

	status.UpdateAvailable = newest.GreaterThan(current)
	return status
}

func entryVersion(item *gofeed.Item) *version.Version {
	for _, candidate := range []string{path.Base(strings.TrimRight(item.Link, "/")), strings.TrimSpace(item.Title)} {
		if v, err := version.NewVersion(strings.TrimPrefix(candidate, "v")); err == nil {
			return v
		}
	}
	return nil
}
