package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

const pageNotFound = "Page not found"

// Item is one entry of a bulk request: a public URL and the value to apply.
type Item struct {
	Reference string
	Value     string
}

// ApplyFunc mutates one record and returns the value reported back under
// the operation's result key.
type ApplyFunc func(ctx context.Context, postID int64, value string) (string, error)

// Operation describes one kind of bulk mutation.
type Operation struct {
	Name      string // metrics/log label
	Field     string // used in "Missing URL or <field>"
	ResultKey string // detail key carrying the applied value
	Apply     ApplyFunc
}

type URLResolver interface {
	ResolveURL(ctx context.Context, rawURL string) (int64, error)
}

type Detail struct {
	URL     string
	Success bool
	Error   string

	resultKey   string
	resultValue string
	postID      int64
}

func (d Detail) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"url":     d.URL,
		"success": d.Success,
	}
	if d.Success {
		out[d.resultKey] = d.resultValue
	} else {
		out["error"] = d.Error
	}
	return json.Marshal(out)
}

type Report struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Details []Detail `json:"details"`
}

// UpdatedIDs lists the records that were mutated, in input order.
func (r Report) UpdatedIDs() []int64 {
	var ids []int64
	for _, d := range r.Details {
		if d.Success {
			ids = append(ids, d.postID)
		}
	}
	return ids
}

type Engine struct {
	resolver URLResolver
}

func NewEngine(resolver URLResolver) *Engine {
	return &Engine{resolver: resolver}
}

// Apply runs op over items sequentially, in input order. A failing item is
// recorded in the report and never stops the batch.
func (e *Engine) Apply(ctx context.Context, op Operation, items []Item) Report {
	report := Report{Details: make([]Detail, 0, len(items))}

	for _, item := range items {
		detail := e.applyItem(ctx, op, item)
		if detail.Success {
			report.Updated++
		} else {
			report.Failed++
		}
		report.Details = append(report.Details, detail)
	}

	slog.Info("Bulk operation completed",
		"operation", op.Name,
		"items", len(items),
		"updated", report.Updated,
		"failed", report.Failed)

	return report
}

func (e *Engine) applyItem(ctx context.Context, op Operation, item Item) Detail {
	detail := Detail{URL: item.Reference, resultKey: op.ResultKey}

	if item.Reference == "" || item.Value == "" {
		detail.Error = fmt.Sprintf("Missing URL or %s", op.Field)
		return detail
	}

	postID, err := e.resolver.ResolveURL(ctx, item.Reference)
	if err != nil {
		slog.Warn("Bulk item URL lookup failed", "operation", op.Name, "url", item.Reference, "error", err)
		detail.Error = pageNotFound
		return detail
	}
	if postID == 0 {
		detail.Error = pageNotFound
		return detail
	}

	applied, err := op.Apply(ctx, postID, item.Value)
	if err != nil {
		detail.Error = err.Error()
		return detail
	}

	detail.Success = true
	detail.resultValue = applied
	detail.postID = postID
	return detail
}
