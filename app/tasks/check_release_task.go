package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type CheckReleaseTask struct {
	Task
	checker ReleaseChecker
}

func NewCheckReleaseTask(feedURL string, checker ReleaseChecker) *CheckReleaseTask {
	return &CheckReleaseTask{
		Task:    NewTask(TaskTypeCheckRelease, feedURL),
		checker: checker,
	}
}

func (t *CheckReleaseTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	status, err := t.checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for releases: %w", err)
	}

	slog.Debug("Task completed",
		"type", "CheckRelease",
		"latest", status.LatestVersion,
		"update_available", status.UpdateAvailable,
		"duration", t.GetDuration())

	return nil
}
