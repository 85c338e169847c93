package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/trend-service/internal/entity"
)

var (
	// ErrActorNotConfigured means no actor ID is configured for the requested
	// platform. Fatal, never retried.
	ErrActorNotConfigured = errors.New("no actor ID configured for platform")
	// ErrJobTimeout means the poll attempt budget was exhausted before the job
	// reached a terminal status.
	ErrJobTimeout = errors.New("scrape job timed out while waiting for completion")
	// ErrMissingResultSet means the job succeeded but no result-set ID could be
	// resolved from either the launch response or the final status payload.
	ErrMissingResultSet = errors.New("no result-set ID found after job completion")
	// ErrUnexpectedResponseShape means the result-set fetch returned an
	// envelope that is none of the recognized shapes.
	ErrUnexpectedResponseShape = errors.New("unexpected response shape from result-set fetch")
)

// LaunchError is a non-2xx response to a job launch, carrying the upstream
// status code and body verbatim. Launches are never retried blindly because a
// failed launch may have partially started a billable job.
type LaunchError struct {
	StatusCode int
	Body       string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start scrape job: status %d, body: %s", e.StatusCode, e.Body)
}

// JobFailedError is a terminal non-success job status, enriched with
// best-effort diagnostic text from a follow-up status fetch.
type JobFailedError struct {
	Status entity.JobStatus
	Detail string
}

func (e *JobFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("scrape job finished with status %s", e.Status)
	}
	return fmt.Sprintf("scrape job finished with status %s: %s", e.Status, e.Detail)
}

// ScraperRepository defines the contract for the external scraping platform.
type ScraperRepository interface {
	// LaunchJob submits a scrape job and returns its handle. The handle's
	// ResultSetID may still be empty at this point.
	LaunchJob(ctx context.Context, spec entity.JobSpec) (*entity.JobHandle, error)
	// GetJobStatus fetches the current status of a job and, when already
	// known upstream, its result-set ID.
	GetJobStatus(ctx context.Context, platform entity.Platform, jobID string) (entity.JobStatus, string, error)
	// WaitForResultSet polls the job until a terminal status and resolves the
	// result-set ID. Only a succeeded job yields a result-set ID.
	WaitForResultSet(ctx context.Context, platform entity.Platform, handle *entity.JobHandle) (string, error)
	// FetchResults retrieves the raw item collection for a result-set ID,
	// unwrapping any of the recognized response envelopes.
	FetchResults(ctx context.Context, resultSetID string) ([]entity.RawItem, error)
}
