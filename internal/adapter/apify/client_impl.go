package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/user/trend-service/internal/entity"
	"github.com/user/trend-service/internal/repository"
)

// Config holds the actor-platform connection settings.
type Config struct {
	BaseURL          string
	Token            string
	ActorIDInstagram string
	ActorIDTikTok    string
	PollInterval     time.Duration
	PollMaxAttempts  int
	RequestTimeout   time.Duration
}

// Client implements repository.ScraperRepository against the Apify REST API.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a Client. A nil logger falls back to slog.Default.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 60
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseURL)
	httpClient.SetAuthToken(cfg.Token)
	if cfg.RequestTimeout > 0 {
		httpClient.SetTimeout(cfg.RequestTimeout)
	}

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}
}

// runPayload is the relevant subset of an actor-run resource.
type runPayload struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	ErrorMessage     string `json:"errorMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// runEnvelope tolerates both a bare run resource and one wrapped in {data: …}.
type runEnvelope struct {
	runPayload
	Data *runPayload `json:"data"`
}

func (e *runEnvelope) payload() runPayload {
	if e.Data != nil {
		return *e.Data
	}
	return e.runPayload
}

func (c *Client) actorID(platform entity.Platform) (string, error) {
	switch platform {
	case entity.PlatformInstagram:
		if c.cfg.ActorIDInstagram == "" {
			return "", fmt.Errorf("%w: %s", repository.ErrActorNotConfigured, platform)
		}
		return c.cfg.ActorIDInstagram, nil
	case entity.PlatformTikTok:
		if c.cfg.ActorIDTikTok == "" {
			return "", fmt.Errorf("%w: %s", repository.ErrActorNotConfigured, platform)
		}
		return c.cfg.ActorIDTikTok, nil
	default:
		return "", fmt.Errorf("%w: %s", repository.ErrActorNotConfigured, platform)
	}
}

// BuildInput constructs the platform-specific actor input. The two actors
// accept structurally different parameter sets.
func BuildInput(spec entity.JobSpec) map[string]any {
	switch spec.Platform {
	case entity.PlatformInstagram:
		return map[string]any{
			"searchType":          "hashtag",
			"resultsType":         "posts",
			"resultsLimit":        spec.ResultLimit,
			"maxRequestsPerCrawl": spec.RequestLimit,
			"maxConcurrency":      spec.Concurrency,
			"hashtags":            []string{spec.TargetTag},
			"search":              spec.TargetTag,
		}
	default:
		return map[string]any{
			"hashtags":             []string{spec.TargetTag},
			"resultsPerPage":       spec.ResultLimit,
			"maxRequestsPerCrawl":  spec.RequestLimit,
			"shouldDownloadVideos": false,
			"shouldDownloadCovers": false,
			"proxyCountryCode":     "None",
		}
	}
}

// LaunchJob submits one scrape job. A launch is never retried: a non-2xx
// response may still have started a billable run upstream.
func (c *Client) LaunchJob(ctx context.Context, spec entity.JobSpec) (*entity.JobHandle, error) {
	actorID, err := c.actorID(spec.Platform)
	if err != nil {
		return nil, err
	}

	input := BuildInput(spec)
	c.logger.Info("starting scrape job",
		"platform", spec.Platform, "hashtag", spec.TargetTag, "actor_id", actorID)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(input).
		Post(fmt.Sprintf("/v2/acts/%s/runs", actorID))
	if err != nil {
		return nil, fmt.Errorf("failed to start scrape job: %w", err)
	}
	if resp.IsError() {
		return nil, &repository.LaunchError{
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}

	var envelope runEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode run response: %w", err)
	}
	run := envelope.payload()
	if run.ID == "" {
		return nil, fmt.Errorf("no run ID returned from actor platform")
	}

	c.logger.Info("scrape job started", "run_id", run.ID, "dataset_id", run.DefaultDatasetID)
	return &entity.JobHandle{JobID: run.ID, ResultSetID: run.DefaultDatasetID}, nil
}

// GetJobStatus fetches the current run status and, when already assigned,
// its result-set ID.
func (c *Client) GetJobStatus(ctx context.Context, platform entity.Platform, jobID string) (entity.JobStatus, string, error) {
	run, _, err := c.fetchRun(ctx, platform, jobID)
	if err != nil {
		return "", "", err
	}
	return entity.ParseJobStatus(run.Status), run.DefaultDatasetID, nil
}

// fetchRun performs one status request and returns the parsed payload plus
// the raw body for diagnostics.
func (c *Client) fetchRun(ctx context.Context, platform entity.Platform, jobID string) (runPayload, []byte, error) {
	actorID, err := c.actorID(platform)
	if err != nil {
		return runPayload{}, nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/v2/acts/%s/runs/%s", actorID, jobID))
	if err != nil {
		return runPayload{}, nil, fmt.Errorf("failed to check run status: %w", err)
	}
	if resp.IsError() {
		return runPayload{}, nil, fmt.Errorf("failed to check run status: status %d", resp.StatusCode())
	}

	var envelope runEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return runPayload{}, nil, fmt.Errorf("failed to decode run status: %w", err)
	}
	return envelope.payload(), resp.Body(), nil
}

// WaitForResultSet polls the run on a fixed interval for a bounded number of
// attempts and resolves the result-set ID. A transient status-check failure
// is logged and skipped but still consumes an attempt, so the loop is bounded
// by attempts alone.
func (c *Client) WaitForResultSet(ctx context.Context, platform entity.Platform, handle *entity.JobHandle) (string, error) {
	for attempt := 1; attempt <= c.cfg.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		run, _, err := c.fetchRun(ctx, platform, handle.JobID)
		if err != nil {
			c.logger.Warn("run status check failed",
				"run_id", handle.JobID, "attempt", attempt, "error", err)
			continue
		}

		status := entity.ParseJobStatus(run.Status)
		c.logger.Debug("run status",
			"run_id", handle.JobID, "status", status, "attempt", attempt)
		if !status.Terminal() {
			continue
		}

		if status != entity.JobStatusSucceeded {
			return "", &repository.JobFailedError{
				Status: status,
				Detail: c.failureDetail(ctx, platform, handle.JobID),
			}
		}

		resultSetID := handle.ResultSetID
		if resultSetID == "" {
			resultSetID = run.DefaultDatasetID
		}
		if resultSetID == "" {
			return "", repository.ErrMissingResultSet
		}
		c.logger.Info("scrape job completed",
			"run_id", handle.JobID, "dataset_id", resultSetID, "attempts", attempt)
		return resultSetID, nil
	}

	return "", repository.ErrJobTimeout
}

// failureDetail makes one best-effort follow-up status fetch to enrich a
// failure message with upstream diagnostic text. Its own failures are
// swallowed.
func (c *Client) failureDetail(ctx context.Context, platform entity.Platform, jobID string) string {
	run, raw, err := c.fetchRun(ctx, platform, jobID)
	if err != nil {
		c.logger.Warn("could not fetch failed run details", "run_id", jobID, "error", err)
		return ""
	}
	if run.StatusMessage != "" {
		return run.StatusMessage
	}
	if run.ErrorMessage != "" {
		return run.ErrorMessage
	}
	return string(raw)
}

// FetchResults retrieves the raw item collection for a result-set ID,
// unwrapping any of the recognized response envelopes.
func (c *Client) FetchResults(ctx context.Context, resultSetID string) ([]entity.RawItem, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/v2/datasets/%s/items", resultSetID))
	if err != nil {
		return nil, fmt.Errorf("failed to get result-set items: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to get result-set items: status %d, body: %s",
			resp.StatusCode(), string(resp.Body()))
	}

	items, err := unwrapItems(resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Info("retrieved result-set items", "dataset_id", resultSetID, "count", len(items))
	return items, nil
}

// unwrapItems detects the three documented envelope shapes: a bare sequence,
// {data: […]}, and {data: {items: […]}}. Anything else is an unexpected
// shape.
func unwrapItems(body []byte) ([]entity.RawItem, error) {
	var direct []entity.RawItem
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		var arr []entity.RawItem
		if err := json.Unmarshal(envelope.Data, &arr); err == nil {
			return arr, nil
		}
		var nested struct {
			Items []entity.RawItem `json:"items"`
		}
		if err := json.Unmarshal(envelope.Data, &nested); err == nil && nested.Items != nil {
			return nested.Items, nil
		}
	}

	return nil, repository.ErrUnexpectedResponseShape
}
