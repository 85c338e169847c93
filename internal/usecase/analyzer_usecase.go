package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/trend-service/internal/entity"
	"github.com/user/trend-service/internal/normalize"
	"github.com/user/trend-service/internal/repository"
	"github.com/user/trend-service/internal/stats"
	"github.com/user/trend-service/pkg/metrics"
	"github.com/user/trend-service/pkg/utils"
)

var (
	ErrEmptyHashtag    = errors.New("hashtag must not be empty")
	ErrInvalidPlatform = errors.New("platform must be one of: instagram, tiktok")
)

// UpstreamDataError means the result collection was a single error payload.
// It is "no data" rather than a crash; the upstream's own description is
// surfaced to the user.
type UpstreamDataError struct {
	Code        string
	Description string
}

func (e *UpstreamDataError) Error() string {
	detail := e.Description
	if detail == "" {
		detail = e.Code
	}
	if detail == "" {
		detail = "No data available"
	}
	return fmt.Sprintf("upstream error: %s", detail)
}

// NoDataError means the result set was empty.
type NoDataError struct {
	Hashtag  string
	Platform entity.Platform
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data found for hashtag #%s on %s", e.Hashtag, e.Platform)
}

// EmptyResultError means normalization produced zero posts from a non-empty
// result set, which usually indicates the platform is restricting access.
type EmptyResultError struct {
	Hashtag  string
	Platform entity.Platform
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("unable to process data for hashtag #%s: %s may be restricting access", e.Hashtag, e.Platform)
}

// Limits holds the per-job scrape limits applied to every launched job.
type Limits struct {
	ResultLimit  int
	RequestLimit int
	Concurrency  int
}

// TrendAnalyzer defines the interface for the full analysis pipeline.
type TrendAnalyzer interface {
	// Analyze runs launch, poll, fetch, normalize, and stats for one
	// hashtag/platform pair and returns the posts plus their statistics.
	Analyze(ctx context.Context, hashtag string, platform entity.Platform) (*entity.AnalysisResult, error)
}

type trendAnalyzerUseCase struct {
	scraperRepo repository.ScraperRepository
	historyRepo repository.AnalysisHistoryRepository // nil when history is disabled
	normalizer  *normalize.Normalizer
	limits      Limits
	logger      *slog.Logger
}

// NewTrendAnalyzer creates a new instance of the trend analyzer use case.
// historyRepo may be nil; saves are then skipped.
func NewTrendAnalyzer(
	scraperRepo repository.ScraperRepository,
	historyRepo repository.AnalysisHistoryRepository,
	limits Limits,
	logger *slog.Logger,
) TrendAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &trendAnalyzerUseCase{
		scraperRepo: scraperRepo,
		historyRepo: historyRepo,
		normalizer:  normalize.New(),
		limits:      limits,
		logger:      logger,
	}
}

func (uc *trendAnalyzerUseCase) Analyze(ctx context.Context, hashtag string, platform entity.Platform) (*entity.AnalysisResult, error) {
	tag := utils.CleanHashtag(hashtag)
	if tag == "" {
		return nil, ErrEmptyHashtag
	}
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	requestID := uuid.NewString()
	logger := uc.logger.With("request_id", requestID, "hashtag", tag, "platform", platform)
	logger.Info("starting trend analysis")

	startTime := time.Now()
	result, err := uc.runPipeline(ctx, requestID, tag, platform, logger)
	duration := time.Since(startTime)
	metrics.AnalysisDuration.WithLabelValues(string(platform)).Observe(duration.Seconds())

	if err != nil {
		logger.Error("trend analysis failed", "error", err, "duration_ms", duration.Milliseconds())
		metrics.AnalysesTotal.WithLabelValues(string(platform), "failure", errorType(err)).Inc()
		return nil, err
	}

	logger.Info("trend analysis complete",
		"posts", result.Stats.TotalPosts, "duration_ms", duration.Milliseconds())
	metrics.AnalysesTotal.WithLabelValues(string(platform), "success", "").Inc()

	uc.saveHistory(ctx, result, logger)
	return result, nil
}

func (uc *trendAnalyzerUseCase) runPipeline(ctx context.Context, requestID, tag string, platform entity.Platform, logger *slog.Logger) (*entity.AnalysisResult, error) {
	spec := entity.JobSpec{
		Platform:     platform,
		TargetTag:    tag,
		ResultLimit:  uc.limits.ResultLimit,
		Concurrency:  uc.limits.Concurrency,
		RequestLimit: uc.limits.RequestLimit,
	}

	handle, err := uc.scraperRepo.LaunchJob(ctx, spec)
	if err != nil {
		return nil, err
	}

	resultSetID, err := uc.scraperRepo.WaitForResultSet(ctx, platform, handle)
	if err != nil {
		return nil, err
	}

	items, err := uc.scraperRepo.FetchResults(ctx, resultSetID)
	if err != nil {
		return nil, err
	}

	classification := normalize.Classify(items, platform)
	if classification.Kind == normalize.KindErrorPayload {
		return nil, &UpstreamDataError{
			Code:        classification.ErrorCode,
			Description: classification.ErrorDescription,
		}
	}
	if len(items) == 0 {
		return nil, &NoDataError{Hashtag: tag, Platform: platform}
	}

	posts := uc.normalizer.Normalize(items, platform)
	if len(posts) == 0 {
		return nil, &EmptyResultError{Hashtag: tag, Platform: platform}
	}
	logger.Info("normalized result set",
		"shape", classification.Kind.String(), "raw_items", len(items), "posts", len(posts))

	return &entity.AnalysisResult{
		RequestID: requestID,
		Hashtag:   tag,
		Platform:  platform,
		Posts:     posts,
		Stats:     stats.Compute(posts),
	}, nil
}

// saveHistory persists a summary row when history is configured. This is not
// a critical write, just log on failure.
func (uc *trendAnalyzerUseCase) saveHistory(ctx context.Context, result *entity.AnalysisResult, logger *slog.Logger) {
	if uc.historyRepo == nil {
		return
	}
	record := &entity.AnalysisRecord{
		RequestID:   result.RequestID,
		Hashtag:     result.Hashtag,
		Platform:    result.Platform,
		TotalPosts:  result.Stats.TotalPosts,
		AvgLikes:    result.Stats.AvgLikes,
		AvgComments: result.Stats.AvgComments,
		TopHashtags: result.Stats.TopHashtags,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.historyRepo.Save(ctx, record); err != nil {
		logger.Warn("failed to save analysis history", "error", err)
	}
}

// errorType labels a pipeline failure for metrics.
func errorType(err error) string {
	var launchErr *repository.LaunchError
	var jobErr *repository.JobFailedError
	var upstreamErr *UpstreamDataError
	var noDataErr *NoDataError
	var emptyErr *EmptyResultError

	switch {
	case errors.Is(err, repository.ErrActorNotConfigured):
		return "configuration"
	case errors.As(err, &launchErr):
		return "launch"
	case errors.As(err, &jobErr):
		return "job_failed"
	case errors.Is(err, repository.ErrJobTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrMissingResultSet):
		return "missing_result_set"
	case errors.Is(err, repository.ErrUnexpectedResponseShape):
		return "response_shape"
	case errors.As(err, &upstreamErr):
		return "upstream_data"
	case errors.As(err, &noDataErr), errors.As(err, &emptyErr):
		return "no_data"
	default:
		return "unknown"
	}
}
