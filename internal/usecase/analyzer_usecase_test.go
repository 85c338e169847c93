package usecase

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/trend-service/internal/entity"
	"github.com/user/trend-service/internal/repository"
	"github.com/user/trend-service/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

// fakeScraper scripts the scraper boundary for pipeline tests.
type fakeScraper struct {
	launchedSpec entity.JobSpec
	launchErr    error
	waitErr      error
	fetchErr     error
	items        []entity.RawItem
}

func (f *fakeScraper) LaunchJob(ctx context.Context, spec entity.JobSpec) (*entity.JobHandle, error) {
	f.launchedSpec = spec
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	return &entity.JobHandle{JobID: "run-1", ResultSetID: "ds-1"}, nil
}

func (f *fakeScraper) GetJobStatus(ctx context.Context, platform entity.Platform, jobID string) (entity.JobStatus, string, error) {
	return entity.JobStatusSucceeded, "ds-1", nil
}

func (f *fakeScraper) WaitForResultSet(ctx context.Context, platform entity.Platform, handle *entity.JobHandle) (string, error) {
	if f.waitErr != nil {
		return "", f.waitErr
	}
	return handle.ResultSetID, nil
}

func (f *fakeScraper) FetchResults(ctx context.Context, resultSetID string) ([]entity.RawItem, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

// fakeHistory records saves.
type fakeHistory struct {
	saved []*entity.AnalysisRecord
	err   error
}

func (f *fakeHistory) Save(ctx context.Context, record *entity.AnalysisRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, hashtag string, limit int) ([]entity.AnalysisRecord, error) {
	return nil, nil
}

func testLimits() Limits {
	return Limits{ResultLimit: 3, RequestLimit: 5, Concurrency: 1}
}

func TestAnalyze_FullPipeline(t *testing.T) {
	scraper := &fakeScraper{items: []entity.RawItem{
		{"caption": "wanderlust #travel", "likesCount": float64(10), "commentsCount": float64(1), "ownerUsername": "a"},
		{"caption": "sunsets #travel", "likesCount": float64(20), "commentsCount": float64(2), "ownerUsername": "b"},
		{"caption": "hiking #travel", "likesCount": float64(31), "commentsCount": float64(3), "ownerUsername": "c"},
	}}
	history := &fakeHistory{}
	analyzer := NewTrendAnalyzer(scraper, history, testLimits(), nil)

	result, err := analyzer.Analyze(context.Background(), "#Travel", entity.PlatformInstagram)

	require.NoError(t, err)
	assert.Equal(t, "Travel", result.Hashtag)
	assert.NotEmpty(t, result.RequestID)
	require.Len(t, result.Posts, 3)
	assert.Equal(t, 3, result.Stats.TotalPosts)
	// (10+20+31)/3 = 20.33 rounds down
	assert.Equal(t, 20, result.Stats.AvgLikes)
	assert.Equal(t, 2, result.Stats.AvgComments)
	require.NotEmpty(t, result.Stats.TopHashtags)
	assert.Equal(t, entity.TagCount{Tag: "#travel", Count: 3}, result.Stats.TopHashtags[0])

	// Launch spec carries the cleaned tag and the configured limits.
	assert.Equal(t, "Travel", scraper.launchedSpec.TargetTag)
	assert.Equal(t, 3, scraper.launchedSpec.ResultLimit)

	require.Len(t, history.saved, 1)
	assert.Equal(t, result.RequestID, history.saved[0].RequestID)
}

func TestAnalyze_UpstreamErrorPayload(t *testing.T) {
	scraper := &fakeScraper{items: []entity.RawItem{
		{"error": "no_items", "errorDescription": "Empty or private data"},
	}}
	analyzer := NewTrendAnalyzer(scraper, nil, testLimits(), nil)

	_, err := analyzer.Analyze(context.Background(), "travel", entity.PlatformInstagram)

	var upstreamErr *UpstreamDataError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Contains(t, err.Error(), "Empty or private data")
}

func TestAnalyze_EmptyResultSet(t *testing.T) {
	scraper := &fakeScraper{items: []entity.RawItem{}}
	analyzer := NewTrendAnalyzer(scraper, nil, testLimits(), nil)

	_, err := analyzer.Analyze(context.Background(), "travel", entity.PlatformInstagram)

	var noDataErr *NoDataError
	require.ErrorAs(t, err, &noDataErr)
	assert.Contains(t, err.Error(), "no data found for hashtag #travel")
}

func TestAnalyze_UnusablePostsSurfaceRestrictionHint(t *testing.T) {
	// Aggregate metadata with an empty embedded post list normalizes to zero
	// posts even though the raw result set is non-empty.
	scraper := &fakeScraper{items: []entity.RawItem{
		{"name": "travel", "postsCount": float64(99), "posts": []any{}},
	}}
	analyzer := NewTrendAnalyzer(scraper, nil, testLimits(), nil)

	_, err := analyzer.Analyze(context.Background(), "travel", entity.PlatformInstagram)

	var emptyErr *EmptyResultError
	require.ErrorAs(t, err, &emptyErr)
	assert.Contains(t, err.Error(), "restricting access")
}

func TestAnalyze_ValidationErrors(t *testing.T) {
	analyzer := NewTrendAnalyzer(&fakeScraper{}, nil, testLimits(), nil)

	_, err := analyzer.Analyze(context.Background(), "   #  ", entity.PlatformInstagram)
	assert.ErrorIs(t, err, ErrEmptyHashtag)

	_, err = analyzer.Analyze(context.Background(), "travel", entity.Platform("myspace"))
	assert.ErrorIs(t, err, ErrInvalidPlatform)
}

func TestAnalyze_PipelineErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		scraper *fakeScraper
		want    error
	}{
		{"launch", &fakeScraper{launchErr: repository.ErrActorNotConfigured}, repository.ErrActorNotConfigured},
		{"poll timeout", &fakeScraper{waitErr: repository.ErrJobTimeout}, repository.ErrJobTimeout},
		{"fetch shape", &fakeScraper{fetchErr: repository.ErrUnexpectedResponseShape}, repository.ErrUnexpectedResponseShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewTrendAnalyzer(tt.scraper, nil, testLimits(), nil)

			_, err := analyzer.Analyze(context.Background(), "travel", entity.PlatformInstagram)

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalyze_HistoryFailureDoesNotFailRequest(t *testing.T) {
	scraper := &fakeScraper{items: []entity.RawItem{
		{"caption": "#travel", "likesCount": float64(1)},
	}}
	history := &fakeHistory{err: errors.New("connection refused")}
	analyzer := NewTrendAnalyzer(scraper, history, testLimits(), nil)

	result, err := analyzer.Analyze(context.Background(), "travel", entity.PlatformInstagram)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.TotalPosts)
}

func TestErrorType_Classification(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{repository.ErrActorNotConfigured, "configuration"},
		{&repository.LaunchError{StatusCode: 402}, "launch"},
		{&repository.JobFailedError{Status: entity.JobStatusFailed}, "job_failed"},
		{repository.ErrJobTimeout, "timeout"},
		{repository.ErrMissingResultSet, "missing_result_set"},
		{repository.ErrUnexpectedResponseShape, "response_shape"},
		{&UpstreamDataError{Code: "no_items"}, "upstream_data"},
		{&NoDataError{}, "no_data"},
		{&EmptyResultError{}, "no_data"},
		{errors.New("anything else"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorType(tt.err), tt.want)
	}
}
