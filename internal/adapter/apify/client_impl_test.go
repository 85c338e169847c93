package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/trend-service/internal/entity"
	"github.com/user/trend-service/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:          baseURL,
		Token:            "test-token",
		ActorIDInstagram: "actor-ig",
		ActorIDTikTok:    "actor-tt",
		PollInterval:     time.Millisecond,
		PollMaxAttempts:  60,
	}, quietLogger())
}

func instagramSpec() entity.JobSpec {
	return entity.JobSpec{
		Platform:     entity.PlatformInstagram,
		TargetTag:    "travel",
		ResultLimit:  3,
		Concurrency:  1,
		RequestLimit: 5,
	}
}

func TestBuildInput_PlatformShapesDiffer(t *testing.T) {
	igSpec := instagramSpec()
	ttSpec := igSpec
	ttSpec.Platform = entity.PlatformTikTok

	ig := BuildInput(igSpec)
	tt := BuildInput(ttSpec)

	assert.Equal(t, "hashtag", ig["searchType"])
	assert.Equal(t, "posts", ig["resultsType"])
	assert.Equal(t, []string{"travel"}, ig["hashtags"])
	assert.Equal(t, "travel", ig["search"])
	assert.Contains(t, ig, "maxConcurrency")

	assert.Equal(t, []string{"travel"}, tt["hashtags"])
	assert.Equal(t, false, tt["shouldDownloadVideos"])
	assert.Equal(t, "None", tt["proxyCountryCode"])
	assert.NotContains(t, tt, "searchType")
	assert.NotContains(t, ig, "resultsPerPage")
}

func TestLaunchJob_Success(t *testing.T) {
	var gotAuth string
	var gotInput map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/acts/actor-ig/runs", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotInput))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"run-1","status":"RUNNING","defaultDatasetId":"ds-1"}}`)
	}))
	defer srv.Close()

	handle, err := testClient(srv.URL).LaunchJob(context.Background(), instagramSpec())

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, []any{"travel"}, gotInput["hashtags"])
	assert.Equal(t, "run-1", handle.JobID)
	assert.Equal(t, "ds-1", handle.ResultSetID)
}

func TestLaunchJob_BareEnvelopeAndMissingDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"run-2","status":"RUNNING"}`)
	}))
	defer srv.Close()

	handle, err := testClient(srv.URL).LaunchJob(context.Background(), instagramSpec())

	require.NoError(t, err)
	assert.Equal(t, "run-2", handle.JobID)
	assert.Empty(t, handle.ResultSetID)
}

func TestLaunchJob_UpstreamErrorSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":"insufficient credit"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).LaunchJob(context.Background(), instagramSpec())

	var launchErr *repository.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, http.StatusPaymentRequired, launchErr.StatusCode)
	assert.Contains(t, launchErr.Body, "insufficient credit")
}

func TestLaunchJob_MissingActorID(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused", Token: "t"}, quietLogger())

	_, err := client.LaunchJob(context.Background(), instagramSpec())

	assert.ErrorIs(t, err, repository.ErrActorNotConfigured)
}

// statusServer serves a scripted sequence of poll responses. Each call
// consumes the next entry; the last entry repeats.
func statusServer(t *testing.T, responses []string, statuses []int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	calls := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/acts/actor-ig/runs/run-1", r.URL.Path)
		idx := int(calls.Add(1)) - 1
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		w.WriteHeader(statuses[idx])
		fmt.Fprint(w, responses[idx])
	}))
	return srv, calls
}

func TestWaitForResultSet_StopsOnFirstTerminalStatus(t *testing.T) {
	srv, calls := statusServer(t,
		[]string{
			`{"data":{"id":"run-1","status":"RUNNING"}}`,
			`{"data":{"id":"run-1","status":"RUNNING"}}`,
			`{"data":{"id":"run-1","status":"SUCCEEDED","defaultDatasetId":"ds-9"}}`,
		},
		[]int{200, 200, 200},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1"}
	resultSetID, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	require.NoError(t, err)
	assert.Equal(t, "ds-9", resultSetID)
	assert.Equal(t, int64(3), calls.Load())
}

func TestWaitForResultSet_PrefersLaunchTimeResultSet(t *testing.T) {
	srv, _ := statusServer(t,
		[]string{`{"data":{"id":"run-1","status":"SUCCEEDED","defaultDatasetId":"ds-late"}}`},
		[]int{200},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1", ResultSetID: "ds-early"}
	resultSetID, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	require.NoError(t, err)
	assert.Equal(t, "ds-early", resultSetID)
}

func TestWaitForResultSet_MissingResultSet(t *testing.T) {
	srv, _ := statusServer(t,
		[]string{`{"data":{"id":"run-1","status":"SUCCEEDED"}}`},
		[]int{200},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1"}
	_, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	assert.ErrorIs(t, err, repository.ErrMissingResultSet)
}

func TestWaitForResultSet_FailureEnrichedWithDiagnostics(t *testing.T) {
	srv, calls := statusServer(t,
		[]string{
			`{"data":{"id":"run-1","status":"FAILED"}}`,
			`{"data":{"id":"run-1","status":"FAILED","statusMessage":"Actor ran out of memory"}}`,
		},
		[]int{200, 200},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1"}
	_, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	var jobErr *repository.JobFailedError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, entity.JobStatusFailed, jobErr.Status)
	assert.Equal(t, "Actor ran out of memory", jobErr.Detail)
	// One poll plus one best-effort diagnostic fetch.
	assert.Equal(t, int64(2), calls.Load())
}

func TestWaitForResultSet_DiagnosticFetchFailureIsSwallowed(t *testing.T) {
	srv, _ := statusServer(t,
		[]string{
			`{"data":{"id":"run-1","status":"ABORTED"}}`,
			`boom`,
		},
		[]int{200, 500},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1"}
	_, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	var jobErr *repository.JobFailedError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, entity.JobStatusAborted, jobErr.Status)
	assert.Empty(t, jobErr.Detail)
}

func TestWaitForResultSet_TransientPollFailuresConsumeAttempts(t *testing.T) {
	srv, calls := statusServer(t,
		[]string{
			`oops`,
			`oops`,
			`{"data":{"id":"run-1","status":"SUCCEEDED","defaultDatasetId":"ds-1"}}`,
		},
		[]int{502, 502, 200},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1"}
	resultSetID, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	require.NoError(t, err)
	assert.Equal(t, "ds-1", resultSetID)
	assert.Equal(t, int64(3), calls.Load())
}

func TestWaitForResultSet_TimesOutAfterExactBudget(t *testing.T) {
	srv, calls := statusServer(t,
		[]string{`{"data":{"id":"run-1","status":"RUNNING"}}`},
		[]int{200},
	)
	defer srv.Close()

	handle := &entity.JobHandle{JobID: "run-1"}
	_, err := testClient(srv.URL).WaitForResultSet(context.Background(), entity.PlatformInstagram, handle)

	assert.ErrorIs(t, err, repository.ErrJobTimeout)
	assert.Equal(t, int64(60), calls.Load())
}

func TestWaitForResultSet_ContextCancellation(t *testing.T) {
	client := NewClient(Config{
		BaseURL:          "http://unused",
		Token:            "t",
		ActorIDInstagram: "actor-ig",
		PollInterval:     time.Hour,
		PollMaxAttempts:  60,
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.WaitForResultSet(ctx, entity.PlatformInstagram, &entity.JobHandle{JobID: "run-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchResults_AllEnvelopesEquivalent(t *testing.T) {
	content := `[{"caption":"a"},{"caption":"b"}]`
	envelopes := map[string]string{
		"bare array":  content,
		"data array":  fmt.Sprintf(`{"data":%s}`, content),
		"nested data": fmt.Sprintf(`{"data":{"items":%s}}`, content),
	}

	for name, body := range envelopes {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v2/datasets/ds-1/items", r.URL.Path)
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			items, err := testClient(srv.URL).FetchResults(context.Background(), "ds-1")

			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "a", items[0]["caption"])
			assert.Equal(t, "b", items[1]["caption"])
		})
	}
}

func TestFetchResults_UnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"caption":"a"}]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchResults(context.Background(), "ds-1")

	assert.ErrorIs(t, err, repository.ErrUnexpectedResponseShape)
}

func TestFetchResults_EmptyDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).FetchResults(context.Background(), "ds-1")

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchResults_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `dataset not found`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchResults(context.Background(), "ds-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
