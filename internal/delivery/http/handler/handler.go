package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/trend-service/internal/delivery/http/request"
	"github.com/user/trend-service/internal/delivery/http/response"
	"github.com/user/trend-service/internal/entity"
	"github.com/user/trend-service/internal/normalize"
	"github.com/user/trend-service/internal/repository"
	"github.com/user/trend-service/internal/usecase"
	"github.com/user/trend-service/pkg/metrics"
	"github.com/user/trend-service/pkg/utils"
)

type Handler struct {
	analyzer      usecase.TrendAnalyzer
	scraperRepo   repository.ScraperRepository
	rateLimitRepo repository.RateLimitRepository
	historyRepo   repository.AnalysisHistoryRepository // nil when history is disabled
	limits        usecase.Limits
	normalizer    *normalize.Normalizer
}

func NewHandler(
	analyzer usecase.TrendAnalyzer,
	scraperRepo repository.ScraperRepository,
	rateLimitRepo repository.RateLimitRepository,
	historyRepo repository.AnalysisHistoryRepository,
	limits usecase.Limits,
) *Handler {
	return &Handler{
		analyzer:      analyzer,
		scraperRepo:   scraperRepo,
		rateLimitRepo: rateLimitRepo,
		historyRepo:   historyRepo,
		limits:        limits,
		normalizer:    normalize.New(),
	}
}

// HandleAnalyze runs the full pipeline for one hashtag/platform pair.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req request.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	identifier := clientIdentifier(r)
	limit, err := h.rateLimitRepo.CheckAndConsume(r.Context(), identifier)
	if err != nil {
		// The repository fails open, so an error here is unexpected.
		slog.Error("rate limit check errored", "error", err)
	}
	if limit != nil && !limit.Admitted {
		metrics.RateLimitedTotal.Inc()
		h.writeJSON(w, http.StatusTooManyRequests, response.RateLimitedResponse{
			Error:     "Daily request limit reached",
			Limit:     limit.Limit,
			Remaining: limit.Remaining,
			ResetAt:   limit.ResetAt,
		})
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.Hashtag, entity.Platform(req.Platform))
	if err != nil {
		h.writeJSONError(w, err.Error(), statusForError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, response.AnalyzeResponse{
		RequestID: result.RequestID,
		Hashtag:   result.Hashtag,
		Platform:  result.Platform,
		Posts:     result.Posts,
		Stats:     result.Stats,
	})
}

// HandleDiagnostics is the manual-testing endpoint. The mode parameter
// selects the full pipeline or one raw upstream call.
func (h *Handler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	hashtag := query.Get("hashtag")
	if hashtag == "" {
		hashtag = "travel"
	}
	platform := entity.Platform(query.Get("platform"))
	if platform == "" {
		platform = entity.PlatformInstagram
	}
	if !platform.Valid() {
		h.writeDiagnosticError(w, "Unknown platform", http.StatusBadRequest)
		return
	}

	switch query.Get("mode") {
	case "direct":
		h.diagnoseLaunch(w, r, hashtag, platform)
	case "dataset":
		h.diagnoseDataset(w, r, platform, query.Get("datasetId"))
	case "status":
		h.diagnoseStatus(w, r, platform, query.Get("runId"))
	default:
		h.diagnoseFull(w, r, hashtag, platform)
	}
}

func (h *Handler) diagnoseLaunch(w http.ResponseWriter, r *http.Request, hashtag string, platform entity.Platform) {
	spec := entity.JobSpec{
		Platform:     platform,
		TargetTag:    utils.CleanHashtag(hashtag),
		ResultLimit:  h.limits.ResultLimit,
		Concurrency:  h.limits.Concurrency,
		RequestLimit: h.limits.RequestLimit,
	}
	handle, err := h.scraperRepo.LaunchJob(r.Context(), spec)
	if err != nil {
		h.writeDiagnosticError(w, err.Error(), statusForError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, response.DiagnosticResponse{
		Success: true,
		Message: "Launch call successful",
		Payload: map[string]string{
			"run_id":     handle.JobID,
			"dataset_id": handle.ResultSetID,
		},
	})
}

func (h *Handler) diagnoseDataset(w http.ResponseWriter, r *http.Request, platform entity.Platform, datasetID string) {
	if datasetID == "" {
		h.writeDiagnosticError(w, "No datasetId provided", http.StatusBadRequest)
		return
	}
	items, err := h.scraperRepo.FetchResults(r.Context(), datasetID)
	if err != nil {
		h.writeDiagnosticError(w, err.Error(), statusForError(err))
		return
	}
	posts := h.normalizer.Normalize(items, platform)
	h.writeJSON(w, http.StatusOK, response.DiagnosticResponse{
		Success: true,
		Message: "Retrieved " + strconv.Itoa(len(items)) + " items from dataset",
		Payload: map[string]any{
			"dataset_id":       datasetID,
			"results_count":    len(items),
			"normalized_count": len(posts),
			"sample_results":   samplePosts(posts),
		},
	})
}

func (h *Handler) diagnoseStatus(w http.ResponseWriter, r *http.Request, platform entity.Platform, runID string) {
	if runID == "" {
		h.writeDiagnosticError(w, "No runId provided", http.StatusBadRequest)
		return
	}
	status, datasetID, err := h.scraperRepo.GetJobStatus(r.Context(), platform, runID)
	if err != nil {
		h.writeDiagnosticError(w, err.Error(), statusForError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, response.DiagnosticResponse{
		Success: true,
		Message: "Status check successful",
		Payload: map[string]string{
			"status":     string(status),
			"dataset_id": datasetID,
		},
	})
}

func (h *Handler) diagnoseFull(w http.ResponseWriter, r *http.Request, hashtag string, platform entity.Platform) {
	result, err := h.analyzer.Analyze(r.Context(), hashtag, platform)
	if err != nil {
		h.writeDiagnosticError(w, err.Error(), statusForError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, response.DiagnosticResponse{
		Success: true,
		Message: "Full pipeline successful",
		Payload: map[string]any{
			"request_id":       result.RequestID,
			"normalized_count": len(result.Posts),
			"stats":            result.Stats,
			"sample_results":   samplePosts(result.Posts),
		},
	})
}

// HandleHistory lists recent persisted analyses.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.historyRepo == nil {
		h.writeJSONError(w, "Analysis history is not configured", http.StatusServiceUnavailable)
		return
	}

	hashtag := utils.CleanHashtag(r.URL.Query().Get("hashtag"))
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.writeJSONError(w, "limit must be an integer between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.historyRepo.ListRecent(r.Context(), hashtag, limit)
	if err != nil {
		slog.Error("failed to list analysis history", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	entries := make([]response.HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, response.HistoryEntry{
			RequestID:   record.RequestID,
			Hashtag:     record.Hashtag,
			Platform:    record.Platform,
			TotalPosts:  record.TotalPosts,
			AvgLikes:    record.AvgLikes,
			AvgComments: record.AvgComments,
			TopHashtags: record.TopHashtags,
			CreatedAt:   record.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, response.HistoryResponse{Analyses: entries})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps pipeline failures onto HTTP statuses, mirroring the
// upstream status where one is known.
func statusForError(err error) int {
	var launchErr *repository.LaunchError
	var jobErr *repository.JobFailedError
	var upstreamErr *usecase.UpstreamDataError
	var noDataErr *usecase.NoDataError
	var emptyErr *usecase.EmptyResultError

	switch {
	case errors.Is(err, usecase.ErrEmptyHashtag), errors.Is(err, usecase.ErrInvalidPlatform):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrActorNotConfigured):
		return http.StatusInternalServerError
	case errors.As(err, &launchErr):
		if launchErr.StatusCode >= 400 {
			return launchErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, repository.ErrJobTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &jobErr),
		errors.Is(err, repository.ErrMissingResultSet),
		errors.Is(err, repository.ErrUnexpectedResponseShape):
		return http.StatusBadGateway
	case errors.As(err, &upstreamErr), errors.As(err, &noDataErr), errors.As(err, &emptyErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientIdentifier picks the rate-limit identity: an explicit user header
// when present, otherwise the client IP.
func clientIdentifier(r *http.Request) string {
	if user := r.Header.Get("X-User-ID"); user != "" {
		return user
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func samplePosts(posts []entity.Post) []entity.Post {
	if len(posts) > 2 {
		return posts[:2]
	}
	return posts
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeDiagnosticError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.DiagnosticResponse{Success: false, Error: message})
}
