package response

import (
	"time"

	"github.com/user/trend-service/internal/entity"
)

type AnalyzeResponse struct {
	RequestID string          `json:"request_id"`
	Hashtag   string          `json:"hashtag"`
	Platform  entity.Platform `json:"platform"`
	Posts     []entity.Post   `json:"posts"`
	Stats     entity.Stats    `json:"stats"`
}

type RateLimitedResponse struct {
	Error     string    `json:"error"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// DiagnosticResponse is the structured payload of the manual-testing
// endpoint: a success flag plus either a message and payload or an error.
type DiagnosticResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// HistoryEntry is a DTO for one persisted analysis, mirroring
// entity.AnalysisRecord.
type HistoryEntry struct {
	RequestID   string            `json:"request_id"`
	Hashtag     string            `json:"hashtag"`
	Platform    entity.Platform   `json:"platform"`
	TotalPosts  int               `json:"total_posts"`
	AvgLikes    int               `json:"avg_likes"`
	AvgComments int               `json:"avg_comments"`
	TopHashtags []entity.TagCount `json:"top_hashtags"`
	CreatedAt   time.Time         `json:"created_at"`
}

type HistoryResponse struct {
	Analyses []HistoryEntry `json:"analyses"`
}
