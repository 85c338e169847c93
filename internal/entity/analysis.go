package entity

import "time"

// AnalysisResult is what one successful pipeline run returns to the caller.
type AnalysisResult struct {
	RequestID string   `json:"request_id"`
	Hashtag   string   `json:"hashtag"`
	Platform  Platform `json:"platform"`
	Posts     []Post   `json:"posts"`
	Stats     Stats    `json:"stats"`
}

// AnalysisRecord mirrors the `hashtag_analyses` PostgreSQL table schema.
// History rows are an additive convenience; job state itself is never persisted.
type AnalysisRecord struct {
	ID          int64
	RequestID   string
	Hashtag     string
	Platform    Platform
	TotalPosts  int
	AvgLikes    int
	AvgComments int
	TopHashtags []TagCount // stored as JSONB
	CreatedAt   time.Time
}
