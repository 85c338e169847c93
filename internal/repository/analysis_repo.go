package repository

import (
	"context"

	"github.com/user/trend-service/internal/entity"
)

// AnalysisHistoryRepository defines the contract for persisting completed
// analyses. Saves are best-effort; a history failure never fails a request.
type AnalysisHistoryRepository interface {
	// Save stores one completed analysis summary.
	Save(ctx context.Context, record *entity.AnalysisRecord) error
	// ListRecent returns the most recent analyses, optionally filtered by
	// hashtag, newest first.
	ListRecent(ctx context.Context, hashtag string, limit int) ([]entity.AnalysisRecord, error)
}
