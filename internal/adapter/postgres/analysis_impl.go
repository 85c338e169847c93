package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/trend-service/internal/entity"
)

// AnalysisHistoryRepoImpl provides a concrete implementation for the
// AnalysisHistoryRepository interface using PostgreSQL.
type AnalysisHistoryRepoImpl struct {
	db *pgxpool.Pool
}

// NewAnalysisHistoryRepo creates a new instance of AnalysisHistoryRepoImpl.
func NewAnalysisHistoryRepo(db *pgxpool.Pool) *AnalysisHistoryRepoImpl {
	return &AnalysisHistoryRepoImpl{db: db}
}

// Save stores one completed analysis summary.
func (r *AnalysisHistoryRepoImpl) Save(ctx context.Context, record *entity.AnalysisRecord) error {
	topHashtagsJSON, err := json.Marshal(record.TopHashtags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO hashtag_analyses (request_id, hashtag, platform, total_posts, avg_likes, avg_comments, top_hashtags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`

	_, err = r.db.Exec(ctx, query,
		record.RequestID,
		record.Hashtag,
		string(record.Platform),
		record.TotalPosts,
		record.AvgLikes,
		record.AvgComments,
		topHashtagsJSON,
		record.CreatedAt,
	)
	return err
}

// ListRecent returns the most recent analyses, optionally filtered by
// hashtag, newest first.
func (r *AnalysisHistoryRepoImpl) ListRecent(ctx context.Context, hashtag string, limit int) ([]entity.AnalysisRecord, error) {
	query := `
		SELECT id, request_id, hashtag, platform, total_posts, avg_likes, avg_comments, top_hashtags, created_at
		FROM hashtag_analyses
		WHERE ($1 = '' OR hashtag = $1)
		ORDER BY created_at DESC
		LIMIT $2;
	`

	rows, err := r.db.Query(ctx, query, hashtag, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []entity.AnalysisRecord
	for rows.Next() {
		var record entity.AnalysisRecord
		var platform string
		var topHashtagsJSON []byte

		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.Hashtag,
			&platform,
			&record.TotalPosts,
			&record.AvgLikes,
			&record.AvgComments,
			&topHashtagsJSON,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		record.Platform = entity.Platform(platform)

		if err := json.Unmarshal(topHashtagsJSON, &record.TopHashtags); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
