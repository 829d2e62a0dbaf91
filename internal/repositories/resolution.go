// package repositories provides the persistence layer for resolution history.
//
// History is observability, not correctness: the pipeline records rows
// best-effort and a write failure never affects a reply.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/chorus/internal/models"
)

// ResolutionRepository persists and queries resolution history rows.
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a repository backed by the given database.
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Record inserts one resolution history row.
func (r *ResolutionRepository) Record(ctx context.Context, res models.Resolution) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO resolutions (id, event_id, channel, input_url, service, reply_source, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.EventID, res.Channel, res.InputURL,
		string(res.Service), string(res.ReplySource), res.LatencyMS, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	return nil
}

// Recent returns the most recent resolutions, newest first.
func (r *ResolutionRepository) Recent(ctx context.Context, limit int) ([]models.Resolution, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, event_id, channel, input_url, service, reply_source, latency_ms, created_at
		FROM resolutions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []models.Resolution
	for rows.Next() {
		var res models.Resolution
		var service, source string
		if err := rows.Scan(&res.ID, &res.EventID, &res.Channel, &res.InputURL, &service, &source, &res.LatencyMS, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		res.Service = models.Service(service)
		res.ReplySource = models.ReplySource(source)
		resolutions = append(resolutions, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resolutions: %w", err)
	}

	return resolutions, nil
}

// CountBySource returns handled-event counts grouped by reply source.
func (r *ResolutionRepository) CountBySource(ctx context.Context) (map[models.ReplySource]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT reply_source, COUNT(*) FROM resolutions GROUP BY reply_source")
	if err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ReplySource]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.ReplySource(source)] = count
	}

	return counts, rows.Err()
}
