package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GenerationRecord is one row of generation history.
type GenerationRecord struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	SourceName     string    `json:"source_name"`
	Model          string    `json:"model"`
	Style          string    `json:"style"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	Strength       float64   `json:"strength"`
	GuidanceScale  float64   `json:"guidance_scale"`
	Steps          int       `json:"num_inference_steps"`
	Seed           int64     `json:"seed"`
	Device         string    `json:"device,omitempty"`
	OutputWidth    int       `json:"output_width"`
	OutputHeight   int       `json:"output_height"`
	GenerationTime float64   `json:"generation_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// ModelStats aggregates history per model.
type ModelStats struct {
	Model             string  `json:"model"`
	Count             int64   `json:"count"`
	AvgGenerationTime float64 `json:"avg_generation_time"`
}

// HistoryRepository reads and writes generation_history rows.
type HistoryRepository struct {
	conn *sql.DB
}

// NewHistoryRepository creates a repository over an open connection.
// The caller retains ownership of the connection.
func NewHistoryRepository(conn *sql.DB) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

// Insert records one completed generation and returns its row id.
func (r *HistoryRepository) Insert(ctx context.Context, rec GenerationRecord) (int64, error) {
	if rec.Filename == "" {
		return 0, fmt.Errorf("db: filename is required")
	}
	if rec.Model == "" {
		return 0, fmt.Errorf("db: model is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := r.conn.ExecContext(ctx, `
		INSERT INTO generation_history (
			filename, source_name, model, style, prompt, negative_prompt,
			strength, guidance_scale, steps, seed, device,
			output_width, output_height, generation_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename, rec.SourceName, rec.Model, rec.Style, rec.Prompt, rec.NegativePrompt,
		rec.Strength, rec.GuidanceScale, rec.Steps, rec.Seed, rec.Device,
		rec.OutputWidth, rec.OutputHeight, rec.GenerationTime, rec.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("db: insert generation record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("db: last insert id: %w", err)
	}
	return id, nil
}

// Recent returns the newest records, up to limit.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, filename, source_name, model, style, prompt, negative_prompt,
		       strength, guidance_scale, steps, seed, device,
		       output_width, output_height, generation_time, created_at
		FROM generation_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: query recent generations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByModel returns the newest records for one model, up to limit.
func (r *HistoryRepository) ByModel(ctx context.Context, model string, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, filename, source_name, model, style, prompt, negative_prompt,
		       strength, guidance_scale, steps, seed, device,
		       output_width, output_height, generation_time, created_at
		FROM generation_history
		WHERE model = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, model, limit)
	if err != nil {
		return nil, fmt.Errorf("db: query generations by model: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Stats returns per-model counts and average generation time,
// ordered by count descending.
func (r *HistoryRepository) Stats(ctx context.Context) ([]ModelStats, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT model, COUNT(*), AVG(generation_time)
		FROM generation_history
		GROUP BY model
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("db: query model stats: %w", err)
	}
	defer rows.Close()

	var stats []ModelStats
	for rows.Next() {
		var s ModelStats
		if err := rows.Scan(&s.Model, &s.Count, &s.AvgGenerationTime); err != nil {
			return nil, fmt.Errorf("db: scan model stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// DeleteOlderThan removes records created before the cutoff.
// Returns the number of rows removed, matching the result store's
// Cleanup so the two stay in step.
func (r *HistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM generation_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db: delete old records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db: rows affected: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]GenerationRecord, error) {
	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		if err := rows.Scan(
			&rec.ID, &rec.Filename, &rec.SourceName, &rec.Model, &rec.Style,
			&rec.Prompt, &rec.NegativePrompt, &rec.Strength, &rec.GuidanceScale,
			&rec.Steps, &rec.Seed, &rec.Device, &rec.OutputWidth, &rec.OutputHeight,
			&rec.GenerationTime, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("db: scan generation record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
