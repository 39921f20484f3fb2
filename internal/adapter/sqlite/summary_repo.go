package sqlite

import (
	"time"

	"github.com/bulkget/bulkget/internal/domain"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// SaveSummary records one terminal batch outcome.
func (s *Store) SaveSummary(summary *domain.Summary) error {
	query := `
		INSERT INTO summaries (
			url, filename, status_code, bytes, outcome, reason, resumed
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		summary.Download.URL.String(),
		summary.Download.Filename,
		summary.StatusCode,
		summary.Bytes,
		summary.Outcome.String(),
		summary.Outcome.Reason(),
		summary.Resumed,
	)
	return err
}

// RecentSummaries returns up to limit records, newest first.
func (s *Store) RecentSummaries(limit int) ([]*domain.SummaryRecord, error) {
	query := `
		SELECT id, url, filename, status_code, bytes, outcome, reason, resumed, created_at
		FROM summaries
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SummaryRecord
	for rows.Next() {
		record := &domain.SummaryRecord{}
		var createdAt string
		if err := rows.Scan(
			&record.ID, &record.URL, &record.Filename, &record.StatusCode,
			&record.Bytes, &record.Outcome, &record.Reason, &record.Resumed,
			&createdAt,
		); err != nil {
			return nil, err
		}
		// SQLite stores CURRENT_TIMESTAMP as UTC text.
		if parsed, err := time.Parse(sqliteTimeLayout, createdAt); err == nil {
			record.CreatedAt = parsed.UTC()
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
