package port

import "github.com/bulkget/bulkget/internal/domain"

// SummaryStore persists terminal batch outcomes for later inspection.
type SummaryStore interface {
	// SaveSummary records one terminal summary.
	SaveSummary(summary *domain.Summary) error
	// RecentSummaries returns up to limit records, newest first.
	RecentSummaries(limit int) ([]*domain.SummaryRecord, error)
	Close() error
}
