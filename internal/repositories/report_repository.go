package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"gamehub-chat/internal/models"
)

// ReportRepository is the append-only moderation ledger.
type ReportRepository interface {
	Create(ctx context.Context, report models.Report) (models.Report, error)
	List(ctx context.Context, limit int) ([]models.Report, error)
}

// ReportRepo is a sqlx-backed repository.
type ReportRepo struct {
	db *sqlx.DB
}

// NewReportRepo constructs ReportRepo.
func NewReportRepo(db *sqlx.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create appends a ledger entry.
func (r *ReportRepo) Create(ctx context.Context, report models.Report) (models.Report, error) {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO reports (reporter, offender, channel, message_text, reason)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		report.Reporter, report.Offender, report.Channel, report.MessageText, report.Reason).
		Scan(&report.ID, &report.CreatedAt)
	return report, err
}

// List returns the most recent ledger entries for the staff UI.
func (r *ReportRepo) List(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports,
		`SELECT id, reporter, offender, channel, message_text, reason, created_at
         FROM reports ORDER BY id DESC LIMIT $1`, limit)
	return reports, err
}
