package closing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/juandiegoalamohe-alt/localpix/internal/models"
)

// ReportWriter writes the closing summary row. It implements Writer, so the
// insert lands in the same transaction that destroys the descriptors.
type ReportWriter struct {
	Report models.ClosingReport
}

// NewReportWriter prepares a closing report for the given operator.
func NewReportWriter(closedBy, notes string) *ReportWriter {
	return &ReportWriter{
		Report: models.ClosingReport{
			ID:        uuid.New(),
			Timestamp: time.Now().UTC(),
			ClosedBy:  closedBy,
			Notes:     notes,
		},
	}
}

func (w *ReportWriter) Commit(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO closing_reports (id, timestamp, closed_by, notes) VALUES ($1, $2, $3, $4)`,
		w.Report.ID, w.Report.Timestamp, w.Report.ClosedBy, w.Report.Notes)
	if err != nil {
		return fmt.Errorf("insert closing report: %w", err)
	}
	return nil
}
