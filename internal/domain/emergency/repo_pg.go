package emergency

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type documentRepoPG struct{ db execer }

func NewDocumentRepoPG(pool *pgxpool.Pool) Repository { return &documentRepoPG{db: pool} }

func (r *documentRepoPG) Insert(ctx context.Context, d *Document) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO hub_document (id, kind, emergency_id, patient_id, ambulance_id, status, body, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, string(d.Kind), d.EmergencyID, d.PatientID, d.AmbulanceID, string(d.Status), d.Body, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s document: %w", d.Kind, err)
	}
	return nil
}
