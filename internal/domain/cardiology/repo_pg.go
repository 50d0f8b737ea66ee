package cardiology

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type ecgRepoPG struct {
	pool *pgxpool.Pool
}

func NewECGRepo(pool *pgxpool.Pool) ECGRepository {
	return &ecgRepoPG{pool: pool}
}

func (r *ecgRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const ecgCols = `id, parent_type, parent_id, performed_by, heart_rate, rhythm, findings, conclusion, recorded_at, created_at, updated_at`

func (r *ecgRepoPG) Create(ctx context.Context, rec *ECGRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ecg_record (id, parent_type, parent_id, performed_by, heart_rate, rhythm, findings, conclusion, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.ParentType, rec.ParentID, rec.PerformedBy, rec.HeartRate, rec.Rhythm, rec.Findings, rec.Conclusion, rec.RecordedAt,
	)
	return err
}

func (r *ecgRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ECGRecord, error) {
	return scanECG(r.conn(ctx).QueryRow(ctx, `SELECT `+ecgCols+` FROM ecg_record WHERE id = $1`, id))
}

func (r *ecgRepoPG) FindByParent(ctx context.Context, parentType string, parentID uuid.UUID) (*ECGRecord, error) {
	rec, err := scanECG(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ecgCols+` FROM ecg_record WHERE parent_type = $1 AND parent_id = $2 ORDER BY created_at DESC LIMIT 1`,
		parentType, parentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanECG(row pgx.Row) (*ECGRecord, error) {
	var rec ECGRecord
	if err := row.Scan(&rec.ID, &rec.ParentType, &rec.ParentID, &rec.PerformedBy, &rec.HeartRate, &rec.Rhythm,
		&rec.Findings, &rec.Conclusion, &rec.RecordedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

type holterRepoPG struct {
	pool *pgxpool.Pool
}

func NewHolterRepo(pool *pgxpool.Pool) HolterRepository {
	return &holterRepoPG{pool: pool}
}

func (r *holterRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const holterCols = `id, parent_type, parent_id, device_serial, installed_by, installed_at, created_at, updated_at`

func (r *holterRepoPG) CreateInstallation(ctx context.Context, h *HolterInstallation) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO holter_installation (id, parent_type, parent_id, device_serial, installed_by, installed_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.ParentType, h.ParentID, h.DeviceSerial, h.InstalledBy, h.InstalledAt,
	)
	return err
}

func (r *holterRepoPG) GetInstallation(ctx context.Context, id uuid.UUID) (*HolterInstallation, error) {
	return scanHolter(r.conn(ctx).QueryRow(ctx, `SELECT `+holterCols+` FROM holter_installation WHERE id = $1`, id))
}

func (r *holterRepoPG) FindInstallationByParent(ctx context.Context, parentType string, parentID uuid.UUID) (*HolterInstallation, error) {
	h, err := scanHolter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+holterCols+` FROM holter_installation WHERE parent_type = $1 AND parent_id = $2 ORDER BY created_at DESC LIMIT 1`,
		parentType, parentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return h, err
}

func scanHolter(row pgx.Row) (*HolterInstallation, error) {
	var h HolterInstallation
	if err := row.Scan(&h.ID, &h.ParentType, &h.ParentID, &h.DeviceSerial, &h.InstalledBy, &h.InstalledAt,
		&h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *holterRepoPG) CreateReception(ctx context.Context, rec *HolterReception) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO holter_reception (id, installation_id, received_by, device_intact, notes, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.InstallationID, rec.ReceivedBy, rec.DeviceIntact, rec.Notes, rec.ReceivedAt,
	)
	return err
}

func (r *holterRepoPG) ReceptionExists(ctx context.Context, installationID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM holter_reception WHERE installation_id = $1)`, installationID)
}

func (r *holterRepoPG) CreateReading(ctx context.Context, rd *HolterReading) error {
	rd.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO holter_reading (id, installation_id, read_by, summary, read_at)
		VALUES ($1,$2,$3,$4,$5)`,
		rd.ID, rd.InstallationID, rd.ReadBy, rd.Summary, rd.ReadAt,
	)
	return err
}

func (r *holterRepoPG) ReadingExists(ctx context.Context, installationID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM holter_reading WHERE installation_id = $1)`, installationID)
}

func (r *holterRepoPG) CreateReport(ctx context.Context, rp *HolterReport) error {
	rp.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO holter_report (id, installation_id, authored_by, conclusion, authored_at)
		VALUES ($1,$2,$3,$4,$5)`,
		rp.ID, rp.InstallationID, rp.AuthoredBy, rp.Conclusion, rp.AuthoredAt,
	)
	return err
}

func (r *holterRepoPG) ReportExists(ctx context.Context, installationID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM holter_report WHERE installation_id = $1)`, installationID)
}

func (r *holterRepoPG) exists(ctx context.Context, sql string, installationID uuid.UUID) (bool, error) {
	var found bool
	if err := r.conn(ctx).QueryRow(ctx, sql, installationID).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
