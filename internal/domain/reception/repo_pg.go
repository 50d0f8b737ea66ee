package reception

import (
	"context"
	"errors"
	"time"

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

// -- Receptions --

type receptionRepoPG struct {
	pool *pgxpool.Pool
}

func NewReceptionRepo(pool *pgxpool.Pool) ReceptionRepository {
	return &receptionRepoPG{pool: pool}
}

func (r *receptionRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const receptionCols = `id, code, patient_id, patient_name, scheduled_at, created_at, updated_at`

func (r *receptionRepoPG) Create(ctx context.Context, rec *Reception) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reception (id, code, patient_id, patient_name, scheduled_at)
		VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.Code, rec.PatientID, rec.PatientName, rec.ScheduledAt,
	)
	return err
}

func (r *receptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reception, error) {
	rec, err := scanReception(r.conn(ctx).QueryRow(ctx, `SELECT `+receptionCols+` FROM reception WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *receptionRepoPG) List(ctx context.Context, limit, offset int) ([]*Reception, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reception`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+receptionCols+` FROM reception ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*Reception
	for rows.Next() {
		var rec Reception
		if err := rows.Scan(&rec.ID, &rec.Code, &rec.PatientID, &rec.PatientName, &rec.ScheduledAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, err
		}
		recs = append(recs, &rec)
	}
	return recs, total, rows.Err()
}

func scanReception(row pgx.Row) (*Reception, error) {
	var rec Reception
	if err := row.Scan(&rec.ID, &rec.Code, &rec.PatientID, &rec.PatientName, &rec.ScheduledAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// -- Service types --

type serviceTypeRepoPG struct {
	pool *pgxpool.Pool
}

func NewServiceTypeRepo(pool *pgxpool.Pool) ServiceTypeRepository {
	return &serviceTypeRepoPG{pool: pool}
}

func (r *serviceTypeRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const serviceTypeCols = `id, code, name, specialized_model_path, responsible_role, estimated_duration, created_at, updated_at`

func (r *serviceTypeRepoPG) Create(ctx context.Context, st *ServiceType) error {
	st.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service_type (id, code, name, specialized_model_path, responsible_role, estimated_duration)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		st.ID, st.Code, st.Name, st.SpecializedModelPath, st.ResponsibleRole, st.EstimatedDuration,
	)
	return err
}

func (r *serviceTypeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceType, error) {
	st, err := scanServiceType(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceTypeCols+` FROM service_type WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return st, err
}

func (r *serviceTypeRepoPG) GetByCode(ctx context.Context, code string) (*ServiceType, error) {
	st, err := scanServiceType(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceTypeCols+` FROM service_type WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return st, err
}

func (r *serviceTypeRepoPG) List(ctx context.Context) ([]*ServiceType, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceTypeCols+` FROM service_type ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*ServiceType
	for rows.Next() {
		var st ServiceType
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.SpecializedModelPath, &st.ResponsibleRole, &st.EstimatedDuration, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		types = append(types, &st)
	}
	return types, rows.Err()
}

func scanServiceType(row pgx.Row) (*ServiceType, error) {
	var st ServiceType
	if err := row.Scan(&st.ID, &st.Code, &st.Name, &st.SpecializedModelPath, &st.ResponsibleRole, &st.EstimatedDuration, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// -- Services and their status ledger --

type serviceRepoPG struct {
	pool *pgxpool.Pool
}

func NewServiceRepo(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

func (r *serviceRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const serviceCols = `id, reception_id, service_type_id, tracking_code, latest_status, scheduled_at, done_at, cancelled_at, created_at, updated_at`

func (r *serviceRepoPG) Create(ctx context.Context, s *ReceptionService) error {
	s.ID = uuid.New()
	if s.LatestStatus == "" {
		s.LatestStatus = StatusPending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reception_service (id, reception_id, service_type_id, tracking_code, latest_status, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.ReceptionID, s.ServiceTypeID, s.TrackingCode, s.LatestStatus, s.ScheduledAt,
	)
	return err
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ReceptionService, error) {
	s, err := scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM reception_service WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *serviceRepoPG) ListByReception(ctx context.Context, receptionID uuid.UUID) ([]*ReceptionService, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+serviceCols+` FROM reception_service WHERE reception_id = $1 ORDER BY created_at`, receptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectServices(rows)
}

func (r *serviceRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*ReceptionService, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reception_service WHERE latest_status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+serviceCols+` FROM reception_service WHERE latest_status = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	svcs, err := collectServices(rows)
	return svcs, total, err
}

func (r *serviceRepoPG) UpdateLatestStatus(ctx context.Context, id uuid.UUID, status string, doneAt, cancelledAt *time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE reception_service
		SET latest_status = $2,
		    done_at = COALESCE($3, done_at),
		    cancelled_at = COALESCE($4, cancelled_at),
		    updated_at = NOW()
		WHERE id = $1`,
		id, status, doneAt, cancelledAt,
	)
	return err
}

func (r *serviceRepoPG) CreateEvent(ctx context.Context, e *StatusEvent) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service_status_event (id, service_id, status, changed_by, duration_seconds, note, created_at)
		VALUES ($1,$2,$3,$4,0,$5,$6)`,
		e.ID, e.ServiceID, e.Status, e.ChangedBy, e.Note, e.CreatedAt,
	)
	return err
}

const eventCols = `id, service_id, status, changed_by, duration_seconds, note, created_at`

func (r *serviceRepoPG) EventsForService(ctx context.Context, serviceID uuid.UUID) ([]*StatusEvent, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM service_status_event WHERE service_id = $1 ORDER BY created_at, id`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*StatusEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *serviceRepoPG) LatestEventBefore(ctx context.Context, serviceID, excludeID uuid.UUID) (*StatusEvent, error) {
	e, err := scanEventRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+eventCols+` FROM service_status_event
		WHERE service_id = $1 AND id <> $2
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		serviceID, excludeID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *serviceRepoPG) BackfillDuration(ctx context.Context, eventID uuid.UUID, seconds int64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service_status_event SET duration_seconds = $2
		WHERE id = $1 AND duration_seconds = 0`,
		eventID, seconds,
	)
	return err
}

func scanService(row pgx.Row) (*ReceptionService, error) {
	var s ReceptionService
	if err := row.Scan(&s.ID, &s.ReceptionID, &s.ServiceTypeID, &s.TrackingCode, &s.LatestStatus,
		&s.ScheduledAt, &s.DoneAt, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectServices(rows pgx.Rows) ([]*ReceptionService, error) {
	var svcs []*ReceptionService
	for rows.Next() {
		var s ReceptionService
		if err := rows.Scan(&s.ID, &s.ReceptionID, &s.ServiceTypeID, &s.TrackingCode, &s.LatestStatus,
			&s.ScheduledAt, &s.DoneAt, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		svcs = append(svcs, &s)
	}
	return svcs, rows.Err()
}

func scanEvent(rows pgx.Rows) (*StatusEvent, error) {
	var e StatusEvent
	if err := rows.Scan(&e.ID, &e.ServiceID, &e.Status, &e.ChangedBy, &e.DurationSeconds, &e.Note, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEventRow(row pgx.Row) (*StatusEvent, error) {
	var e StatusEvent
	if err := row.Scan(&e.ID, &e.ServiceID, &e.Status, &e.ChangedBy, &e.DurationSeconds, &e.Note, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
