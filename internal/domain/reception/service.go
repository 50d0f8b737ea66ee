package reception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type Service struct {
	receptions   ReceptionRepository
	serviceTypes ServiceTypeRepository
	services     ServiceRepository
	ledger       *Ledger
}

func NewService(receptions ReceptionRepository, serviceTypes ServiceTypeRepository, services ServiceRepository, ledger *Ledger) *Service {
	return &Service{
		receptions:   receptions,
		serviceTypes: serviceTypes,
		services:     services,
		ledger:       ledger,
	}
}

func (s *Service) CreateReception(ctx context.Context, rec *Reception) error {
	if rec.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(rec.PatientName) == "" {
		return fmt.Errorf("patient_name is required")
	}
	if rec.Code == "" {
		rec.Code = generateCode("RC")
	}
	return s.receptions.Create(ctx, rec)
}

func (s *Service) GetReception(ctx context.Context, id uuid.UUID) (*Reception, error) {
	return s.receptions.GetByID(ctx, id)
}

func (s *Service) ListReceptions(ctx context.Context, limit, offset int) ([]*Reception, int, error) {
	return s.receptions.List(ctx, limit, offset)
}

func (s *Service) CreateServiceType(ctx context.Context, st *ServiceType) error {
	if st.Code == "" {
		return fmt.Errorf("code is required")
	}
	if st.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.serviceTypes.Create(ctx, st)
}

func (s *Service) ListServiceTypes(ctx context.Context) ([]*ServiceType, error) {
	return s.serviceTypes.List(ctx)
}

// AddService attaches a billed service line to a reception. The line starts
// in pending and its ledger opens immediately with a pending event, so the
// wait before the first real transition is measured like any later interval.
func (s *Service) AddService(ctx context.Context, receptionID uuid.UUID, serviceTypeCode string, scheduledAt *time.Time) (*ReceptionService, error) {
	if _, err := s.receptions.GetByID(ctx, receptionID); err != nil {
		return nil, fmt.Errorf("reception %s: %w", receptionID, err)
	}
	st, err := s.serviceTypes.GetByCode(ctx, serviceTypeCode)
	if err != nil {
		return nil, fmt.Errorf("service type %q: %w", serviceTypeCode, err)
	}

	svc := &ReceptionService{
		ReceptionID:   receptionID,
		ServiceTypeID: st.ID,
		TrackingCode:  generateCode("SV"),
		LatestStatus:  StatusPending,
		ScheduledAt:   scheduledAt,
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.services.Create(ctx, svc); err != nil {
			return err
		}
		return s.ledger.OpenService(ctx, svc)
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*ReceptionService, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Service) ListServices(ctx context.Context, receptionID uuid.UUID) ([]*ReceptionService, error) {
	return s.services.ListByReception(ctx, receptionID)
}

func (s *Service) ListServicesByStatus(ctx context.Context, status string, limit, offset int) ([]*ReceptionService, int, error) {
	if !validServiceStatuses[status] {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	return s.services.ListByStatus(ctx, status, limit, offset)
}

// Transition records a status change through the ledger. The bool result
// reports whether a new event was actually written.
func (s *Service) Transition(ctx context.Context, serviceID uuid.UUID, status string, actorID *uuid.UUID, note *string) (bool, error) {
	var changed bool
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		changed, err = s.ledger.RecordTransition(ctx, serviceID, status, actorID, note)
		return err
	})
	return changed, err
}

// inTx runs fn inside a transaction on the request's pinned tenant
// connection, so a multi-statement write (event insert, duration back-fill,
// cached status) commits or rolls back as one. Without a pinned connection
// (CLI commands, in-memory tests) fn runs against the plain context.
func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	if db.ConnFromContext(ctx) == nil {
		return fn(ctx)
	}
	txCtx, tx, err := db.WithTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(txCtx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) StatusHistory(ctx context.Context, serviceID uuid.UUID) ([]*StatusEvent, error) {
	return s.ledger.History(ctx, serviceID)
}

// DurationSummary is the per-service timing breakdown exposed on the API.
type DurationSummary struct {
	ServiceID            uuid.UUID        `json:"service_id"`
	CurrentStatus        string           `json:"current_status"`
	CurrentStatusSeconds int64            `json:"current_status_seconds"`
	SecondsByStatus      map[string]int64 `json:"seconds_by_status"`
	TotalSeconds         int64            `json:"total_seconds"`
}

func (s *Service) Durations(ctx context.Context, serviceID uuid.UUID) (*DurationSummary, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	elapsed, err := s.ledger.CurrentStatusElapsed(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.ledger.DurationsByStatus(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	total, err := s.ledger.TotalElapsed(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return &DurationSummary{
		ServiceID:            svc.ID,
		CurrentStatus:        svc.Status(),
		CurrentStatusSeconds: int64(elapsed.Seconds()),
		SecondsByStatus:      byStatus,
		TotalSeconds:         int64(total.Seconds()),
	}, nil
}

func generateCode(prefix string) string {
	id := uuid.New().String()
	return prefix + "-" + strings.ToUpper(id[:8])
}
