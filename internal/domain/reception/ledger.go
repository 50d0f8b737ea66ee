package reception

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/specialized"
	"github.com/clinicdesk/clinicdesk/internal/platform/websocket"
)

// Ledger records status transitions for reception services as an append-only
// event log, maintains the cached latest-status column, and fans each
// successful transition out to the responsible role's dashboard.
type Ledger struct {
	services     ServiceRepository
	receptions   ReceptionRepository
	serviceTypes ServiceTypeRepository
	registry     *specialized.Registry
	publisher    websocket.Publisher
	logger       zerolog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewLedger(
	services ServiceRepository,
	receptions ReceptionRepository,
	serviceTypes ServiceTypeRepository,
	registry *specialized.Registry,
	publisher websocket.Publisher,
	logger zerolog.Logger,
) *Ledger {
	return &Ledger{
		services:     services,
		receptions:   receptions,
		serviceTypes: serviceTypes,
		registry:     registry,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// OpenService writes the initial pending event for a freshly created service
// line. Without it the wait before the first real transition would leave no
// closed interval behind: the first transition would have no previous event
// to back-fill, and the time spent pending would vanish from the breakdown.
func (l *Ledger) OpenService(ctx context.Context, svc *ReceptionService) error {
	event := &StatusEvent{
		ServiceID: svc.ID,
		Status:    StatusPending,
		CreatedAt: l.now(),
	}
	if err := l.services.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	return nil
}

// RecordTransition appends a status event for the given service. It returns
// false without writing anything when newStatus equals the service's current
// derived status, making repeated submissions of the same transition safe.
//
// On a real transition it, in order: creates the event, back-fills the
// previous event's duration (minimum one second, so every closed interval is
// strictly positive even for sub-second transitions), updates the cached
// latest-status column, and finally publishes the dashboard notification.
// The publish step is best-effort; its failure never fails the transition.
//
// The duration back-fill is a read-then-write without a row lock: two
// concurrent transitions on one service could both observe the previous
// event as open. Both would compute the same value from the same pair of
// timestamps and the conditional update writes it once, so the race is
// benign and deliberately left unserialized.
func (l *Ledger) RecordTransition(ctx context.Context, serviceID uuid.UUID, newStatus string, actorID *uuid.UUID, note *string) (bool, error) {
	if !validServiceStatuses[newStatus] {
		return false, fmt.Errorf("invalid status: %s", newStatus)
	}

	svc, err := l.services.GetByID(ctx, serviceID)
	if err != nil {
		return false, fmt.Errorf("service %s: %w", serviceID, err)
	}

	if svc.Status() == newStatus {
		return false, nil
	}

	event := &StatusEvent{
		ServiceID: svc.ID,
		Status:    newStatus,
		ChangedBy: actorID,
		Note:      note,
		CreatedAt: l.now(),
	}
	if err := l.services.CreateEvent(ctx, event); err != nil {
		return false, fmt.Errorf("create status event: %w", err)
	}

	prev, err := l.services.LatestEventBefore(ctx, svc.ID, event.ID)
	if err != nil {
		return false, fmt.Errorf("locate previous event: %w", err)
	}
	if prev != nil && prev.DurationSeconds == 0 {
		seconds := int64(event.CreatedAt.Sub(prev.CreatedAt).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		if err := l.services.BackfillDuration(ctx, prev.ID, seconds); err != nil {
			return false, fmt.Errorf("backfill duration: %w", err)
		}
	}

	if svc.LatestStatus != newStatus {
		var doneAt, cancelledAt *time.Time
		switch newStatus {
		case StatusCompleted:
			t := event.CreatedAt
			doneAt = &t
		case StatusCanceled, StatusRejected:
			t := event.CreatedAt
			cancelledAt = &t
		}
		if err := l.services.UpdateLatestStatus(ctx, svc.ID, newStatus, doneAt, cancelledAt); err != nil {
			return false, fmt.Errorf("update latest status: %w", err)
		}
		svc.LatestStatus = newStatus
		if doneAt != nil {
			svc.DoneAt = doneAt
		}
		if cancelledAt != nil {
			svc.CancelledAt = cancelledAt
		}
	}

	l.publishTransition(ctx, svc)

	return true, nil
}

// LastStatus returns the status of the most recent ledger event, or pending
// when the ledger is empty.
func (l *Ledger) LastStatus(ctx context.Context, serviceID uuid.UUID) (string, error) {
	events, err := l.services.EventsForService(ctx, serviceID)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return StatusPending, nil
	}
	return events[len(events)-1].Status, nil
}

// CurrentStatusElapsed returns how long the service has been in its current
// status: the time since the most recent event, or zero for an empty ledger.
func (l *Ledger) CurrentStatusElapsed(ctx context.Context, serviceID uuid.UUID) (time.Duration, error) {
	events, err := l.services.EventsForService(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	return l.now().Sub(events[len(events)-1].CreatedAt), nil
}

// DurationsByStatus aggregates the recorded (closed) interval durations per
// status across the ledger. The open current interval is not included.
func (l *Ledger) DurationsByStatus(ctx context.Context, serviceID uuid.UUID) (map[string]int64, error) {
	events, err := l.services.EventsForService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	for _, e := range events {
		if e.DurationSeconds > 0 {
			totals[e.Status] += e.DurationSeconds
		}
	}
	return totals, nil
}

// TotalElapsed returns the span from the first ledger entry to the last, or
// zero for ledgers with fewer than two events.
func (l *Ledger) TotalElapsed(ctx context.Context, serviceID uuid.UUID) (time.Duration, error) {
	events, err := l.services.EventsForService(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	if len(events) < 2 {
		return 0, nil
	}
	return events[len(events)-1].CreatedAt.Sub(events[0].CreatedAt), nil
}

// History returns the full ledger for a service in ascending order.
func (l *Ledger) History(ctx context.Context, serviceID uuid.UUID) ([]*StatusEvent, error) {
	return l.services.EventsForService(ctx, serviceID)
}

// publishTransition builds and broadcasts the dashboard notification for a
// just-recorded transition. Every failure path logs and returns: the ledger
// write is authoritative, the notification is a convenience on top of it.
func (l *Ledger) publishTransition(ctx context.Context, svc *ReceptionService) {
	if l.publisher == nil {
		return
	}

	st, err := l.serviceTypes.GetByID(ctx, svc.ServiceTypeID)
	if err != nil {
		l.logger.Warn().Err(err).Stringer("service_id", svc.ID).Msg("fan-out: load service type")
		return
	}
	if st.ResponsibleRole == nil || *st.ResponsibleRole == "" {
		return
	}

	rec, err := l.receptions.GetByID(ctx, svc.ReceptionID)
	if err != nil {
		l.logger.Warn().Err(err).Stringer("service_id", svc.ID).Msg("fan-out: load reception")
		return
	}

	var flags specialized.Flags
	if l.registry != nil && st.SpecializedModelPath != nil {
		flags = l.registry.CheckExistence(ctx, *st.SpecializedModelPath, TrackableType, svc.ID)
	}

	msg := NewServiceMessage(svc, rec, st, flags)
	if err := l.publisher.Publish(ctx, *st.ResponsibleRole, msg); err != nil {
		l.logger.Warn().Err(err).Str("role", *st.ResponsibleRole).Msg("fan-out: publish failed")
	}
}
