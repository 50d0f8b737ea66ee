package reception

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by the Get* lookups when no row matches. Callers
// test it with errors.Is; handlers map it to a 404.
var ErrNotFound = errors.New("not found")

type ReceptionRepository interface {
	Create(ctx context.Context, r *Reception) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reception, error)
	List(ctx context.Context, limit, offset int) ([]*Reception, int, error)
}

type ServiceTypeRepository interface {
	Create(ctx context.Context, st *ServiceType) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceType, error)
	GetByCode(ctx context.Context, code string) (*ServiceType, error)
	List(ctx context.Context) ([]*ServiceType, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, s *ReceptionService) error
	GetByID(ctx context.Context, id uuid.UUID) (*ReceptionService, error)
	ListByReception(ctx context.Context, receptionID uuid.UUID) ([]*ReceptionService, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*ReceptionService, int, error)

	// UpdateLatestStatus persists only the cached status column and the
	// terminal timestamps; the full row is never rewritten on a transition.
	UpdateLatestStatus(ctx context.Context, id uuid.UUID, status string, doneAt, cancelledAt *time.Time) error

	CreateEvent(ctx context.Context, e *StatusEvent) error
	// EventsForService returns the ledger in ascending timestamp order.
	EventsForService(ctx context.Context, serviceID uuid.UUID) ([]*StatusEvent, error)
	// LatestEventBefore returns the most recent event for the service
	// excluding the given event id, or nil when the ledger was empty.
	LatestEventBefore(ctx context.Context, serviceID, excludeID uuid.UUID) (*StatusEvent, error)
	// BackfillDuration sets duration_seconds on an event only if it is
	// still open (zero). Concurrent back-fills compute the same value, so
	// the conditional write keeps the race benign.
	BackfillDuration(ctx context.Context, eventID uuid.UUID, seconds int64) error
}
