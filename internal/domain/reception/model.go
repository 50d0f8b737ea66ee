package reception

import (
	"time"

	"github.com/google/uuid"
)

// Reception is a patient visit: the parent under which billed service lines
// are grouped. PatientName is denormalized so dashboard payloads need no join.
type Reception struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Code        string     `db:"code" json:"code"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ServiceType is the per-domain configuration for a billable service:
// which specialized record model backs it (a dotted path resolved through
// the specialized registry) and which role's dashboard watches it.
type ServiceType struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Code                 string    `db:"code" json:"code"`
	Name                 string    `db:"name" json:"name"`
	SpecializedModelPath *string   `db:"specialized_model_path" json:"specialized_model_path,omitempty"`
	ResponsibleRole      *string   `db:"responsible_role" json:"responsible_role,omitempty"`
	EstimatedDuration    *string   `db:"estimated_duration" json:"estimated_duration,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// ReceptionService is a billed service line — the trackable entity whose
// lifecycle the status ledger records. LatestStatus caches the status of the
// most recent ledger event so list views avoid event-table scans.
type ReceptionService struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ReceptionID   uuid.UUID  `db:"reception_id" json:"reception_id"`
	ServiceTypeID uuid.UUID  `db:"service_type_id" json:"service_type_id"`
	TrackingCode  string     `db:"tracking_code" json:"tracking_code"`
	LatestStatus  string     `db:"latest_status" json:"latest_status"`
	ScheduledAt   *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	DoneAt        *time.Time `db:"done_at" json:"done_at,omitempty"`
	CancelledAt   *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Status returns the derived current status: the cached latest event status,
// or pending when no event has been recorded yet.
func (s *ReceptionService) Status() string {
	if s.LatestStatus == "" {
		return StatusPending
	}
	return s.LatestStatus
}

// StatusEvent is one append-only ledger entry. DurationSeconds stays zero
// until a later event for the same service closes the interval, at which
// point it is back-filled with the elapsed seconds (minimum 1).
type StatusEvent struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ServiceID       uuid.UUID  `db:"service_id" json:"service_id"`
	Status          string     `db:"status" json:"status"`
	ChangedBy       *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	DurationSeconds int64      `db:"duration_seconds" json:"duration_seconds"`
	Note            *string    `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

const (
	StatusPending   = "pending"
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusRejected  = "rejected"
	StatusOnHold    = "on_hold"
)

var validServiceStatuses = map[string]bool{
	StatusPending:   true,
	StatusStarted:   true,
	StatusCompleted: true,
	StatusCanceled:  true,
	StatusRejected:  true,
	StatusOnHold:    true,
}

var statusDisplayNames = map[string]string{
	StatusPending:   "Pending",
	StatusStarted:   "Started",
	StatusCompleted: "Completed",
	StatusCanceled:  "Canceled",
	StatusRejected:  "Rejected",
	StatusOnHold:    "On Hold",
}

// StatusDisplay returns the human-readable name for a status code.
func StatusDisplay(status string) string {
	if d, ok := statusDisplayNames[status]; ok {
		return d
	}
	return status
}
