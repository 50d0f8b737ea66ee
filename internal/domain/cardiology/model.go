package cardiology

import (
	"time"

	"github.com/google/uuid"
)

// ECGRecord is a single-stage specialized record: the record itself carries
// the findings, so its existence doubles as "report done" on dashboards.
type ECGRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ParentType  string     `db:"parent_type" json:"parent_type"`
	ParentID    uuid.UUID  `db:"parent_id" json:"parent_id"`
	PerformedBy *uuid.UUID `db:"performed_by" json:"performed_by,omitempty"`
	HeartRate   *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	Rhythm      *string    `db:"rhythm" json:"rhythm,omitempty"`
	Findings    *string    `db:"findings" json:"findings,omitempty"`
	Conclusion  *string    `db:"conclusion" json:"conclusion,omitempty"`
	RecordedAt  time.Time  `db:"recorded_at" json:"recorded_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// HolterInstallation is the base record of the multi-stage Holter workflow.
// The device goes on the patient here; the return visit, the reading, and
// the final report are separate stage rows keyed by the installation.
type HolterInstallation struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ParentType   string     `db:"parent_type" json:"parent_type"`
	ParentID     uuid.UUID  `db:"parent_id" json:"parent_id"`
	DeviceSerial string     `db:"device_serial" json:"device_serial"`
	InstalledBy  *uuid.UUID `db:"installed_by" json:"installed_by,omitempty"`
	InstalledAt  time.Time  `db:"installed_at" json:"installed_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HolterReception records the device coming back from the patient.
type HolterReception struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	InstallationID uuid.UUID  `db:"installation_id" json:"installation_id"`
	ReceivedBy     *uuid.UUID `db:"received_by" json:"received_by,omitempty"`
	DeviceIntact   bool       `db:"device_intact" json:"device_intact"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	ReceivedAt     time.Time  `db:"received_at" json:"received_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// HolterReading is the analysis of the recorded data.
type HolterReading struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	InstallationID uuid.UUID  `db:"installation_id" json:"installation_id"`
	ReadBy         *uuid.UUID `db:"read_by" json:"read_by,omitempty"`
	Summary        *string    `db:"summary" json:"summary,omitempty"`
	ReadAt         time.Time  `db:"read_at" json:"read_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// HolterReport is the physician's signed-off conclusion.
type HolterReport struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	InstallationID uuid.UUID  `db:"installation_id" json:"installation_id"`
	AuthoredBy     *uuid.UUID `db:"authored_by" json:"authored_by,omitempty"`
	Conclusion     string     `db:"conclusion" json:"conclusion"`
	AuthoredAt     time.Time  `db:"authored_at" json:"authored_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
