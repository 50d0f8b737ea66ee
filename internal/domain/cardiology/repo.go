package cardiology

import (
	"context"

	"github.com/google/uuid"
)

type ECGRepository interface {
	Create(ctx context.Context, r *ECGRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*ECGRecord, error)
	// FindByParent locates the record attached to a generic parent, or
	// returns nil when none exists.
	FindByParent(ctx context.Context, parentType string, parentID uuid.UUID) (*ECGRecord, error)
}

type HolterRepository interface {
	CreateInstallation(ctx context.Context, h *HolterInstallation) error
	GetInstallation(ctx context.Context, id uuid.UUID) (*HolterInstallation, error)
	FindInstallationByParent(ctx context.Context, parentType string, parentID uuid.UUID) (*HolterInstallation, error)

	CreateReception(ctx context.Context, r *HolterReception) error
	ReceptionExists(ctx context.Context, installationID uuid.UUID) (bool, error)

	CreateReading(ctx context.Context, r *HolterReading) error
	ReadingExists(ctx context.Context, installationID uuid.UUID) (bool, error)

	CreateReport(ctx context.Context, r *HolterReport) error
	ReportExists(ctx context.Context, installationID uuid.UUID) (bool, error)
}
