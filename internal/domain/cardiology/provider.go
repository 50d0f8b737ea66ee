package cardiology

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/specialized"
)

// Dotted paths under which this package's records are resolvable.
const (
	PathECGRecord          = "cardiology.ECGRecord"
	PathHolterInstallation = "cardiology.HolterInstallation"
)

// RegisterProviders wires this package's record types into the specialized
// registry so service types can reference them by dotted path.
func RegisterProviders(reg *specialized.Registry, ecg ECGRepository, holter HolterRepository) {
	reg.Register(PathECGRecord, &ecgProvider{repo: ecg})
	reg.Register(PathHolterInstallation, &holterProvider{repo: holter})
}

type ecgProvider struct {
	repo ECGRepository
}

func (p *ecgProvider) Find(ctx context.Context, parentType string, parentID uuid.UUID) (*specialized.RecordRef, error) {
	rec, err := p.repo.FindByParent(ctx, parentType, parentID)
	if err != nil || rec == nil {
		return nil, err
	}
	return &specialized.RecordRef{ID: rec.ID}, nil
}

// Stages is empty: the ECG record itself is the deliverable.
func (p *ecgProvider) Stages() []specialized.StageDescriptor { return nil }

type holterProvider struct {
	repo HolterRepository
}

func (p *holterProvider) Find(ctx context.Context, parentType string, parentID uuid.UUID) (*specialized.RecordRef, error) {
	h, err := p.repo.FindInstallationByParent(ctx, parentType, parentID)
	if err != nil || h == nil {
		return nil, err
	}
	return &specialized.RecordRef{ID: h.ID}, nil
}

func (p *holterProvider) Stages() []specialized.StageDescriptor {
	return []specialized.StageDescriptor{
		{Name: "HolterReception", Exists: p.repo.ReceptionExists},
		{Name: "HolterReading", Exists: p.repo.ReadingExists},
		{Name: "HolterReport", Exists: p.repo.ReportExists},
	}
}
