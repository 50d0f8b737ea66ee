package specialized

import (
	"context"

	"github.com/google/uuid"
)

// Flags reports whether a service line's specialized record and its stages
// exist. They are merged top-level into the dashboard broadcast payload.
type Flags struct {
	HasSpecializedRecord bool       `json:"has_specialized_record"`
	SpecializedBaseID    *uuid.UUID `json:"specialized_base_id"`
	HasStageReception    bool       `json:"has_stage_reception"`
	HasStageReading      bool       `json:"has_stage_reading"`
	HasStageReport       bool       `json:"has_stage_report"`
	IsMultiStage         bool       `json:"is_multi_stage_service"`
}

// CheckExistence computes the existence flags for the service line whose
// configured model path, parent type, and parent id are given. Every failure
// mode degrades to false flags: unresolved path, base lookup error, or a
// per-stage probe error each log (inside the provider or registry) without
// aborting the rest of the computation.
func (r *Registry) CheckExistence(ctx context.Context, path, parentType string, parentID uuid.UUID) Flags {
	var flags Flags

	p := r.Resolve(path)
	if p == nil {
		return flags
	}

	stages := p.Stages()
	flags.IsMultiStage = len(stages) > 0

	base, err := p.Find(ctx, parentType, parentID)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("specialized record lookup failed")
		return flags
	}
	if base == nil {
		return flags
	}

	flags.HasSpecializedRecord = true
	id := base.ID
	flags.SpecializedBaseID = &id

	if len(stages) == 0 {
		// Single-stage record: the base row is the final report.
		flags.HasStageReport = true
		return flags
	}

	for _, stage := range stages {
		kind := stage.Kind()
		if kind == StageUnknown || stage.Exists == nil {
			continue
		}
		exists, err := stage.Exists(ctx, base.ID)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("path", path).
				Str("stage", stage.Name).
				Msg("stage existence probe failed")
			continue
		}
		if !exists {
			continue
		}
		switch kind {
		case StageReception:
			flags.HasStageReception = true
		case StageReading:
			flags.HasStageReading = true
		case StageReport:
			flags.HasStageReport = true
		}
	}

	return flags
}
