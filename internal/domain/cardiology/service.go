package cardiology

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	ecg    ECGRepository
	holter HolterRepository
}

func NewService(ecg ECGRepository, holter HolterRepository) *Service {
	return &Service{ecg: ecg, holter: holter}
}

func (s *Service) CreateECG(ctx context.Context, rec *ECGRecord) error {
	if rec.ParentID == uuid.Nil {
		return fmt.Errorf("parent_id is required")
	}
	if rec.ParentType == "" {
		return fmt.Errorf("parent_type is required")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	return s.ecg.Create(ctx, rec)
}

func (s *Service) GetECG(ctx context.Context, id uuid.UUID) (*ECGRecord, error) {
	return s.ecg.GetByID(ctx, id)
}

func (s *Service) CreateInstallation(ctx context.Context, h *HolterInstallation) error {
	if h.ParentID == uuid.Nil {
		return fmt.Errorf("parent_id is required")
	}
	if h.ParentType == "" {
		return fmt.Errorf("parent_type is required")
	}
	if h.DeviceSerial == "" {
		return fmt.Errorf("device_serial is required")
	}
	if h.InstalledAt.IsZero() {
		h.InstalledAt = time.Now().UTC()
	}
	return s.holter.CreateInstallation(ctx, h)
}

func (s *Service) GetInstallation(ctx context.Context, id uuid.UUID) (*HolterInstallation, error) {
	return s.holter.GetInstallation(ctx, id)
}

// RecordReception registers the device return. Each installation takes one
// reception at most.
func (s *Service) RecordReception(ctx context.Context, rec *HolterReception) error {
	if err := s.requireInstallation(ctx, rec.InstallationID); err != nil {
		return err
	}
	done, err := s.holter.ReceptionExists(ctx, rec.InstallationID)
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("device already received for installation %s", rec.InstallationID)
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	return s.holter.CreateReception(ctx, rec)
}

// RecordReading registers the analysis. It requires the device to be back.
func (s *Service) RecordReading(ctx context.Context, rd *HolterReading) error {
	if err := s.requireInstallation(ctx, rd.InstallationID); err != nil {
		return err
	}
	received, err := s.holter.ReceptionExists(ctx, rd.InstallationID)
	if err != nil {
		return err
	}
	if !received {
		return fmt.Errorf("device not yet received for installation %s", rd.InstallationID)
	}
	if rd.ReadAt.IsZero() {
		rd.ReadAt = time.Now().UTC()
	}
	return s.holter.CreateReading(ctx, rd)
}

// RecordReport registers the signed-off conclusion. It requires a reading.
func (s *Service) RecordReport(ctx context.Context, rp *HolterReport) error {
	if rp.Conclusion == "" {
		return fmt.Errorf("conclusion is required")
	}
	if err := s.requireInstallation(ctx, rp.InstallationID); err != nil {
		return err
	}
	read, err := s.holter.ReadingExists(ctx, rp.InstallationID)
	if err != nil {
		return err
	}
	if !read {
		return fmt.Errorf("no reading recorded for installation %s", rp.InstallationID)
	}
	if rp.AuthoredAt.IsZero() {
		rp.AuthoredAt = time.Now().UTC()
	}
	return s.holter.CreateReport(ctx, rp)
}

func (s *Service) requireInstallation(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("installation_id is required")
	}
	if _, err := s.holter.GetInstallation(ctx, id); err != nil {
		return fmt.Errorf("installation %s: %w", id, err)
	}
	return nil
}
