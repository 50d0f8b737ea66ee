package reception

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/specialized"
)

// -- in-memory repositories --

type memReceptionRepo struct {
	receptions map[uuid.UUID]*Reception
}

func newMemReceptionRepo() *memReceptionRepo {
	return &memReceptionRepo{receptions: make(map[uuid.UUID]*Reception)}
}

func (m *memReceptionRepo) Create(_ context.Context, r *Reception) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.receptions[r.ID] = r
	return nil
}

func (m *memReceptionRepo) GetByID(_ context.Context, id uuid.UUID) (*Reception, error) {
	r, ok := m.receptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *memReceptionRepo) List(_ context.Context, limit, offset int) ([]*Reception, int, error) {
	var out []*Reception
	for _, r := range m.receptions {
		out = append(out, r)
	}
	return out, len(out), nil
}

type memServiceTypeRepo struct {
	types map[uuid.UUID]*ServiceType
}

func newMemServiceTypeRepo() *memServiceTypeRepo {
	return &memServiceTypeRepo{types: make(map[uuid.UUID]*ServiceType)}
}

func (m *memServiceTypeRepo) Create(_ context.Context, st *ServiceType) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	m.types[st.ID] = st
	return nil
}

func (m *memServiceTypeRepo) GetByID(_ context.Context, id uuid.UUID) (*ServiceType, error) {
	st, ok := m.types[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

func (m *memServiceTypeRepo) GetByCode(_ context.Context, code string) (*ServiceType, error) {
	for _, st := range m.types {
		if st.Code == code {
			return st, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memServiceTypeRepo) List(_ context.Context) ([]*ServiceType, error) {
	var out []*ServiceType
	for _, st := range m.types {
		out = append(out, st)
	}
	return out, nil
}

type memServiceRepo struct {
	services map[uuid.UUID]*ReceptionService
	events   map[uuid.UUID]*StatusEvent
}

func newMemServiceRepo() *memServiceRepo {
	return &memServiceRepo{
		services: make(map[uuid.UUID]*ReceptionService),
		events:   make(map[uuid.UUID]*StatusEvent),
	}
}

func (m *memServiceRepo) Create(_ context.Context, s *ReceptionService) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.LatestStatus == "" {
		s.LatestStatus = StatusPending
	}
	m.services[s.ID] = s
	return nil
}

func (m *memServiceRepo) GetByID(_ context.Context, id uuid.UUID) (*ReceptionService, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memServiceRepo) ListByReception(_ context.Context, receptionID uuid.UUID) ([]*ReceptionService, error) {
	var out []*ReceptionService
	for _, s := range m.services {
		if s.ReceptionID == receptionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memServiceRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*ReceptionService, int, error) {
	var out []*ReceptionService
	for _, s := range m.services {
		if s.LatestStatus == status {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *memServiceRepo) UpdateLatestStatus(_ context.Context, id uuid.UUID, status string, doneAt, cancelledAt *time.Time) error {
	s, ok := m.services[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	s.LatestStatus = status
	if doneAt != nil {
		s.DoneAt = doneAt
	}
	if cancelledAt != nil {
		s.CancelledAt = cancelledAt
	}
	return nil
}

func (m *memServiceRepo) CreateEvent(_ context.Context, e *StatusEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memServiceRepo) EventsForService(_ context.Context, serviceID uuid.UUID) ([]*StatusEvent, error) {
	var out []*StatusEvent
	for _, e := range m.events {
		if e.ServiceID == serviceID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memServiceRepo) LatestEventBefore(ctx context.Context, serviceID, excludeID uuid.UUID) (*StatusEvent, error) {
	events, _ := m.EventsForService(ctx, serviceID)
	var latest *StatusEvent
	for _, e := range events {
		if e.ID == excludeID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest, nil
}

func (m *memServiceRepo) BackfillDuration(_ context.Context, eventID uuid.UUID, seconds int64) error {
	e, ok := m.events[eventID]
	if !ok {
		return fmt.Errorf("not found")
	}
	if e.DurationSeconds == 0 {
		e.DurationSeconds = seconds
	}
	return nil
}

type capturedPublish struct {
	role    string
	payload interface{}
}

type memPublisher struct {
	published []capturedPublish
	err       error
}

func (m *memPublisher) Publish(_ context.Context, roleCode string, payload interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, capturedPublish{role: roleCode, payload: payload})
	return nil
}

// -- fixture --

type ledgerFixture struct {
	ledger    *Ledger
	services  *memServiceRepo
	publisher *memPublisher
	svc       *ReceptionService
	clock     *fakeClock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newLedgerFixture(t *testing.T, role *string, modelPath *string) *ledgerFixture {
	t.Helper()
	ctx := context.Background()

	receptions := newMemReceptionRepo()
	serviceTypes := newMemServiceTypeRepo()
	services := newMemServiceRepo()
	publisher := &memPublisher{}

	rec := &Reception{Code: "RC-0001", PatientID: uuid.New(), PatientName: "Jane Roe"}
	if err := receptions.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	st := &ServiceType{
		Code:                 "ecg",
		Name:                 "Electrocardiogram",
		ResponsibleRole:      role,
		SpecializedModelPath: modelPath,
	}
	if err := serviceTypes.Create(ctx, st); err != nil {
		t.Fatal(err)
	}

	svc := &ReceptionService{ReceptionID: rec.ID, ServiceTypeID: st.ID, TrackingCode: "SV-0001"}
	if err := services.Create(ctx, svc); err != nil {
		t.Fatal(err)
	}

	registry := specialized.NewRegistry(time.Hour, zerolog.Nop())
	ledger := NewLedger(services, receptions, serviceTypes, registry, publisher, zerolog.Nop())

	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ledger.now = clock.Now

	return &ledgerFixture{
		ledger:    ledger,
		services:  services,
		publisher: publisher,
		svc:       svc,
		clock:     clock,
	}
}

func strPtr(s string) *string { return &s }

// -- transitions --

func TestRecordTransition_SameStatusIsNoOp(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	changed, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusPending, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("transition to current status must be a no-op")
	}
	events, _ := f.services.EventsForService(ctx, f.svc.ID)
	if len(events) != 0 {
		t.Errorf("no-op must not write events, got %d", len(events))
	}
	if len(f.publisher.published) != 0 {
		t.Error("no-op must not publish")
	}
}

func TestRecordTransition_InvalidStatusRejected(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)

	if _, err := f.ledger.RecordTransition(context.Background(), f.svc.ID, "teleported", nil, nil); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestRecordTransition_AppendsEventAndUpdatesCache(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	changed, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a real transition")
	}

	events, _ := f.services.EventsForService(ctx, f.svc.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Status != StatusStarted {
		t.Errorf("event status = %q", events[0].Status)
	}

	svc, _ := f.services.GetByID(ctx, f.svc.ID)
	if svc.LatestStatus != StatusStarted {
		t.Errorf("cached status = %q, want started", svc.LatestStatus)
	}
}

func TestRecordTransition_CachedStatusMatchesLastEvent(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	steps := []string{StatusStarted, StatusOnHold, StatusStarted, StatusCompleted}
	for _, status := range steps {
		f.clock.Advance(2 * time.Minute)
		if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, status, nil, nil); err != nil {
			t.Fatal(err)
		}

		svc, _ := f.services.GetByID(ctx, f.svc.ID)
		last, _ := f.ledger.LastStatus(ctx, f.svc.ID)
		if svc.LatestStatus != last {
			t.Fatalf("cached status %q diverged from last event %q", svc.LatestStatus, last)
		}
	}
}

func TestRecordTransition_DurationBackfill(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	// pending -> started (t=0), started -> completed 5 minutes later.
	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5 * time.Minute)
	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusCompleted, nil, nil); err != nil {
		t.Fatal(err)
	}

	events, _ := f.services.EventsForService(ctx, f.svc.ID)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].DurationSeconds != 300 {
		t.Errorf("closed interval = %d seconds, want 300", events[0].DurationSeconds)
	}
	if events[1].DurationSeconds != 0 {
		t.Errorf("open interval must stay 0, got %d", events[1].DurationSeconds)
	}
}

func TestRecordTransition_SubSecondIntervalGetsOneSecond(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(200 * time.Millisecond)
	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusCompleted, nil, nil); err != nil {
		t.Fatal(err)
	}

	events, _ := f.services.EventsForService(ctx, f.svc.ID)
	if events[0].DurationSeconds != 1 {
		t.Errorf("sub-second interval = %d, want minimum 1", events[0].DurationSeconds)
	}
}

func TestRecordTransition_TerminalTimestamps(t *testing.T) {
	ctx := context.Background()

	t.Run("completed sets done_at", func(t *testing.T) {
		f := newLedgerFixture(t, nil, nil)
		if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusCompleted, nil, nil); err != nil {
			t.Fatal(err)
		}
		svc, _ := f.services.GetByID(ctx, f.svc.ID)
		if svc.DoneAt == nil {
			t.Error("expected done_at to be set")
		}
		if svc.CancelledAt != nil {
			t.Error("cancelled_at must stay nil on completion")
		}
	})

	t.Run("canceled sets cancelled_at", func(t *testing.T) {
		f := newLedgerFixture(t, nil, nil)
		if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusCanceled, nil, nil); err != nil {
			t.Fatal(err)
		}
		svc, _ := f.services.GetByID(ctx, f.svc.ID)
		if svc.CancelledAt == nil {
			t.Error("expected cancelled_at to be set")
		}
	})

	t.Run("rejected sets cancelled_at", func(t *testing.T) {
		f := newLedgerFixture(t, nil, nil)
		if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusRejected, nil, nil); err != nil {
			t.Fatal(err)
		}
		svc, _ := f.services.GetByID(ctx, f.svc.ID)
		if svc.CancelledAt == nil {
			t.Error("expected cancelled_at to be set")
		}
	})
}

// Walks pending -> started -> completed with 5 and 7 minute holds and checks
// the full per-status duration breakdown.
func TestDurations_FullLifecycle(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	f.clock.Advance(0)
	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5 * time.Minute)
	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusOnHold, nil, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(7 * time.Minute)
	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusCompleted, nil, nil); err != nil {
		t.Fatal(err)
	}

	byStatus, err := f.ledger.DurationsByStatus(ctx, f.svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if byStatus[StatusStarted] != 300 {
		t.Errorf("started = %d, want 300", byStatus[StatusStarted])
	}
	if byStatus[StatusOnHold] != 420 {
		t.Errorf("on_hold = %d, want 420", byStatus[StatusOnHold])
	}
	if _, ok := byStatus[StatusCompleted]; ok {
		t.Error("open completed interval must not appear in the breakdown")
	}

	total, err := f.ledger.TotalElapsed(ctx, f.svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 12*time.Minute {
		t.Errorf("total = %s, want 12m", total)
	}
}

func TestCurrentStatusElapsed(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	elapsed, err := f.ledger.CurrentStatusElapsed(ctx, f.svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed != 0 {
		t.Errorf("empty ledger elapsed = %s, want 0", elapsed)
	}

	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(90 * time.Second)
	elapsed, err = f.ledger.CurrentStatusElapsed(ctx, f.svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed != 90*time.Second {
		t.Errorf("elapsed = %s, want 90s", elapsed)
	}
}

func TestLastStatus_EmptyLedgerIsPending(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)

	last, err := f.ledger.LastStatus(context.Background(), f.svc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if last != StatusPending {
		t.Errorf("empty ledger status = %q, want pending", last)
	}
}

// -- fan-out --

func TestRecordTransition_PublishesToResponsibleRole(t *testing.T) {
	f := newLedgerFixture(t, strPtr("cardiologist"), nil)
	ctx := context.Background()

	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}

	if len(f.publisher.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(f.publisher.published))
	}
	pub := f.publisher.published[0]
	if pub.role != "cardiologist" {
		t.Errorf("published to %q, want cardiologist", pub.role)
	}

	msg, ok := pub.payload.(ServiceMessage)
	if !ok {
		t.Fatalf("payload type %T", pub.payload)
	}
	if msg.Type != "service_message" {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.Service.StatusCode != StatusStarted {
		t.Errorf("status_code = %q", msg.Service.StatusCode)
	}
	if msg.Service.StatusDisplay != "Started" {
		t.Errorf("status_display = %q", msg.Service.StatusDisplay)
	}
	if msg.Service.PatientName != "Jane Roe" {
		t.Errorf("patient_name = %q", msg.Service.PatientName)
	}
	if msg.Service.ReceptionCode != "RC-0001" {
		t.Errorf("reception_code = %q", msg.Service.ReceptionCode)
	}
}

func TestRecordTransition_NoRoleNoPublish(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)

	if _, err := f.ledger.RecordTransition(context.Background(), f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(f.publisher.published) != 0 {
		t.Error("service type without responsible role must not publish")
	}
}

func TestRecordTransition_PublishFailureDoesNotFailTransition(t *testing.T) {
	f := newLedgerFixture(t, strPtr("cardiologist"), nil)
	f.publisher.err = fmt.Errorf("hub unavailable")
	ctx := context.Background()

	changed, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil)
	if err != nil {
		t.Fatalf("publish failure must not surface: %v", err)
	}
	if !changed {
		t.Error("transition must still be recorded")
	}
	events, _ := f.services.EventsForService(ctx, f.svc.ID)
	if len(events) != 1 {
		t.Errorf("ledger write must survive publish failure, got %d events", len(events))
	}
}

func TestRecordTransition_UnresolvedModelPathStillPublishes(t *testing.T) {
	f := newLedgerFixture(t, strPtr("cardiologist"), strPtr("ghost.Module"))
	ctx := context.Background()

	if _, err := f.ledger.RecordTransition(ctx, f.svc.ID, StatusStarted, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(f.publisher.published) != 1 {
		t.Fatal("broken model path must degrade, not block the broadcast")
	}
	msg := f.publisher.published[0].payload.(ServiceMessage)
	if msg.HasSpecializedRecord || msg.IsMultiStage {
		t.Error("unresolved path must yield zero existence flags")
	}
}
