package reception

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/specialized"
)

// TrackableType is the generic parent type name under which specialized
// records reference a reception service.
const TrackableType = "ReceptionService"

// ServicePayload is the nested service object inside a dashboard broadcast.
type ServicePayload struct {
	ID                uuid.UUID  `json:"id"`
	ReceptionID       uuid.UUID  `json:"reception_id"`
	ReceptionCode     string     `json:"reception_code"`
	PatientName       string     `json:"patient_name"`
	ServiceTypeCode   string     `json:"service_type_code"`
	ServiceName       string     `json:"service_name"`
	CreatedAt         time.Time  `json:"created_at"`
	StatusCode        string     `json:"status_code"`
	StatusDisplay     string     `json:"status_display"`
	TrackingCode      string     `json:"tracking_code"`
	ScheduledTime     *time.Time `json:"scheduled_time"`
	EstimatedDuration *string    `json:"estimated_duration"`
	DoneAt            *time.Time `json:"done_at"`
	CancelledAt       *time.Time `json:"cancelled_at"`
}

// ServiceMessage is the broadcast sent to a role dashboard on every
// transition. The existence flags are embedded so they serialize as
// top-level fields alongside the message envelope. Aggregate queue
// statistics are deliberately absent: the publish path stays O(1) and
// dashboards compute aggregates on their own read path.
type ServiceMessage struct {
	Type        string         `json:"type"`
	MessageType string         `json:"message_type"`
	Action      string         `json:"action"`
	Service     ServicePayload `json:"service"`
	specialized.Flags
}

// NewServiceMessage builds the flat broadcast payload for a transition from
// fields that are already loaded — no extra queries beyond the existence
// flags happen here.
func NewServiceMessage(svc *ReceptionService, rec *Reception, st *ServiceType, flags specialized.Flags) ServiceMessage {
	return ServiceMessage{
		Type:        "service_message",
		MessageType: "status_update",
		Action:      "status_changed",
		Service: ServicePayload{
			ID:                svc.ID,
			ReceptionID:       rec.ID,
			ReceptionCode:     rec.Code,
			PatientName:       rec.PatientName,
			ServiceTypeCode:   st.Code,
			ServiceName:       st.Name,
			CreatedAt:         svc.CreatedAt,
			StatusCode:        svc.Status(),
			StatusDisplay:     StatusDisplay(svc.Status()),
			TrackingCode:      svc.TrackingCode,
			ScheduledTime:     svc.ScheduledAt,
			EstimatedDuration: st.EstimatedDuration,
			DoneAt:            svc.DoneAt,
			CancelledAt:       svc.CancelledAt,
		},
		Flags: flags,
	}
}
