package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

func newTestClient(group string) *Client {
	return &Client{
		UserID: "u1",
		Group:  group,
		Send:   make(chan []byte, 4),
	}
}

func TestHub_RegisterAndCount(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	c1 := newTestClient("cardiology")
	c2 := newTestClient("cardiology")
	c3 := newTestClient("radiology")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if hub.GroupCount("cardiology") != 2 {
		t.Errorf("expected 2 cardiology clients, got %d", hub.GroupCount("cardiology"))
	}
	if hub.GroupCount("radiology") != 1 {
		t.Errorf("expected 1 radiology client, got %d", hub.GroupCount("radiology"))
	}
	if hub.ClientCount() != 3 {
		t.Errorf("expected 3 total clients, got %d", hub.ClientCount())
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient("cardiology")
	hub.Register(c)
	hub.Unregister(c)

	if hub.GroupCount("cardiology") != 0 {
		t.Error("expected empty group after unregister")
	}

	// Send channel should be closed.
	if _, open := <-c.Send; open {
		t.Error("expected Send channel to be closed")
	}

	// Double unregister must not panic.
	hub.Unregister(c)
}

func TestHub_Publish_TargetsGroup(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	cardio := newTestClient("cardiology")
	radio := newTestClient("radiology")
	hub.Register(cardio)
	hub.Register(radio)

	payload := map[string]string{"type": "service_message", "action": "status_changed"}
	if err := hub.Publish(context.Background(), "cardiology", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case data := <-cardio.Send:
		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if got["type"] != "service_message" {
			t.Errorf("unexpected payload: %v", got)
		}
	default:
		t.Fatal("expected cardiology client to receive message")
	}

	select {
	case <-radio.Send:
		t.Fatal("radiology client should not receive cardiology message")
	default:
	}
}

func TestHub_Publish_UnknownGroupIsNoop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	if err := hub.Publish(context.Background(), "nobody", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHub_Publish_FullBufferSkipsClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &Client{UserID: "u", Group: "g", Send: make(chan []byte)} // unbuffered, no reader
	hub.Register(c)

	// Must not block.
	if err := hub.Publish(context.Background(), "g", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// -- Admission --

func connectAs(t *testing.T, p auth.Principal, query string) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/dashboard"+query, nil)
	if p.ID != "" {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHandler(NewHub(zerolog.Nop()), "view_reception")
	err := h.HandleConnect(c)
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	if err != nil {
		// Upgrade failure on a plain httptest request surfaces as a non-HTTP
		// error after admission passed.
		return http.StatusSwitchingProtocols
	}
	return rec.Code
}

func TestHandleConnect_RejectsAnonymous(t *testing.T) {
	if code := connectAs(t, auth.Principal{}, ""); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandleConnect_RejectsMissingPermission(t *testing.T) {
	p := auth.Principal{ID: "u", Roles: []string{"cardiology"}}
	if code := connectAs(t, p, ""); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestHandleConnect_RejectsNoRole(t *testing.T) {
	p := auth.Principal{ID: "u", Permissions: []string{"view_reception"}}
	if code := connectAs(t, p, ""); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestHandleConnect_RejectsUnheldRoleOverride(t *testing.T) {
	p := auth.Principal{ID: "u", Roles: []string{"cardiology"}, Permissions: []string{"view_reception"}}
	if code := connectAs(t, p, "?role=radiology"); code != http.StatusForbidden {
		t.Errorf("expected 403 for unheld role override, got %d", code)
	}
}

func TestHandleConnect_AdmitsQualifiedPrincipal(t *testing.T) {
	p := auth.Principal{ID: "u", Roles: []string{"cardiology"}, Permissions: []string{"view_reception"}}
	code := connectAs(t, p, "")
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		t.Errorf("expected admission to pass, got %d", code)
	}
}
