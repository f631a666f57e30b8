package event

import (
	"testing"
	"time"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      string
	}{
		{name: "approval submitted", eventType: TypeApprovalSubmitted, want: "approval.submitted"},
		{name: "requisition status changed", eventType: TypeRequisitionStatusChanged, want: "requisition.status_changed"},
		{name: "line confirmed", eventType: TypeQuoteLineConfirmed, want: "quote.line_confirmed"},
		{name: "vendor subscribed", eventType: TypeVendorSubscribed, want: "vendor.subscribed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("Type.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{name: "valid - approval approved", eventType: TypeApprovalApproved, want: true},
		{name: "valid - approval rejected", eventType: TypeApprovalRejected, want: true},
		{name: "valid - order confirmed", eventType: TypeOrderConfirmed, want: true},
		{name: "invalid - unknown type", eventType: Type("unknown.type"), want: false},
		{name: "invalid - empty string", eventType: Type(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"to_state": "CONFIRMED",
		"level":    2,
	}

	event := NewEvent(TypeRequisitionStatusChanged, EntityRequisition, 123, "user-1", payload)

	if event == nil {
		t.Fatal("NewEvent() returned nil")
	}
	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Type != TypeRequisitionStatusChanged {
		t.Errorf("Event Type = %v, want %v", event.Type, TypeRequisitionStatusChanged)
	}
	if event.EntityID != 123 || event.EntityType != EntityRequisition {
		t.Errorf("Event entity = %v/%v, want %v/%v", event.EntityType, event.EntityID, EntityRequisition, 123)
	}
	if event.ActorID != "user-1" {
		t.Errorf("Event ActorID = %v, want %v", event.ActorID, "user-1")
	}
	if event.CorrelationID == "" || event.CorrelationID == event.ID {
		t.Error("Event CorrelationID should be set and distinct from the ID")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
	if event.GetPayloadString("to_state") != "CONFIRMED" {
		t.Errorf("GetPayloadString() = %v", event.GetPayloadString("to_state"))
	}
	if event.GetPayloadInt("level") != 2 {
		t.Errorf("GetPayloadInt() = %v", event.GetPayloadInt("level"))
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	event := NewEvent(TypeOrderConfirmed, EntityPurchaseOrder, 1, "", nil)
	if event.Payload == nil {
		t.Fatal("Payload should be initialised")
	}
	if event.GetPayloadBool("missing") {
		t.Error("missing key should be false")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	event := NewEventWithCorrelation(TypeVendorSubscribed, EntityRequisition, 5, "u", nil, "chain-1")
	if event.CorrelationID != "chain-1" {
		t.Errorf("CorrelationID = %v, want chain-1", event.CorrelationID)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeApprovalApproved, EntityApprovalRequest, 9, "u", map[string]interface{}{"a": "1"})
	updated := original.WithPayload("b", true)

	if _, ok := original.Payload["b"]; ok {
		t.Error("WithPayload must not mutate the original event")
	}
	if !updated.GetPayloadBool("b") || updated.GetPayloadString("a") != "1" {
		t.Error("updated event should carry both keys")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload should keep the event ID")
	}
}
