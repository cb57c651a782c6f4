package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeRecordIngested  = "record.ingested"
	EventTypeIndexRebuilt    = "index.rebuilt"
	EventTypeAlertStuck      = "alert.stuck"
	EventTypeAlertAccident   = "alert.accident"
	EventTypeWatchdogCleared = "watchdog.cleared"
	EventTypeContactAdded    = "contact.added"
)

// Event is the base event structure
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
	Data        json.RawMessage `json:"data"`
	Metadata    EventMetadata   `json:"metadata"`
}

// EventMetadata contains event metadata
type EventMetadata struct {
	CorrelationID string `json:"correlation_id"`
	CausationID   string `json:"causation_id"`
	ClientID      string `json:"client_id,omitempty"`
	Source        string `json:"source"`
}

// RecordIngestedEvent is published when the gateway accepts a record
// for processing, before either the watchdog or the record store have
// acted on it.
type RecordIngestedEvent struct {
	ClientID   string   `json:"client_id"`
	SessionID  string   `json:"session_id"`
	T          int64    `json:"t"`
	Events     []string `json:"events"`
	Classes    []string `json:"classes,omitempty"`
	Confidence float64  `json:"confidence"`
}

// IndexRebuiltEvent describes a finished index rebuild. No code in this
// module publishes it; indexer.Service.Rebuild emits no event.
type IndexRebuiltEvent struct {
	ClientID       string `json:"client_id"`
	SessionID      string `json:"session_id,omitempty"`
	RecordCount    int    `json:"record_count"`
	DroppedRecords int    `json:"dropped_records"`
}

// AlertEvent carries a triggered stuck or accident detection, fanned
// out to caretaker dashboard WebSocket connections.
type AlertEvent struct {
	AlertID   string `json:"alert_id"`
	ClientID  string `json:"client_id"`
	Kind      string `json:"kind"`
	T         int64  `json:"t"`
	Rationale string `json:"rationale"`
}

// ContactEvent is published when a caretaker registers or updates an
// emergency contact's authorization for a client.
type ContactEvent struct {
	ClientID   string `json:"client_id"`
	ContactID  string `json:"contact_id"`
	Authorized bool   `json:"authorized"`
}

// NewEvent creates a new event
func NewEvent(eventType string, aggregateID string, data interface{}, metadata EventMetadata) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Timestamp:   time.Now(),
		Version:     1,
		Data:        dataBytes,
		Metadata:    metadata,
	}, nil
}

// ParseEventData parses event data into the specified type
func ParseEventData[T any](event *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// EventBus interface for publishing events
type EventBus interface {
	Publish(ctx interface{}, event Event) error
	Subscribe(eventType string, handler func(Event) error) error
}
