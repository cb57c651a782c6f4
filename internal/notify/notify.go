// Package notify delivers triggered alerts to authorized contacts over
// NATS, one publish per contact on subject "notify.<contact_id>".
package notify

import (
	"context"
	"fmt"

	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/pkg/messaging"
)

// Notifier fans an alert out to a contact via the messaging client.
type Notifier struct {
	msg *messaging.Client
}

func New(msg *messaging.Client) *Notifier {
	return &Notifier{msg: msg}
}

// Payload is the wire shape delivered to a contact's notify subject.
type Payload struct {
	AlertID   string `json:"alert_id"`
	ClientID  string `json:"client_id"`
	ContactID string `json:"contact_id"`
	Kind      string `json:"type"`
	T         int64  `json:"t"`
	Rationale string `json:"rationale"`
	Since     *int64 `json:"since,omitempty"`
}

// Notify publishes alert to contactID's subject. A publish failure is
// a NotifyError; the watchdog logs it and moves on to the next
// contact rather than blocking the emission path.
func (n *Notifier) Notify(ctx context.Context, contactID string, alert *navtypes.Alert) error {
	payload := Payload{
		AlertID:   alert.ID,
		ClientID:  alert.ClientID,
		ContactID: contactID,
		Kind:      alert.Kind,
		T:         alert.T,
		Rationale: alert.Rationale,
		Since:     alert.Since,
	}

	if err := n.msg.Publish(ctx, "notify."+contactID, payload); err != nil {
		return fmt.Errorf("%w: %v", navtypes.ErrNotify, err)
	}
	return nil
}
