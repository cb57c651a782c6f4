package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadMarshaling(t *testing.T) {
	// Exercising Notify itself needs a live NATS connection; the
	// messaging.Client it wraps has no interface seam for a fake one, so
	// this covers the wire shape it builds instead.
	p := Payload{
		AlertID:   "a1",
		ClientID:  "c1",
		ContactID: "ct1",
		Kind:      "stuck",
		T:         100,
		Rationale: "stationary for 300s",
	}

	data, err := json.Marshal(p)
	assert.NoError(t, err)

	var decoded Payload
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, p, decoded)
}
