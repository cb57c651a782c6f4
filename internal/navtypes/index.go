package navtypes

import "time"

// UserIndex is the aggregated view over a (client, session?, window?)
// record set.
type UserIndex struct {
	ClientID       string              `json:"client_id"`
	SessionID      string              `json:"session_id,omitempty"`
	ByTime         map[int64]*Record   `json:"by_time"`
	ByEvent        map[string][]int64  `json:"by_event"`
	Counters       map[string]int      `json:"counters"`
	ByClass        map[string]int      `json:"by_class"`
	Hazards        Hazards             `json:"hazards"`
	DroppedRecords int                 `json:"dropped_records"`
}

// Hazards carries the two derived hazard summaries.
type Hazards struct {
	AlmostCrashMoments []AlmostCrashMoment `json:"almost_crash_moments"`
	StuckIntervals     []StuckInterval     `json:"stuck_intervals"`
}

// AlmostCrashMoment is one merged near-miss group.
type AlmostCrashMoment struct {
	T          int64    `json:"t"`
	FreeAheadM *float64 `json:"free_ahead_m,omitempty"`
	Events     []string `json:"events"`
	Classes    []string `json:"classes,omitempty"`
	Confidence float64  `json:"confidence"`
}

// StuckInterval is one merged stationary span.
type StuckInterval struct {
	StartT     int64 `json:"start_t"`
	EndT       int64 `json:"end_t"`
	DurationS  int64 `json:"duration_s"`
}

// NewUserIndex returns an empty index ready for aggregation.
func NewUserIndex(clientID, sessionID string) *UserIndex {
	return &UserIndex{
		ClientID:  clientID,
		SessionID: sessionID,
		ByTime:    make(map[int64]*Record),
		ByEvent:   make(map[string][]int64),
		Counters:  make(map[string]int),
		ByClass:   make(map[string]int),
	}
}

// Alert is a stuck or accident detection, streamed and persisted.
type Alert struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "stuck" | "accident"
	ClientID  string    `json:"client_id"`
	T         int64     `json:"t"`
	Rationale string    `json:"rationale"`
	Since     *int64    `json:"since,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	AlertKindStuck    = "stuck"
	AlertKindAccident = "accident"
)

// EmergencyContact is a caretaker authorized (or pending authorization)
// against a client.
type EmergencyContact struct {
	ClientID   string `json:"client_id"`
	ContactID  string `json:"contact_id"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Authorized bool   `json:"authorized"`
}

// CaretakerAccount backs gateway session login; distinct from the
// is_authorized(requester_id, client_id) membership test performed by
// the query planner.
type CaretakerAccount struct {
	CaretakerID  string `json:"caretaker_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
