// Package watchdog is the online per-record streaming detector: bounded
// per-client windows, stuck/accident pattern recognition, and debounced
// alert emission. It is the generalization of the teacher's per-symbol
// alert engine (internal/alerts/engine.go) onto per-client navigation
// state instead of per-symbol price state.
package watchdog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pathwatch/navguard/internal/navtypes"
)

// AlertStore is the append-only alert-store collaborator.
type AlertStore interface {
	Put(ctx context.Context, alert *navtypes.Alert) error
}

// ContactLister resolves a client's active contacts for notification
// fan-out.
type ContactLister interface {
	List(ctx context.Context, clientID string) ([]*navtypes.EmergencyContact, error)
}

// Notifier is the outbound notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, contactID string, alert *navtypes.Alert) error
}

// Publisher broadcasts an emitted alert for live fan-out (e.g. to
// caretaker dashboard WebSocket connections).
type Publisher interface {
	Publish(ctx context.Context, subject string, v interface{}) error
}

// Watchdog holds the bounded per-client state shards.
type Watchdog struct {
	mu      sync.RWMutex
	clients map[string]*clientShard

	thresholds navtypes.Thresholds
	alerts     AlertStore
	contacts   ContactLister
	notifier   Notifier
	publisher  Publisher
	now        func() int64
}

type clientShard struct {
	mu sync.Mutex
	clientState
}

// Config bundles the Watchdog's collaborators.
type Config struct {
	Thresholds navtypes.Thresholds
	Alerts     AlertStore
	Contacts   ContactLister
	Notifier   Notifier
	Publisher  Publisher
}

// New constructs a Watchdog.
func New(cfg Config) *Watchdog {
	return &Watchdog{
		clients:    make(map[string]*clientShard),
		thresholds: cfg.Thresholds,
		alerts:     cfg.Alerts,
		contacts:   cfg.Contacts,
		notifier:   cfg.Notifier,
		publisher:  cfg.Publisher,
		now:        func() int64 { return time.Now().Unix() },
	}
}

func (w *Watchdog) shardFor(clientID string) *clientShard {
	w.mu.RLock()
	shard, ok := w.clients[clientID]
	w.mu.RUnlock()
	if ok {
		return shard
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if shard, ok := w.clients[clientID]; ok {
		return shard
	}
	shard = &clientShard{}
	w.clients[clientID] = shard
	return shard
}

// Process feeds a single record through the watchdog for its client.
// Records for a given client must arrive in order; Process serializes
// per client via the client's own shard lock, so distinct clients may be
// processed concurrently. It returns whatever alerts were emitted for
// this record (normally zero or one of each kind).
func (w *Watchdog) Process(ctx context.Context, r *navtypes.Record) []*navtypes.Alert {
	shard := w.shardFor(r.ClientID)

	var toEmit []*navtypes.Alert

	shard.mu.Lock()
	shard.push(r, w.thresholds.WindowCapacity)
	now := w.now()

	if since := stationarySince(shard.window, w.thresholds); since != nil {
		if now-*since >= w.thresholds.StuckAlertS && now-shard.lastStuckAlertAt >= w.thresholds.StuckDebounceS {
			shard.lastStuckAlertAt = now
			toEmit = append(toEmit, &navtypes.Alert{
				Kind:      navtypes.AlertKindStuck,
				ClientID:  r.ClientID,
				T:         now,
				Rationale: fmt.Sprintf("stationary for %ds", now-*since),
				Since:     since,
			})
		}
	}

	if alert, ok := checkAccident(shard.window, w.thresholds); ok {
		if now-shard.lastAccidentAlertAt >= w.thresholds.AccidentDebounceS {
			shard.lastAccidentAlertAt = now
			alert.ClientID = r.ClientID
			toEmit = append(toEmit, &alert)
		}
	}
	shard.mu.Unlock()

	for _, alert := range toEmit {
		w.emit(ctx, alert)
	}
	return toEmit
}

// emit persists, broadcasts, and notifies for one alert. Failures in any
// one step are logged and do not block the others or roll back prior
// steps, per the core's best-effort delivery policy.
func (w *Watchdog) emit(ctx context.Context, alert *navtypes.Alert) {
	alert.ID = uuid.New().String()
	alert.CreatedAt = time.Now()

	if w.alerts != nil {
		if err := w.alerts.Put(ctx, alert); err != nil {
			log.Printf("[watchdog] failed to persist alert for %s: %v", alert.ClientID, err)
		}
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, "alerts."+alert.Kind, alert); err != nil {
			log.Printf("[watchdog] failed to publish alert for %s: %v", alert.ClientID, err)
		}
	}

	if w.contacts == nil || w.notifier == nil {
		return
	}
	contacts, err := w.contacts.List(ctx, alert.ClientID)
	if err != nil {
		log.Printf("[watchdog] failed to list contacts for %s: %v", alert.ClientID, err)
		return
	}
	for _, c := range contacts {
		if !c.Authorized {
			continue
		}
		if err := w.notifier.Notify(ctx, c.ContactID, alert); err != nil {
			log.Printf("[watchdog] notify %s failed for %s: %v", c.ContactID, alert.ClientID, err)
		}
	}
}

// Status reports the current window size and debounce timestamps for a
// client, without exposing raw record contents.
func (w *Watchdog) Status(clientID string) (windowSize int, lastStuckAlertAt, lastAccidentAlertAt int64, exists bool) {
	w.mu.RLock()
	shard, ok := w.clients[clientID]
	w.mu.RUnlock()
	if !ok {
		return 0, 0, 0, false
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return len(shard.window), shard.lastStuckAlertAt, shard.lastAccidentAlertAt, true
}

// ClearClientState drops a client's window and debounce timestamps,
// e.g. at session end.
func (w *Watchdog) ClearClientState(clientID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, clientID)
}
