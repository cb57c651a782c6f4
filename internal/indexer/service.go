package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/pathwatch/navguard/internal/navtypes"
)

// RecordStore is the record-store collaborator as consumed by the
// indexer: an ascending-by-t query over a client's records.
type RecordStore interface {
	Query(ctx context.Context, clientID, sessionID string, timeStart, timeEnd *int64) ([]*navtypes.Record, error)
}

// IndexStore is the index-store collaborator.
type IndexStore interface {
	Put(ctx context.Context, key string, idx *navtypes.UserIndex) error
	Get(ctx context.Context, key string) (*navtypes.UserIndex, bool, error)
}

// Service builds and persists UserIndex values on demand.
type Service struct {
	records    RecordStore
	indices    IndexStore
	thresholds navtypes.Thresholds

	// etcd is optional: when nil, rebuilds persist unconditionally and
	// concurrent duplicate writes are resolved by plain last-writer-wins,
	// which is still correct since index contents are a pure function of
	// the record set and parameters.
	etcd *clientv3.Client
}

// NewService constructs a Service. etcd may be nil.
func NewService(records RecordStore, indices IndexStore, thresholds navtypes.Thresholds, etcd *clientv3.Client) *Service {
	return &Service{records: records, indices: indices, thresholds: thresholds, etcd: etcd}
}

// IndexKey derives the index-store key for a (client, session?) pair.
func IndexKey(clientID, sessionID string) string {
	if sessionID == "" {
		return "index:" + clientID
	}
	return "index:" + clientID + ":" + sessionID
}

// Rebuild queries the record store for the given filters, builds a fresh
// UserIndex, and persists it under the derived key. When an etcd client
// is configured, a lease-backed mutex coordinates rebuilds of the same
// key across worker replicas so concurrent callers don't duplicate the
// store write; losing the race is not an error, the index returned to
// the caller is correct either way.
func (s *Service) Rebuild(ctx context.Context, clientID, sessionID string, timeStart, timeEnd *int64) (*navtypes.UserIndex, error) {
	records, err := s.records.Query(ctx, clientID, sessionID, timeStart, timeEnd)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	idx := Build(clientID, sessionID, records, s.thresholds)
	key := IndexKey(clientID, sessionID)

	if s.etcd == nil {
		if err := s.indices.Put(ctx, key, idx); err != nil {
			return nil, fmt.Errorf("persist index: %w", err)
		}
		return idx, nil
	}

	if err := s.persistWithLease(ctx, key, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *Service) persistWithLease(ctx context.Context, key string, idx *navtypes.UserIndex) error {
	session, err := concurrency.NewSession(s.etcd, concurrency.WithTTL(15))
	if err != nil {
		log.Printf("[indexer] etcd session unavailable, persisting without lease: %v", err)
		if err := s.indices.Put(ctx, key, idx); err != nil {
			return fmt.Errorf("persist index: %w", err)
		}
		return nil
	}
	defer session.Close()

	mu := concurrency.NewMutex(session, "indexer-lock:"+key)
	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := mu.Lock(lockCtx); err != nil {
		log.Printf("[indexer] did not win rebuild lease for %s, skipping duplicate write: %v", key, err)
		return nil
	}
	defer mu.Unlock(context.Background())

	if err := s.indices.Put(ctx, key, idx); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}
