package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pathwatch/navguard/internal/indexer"
	"github.com/pathwatch/navguard/internal/navtypes"
)

// Authorizer is the contacts collaborator's membership test.
type Authorizer interface {
	IsAuthorized(ctx context.Context, requesterID, clientID string) (bool, error)
}

// IndexGetter is the read side of the index-store collaborator.
type IndexGetter interface {
	Get(ctx context.Context, key string) (*navtypes.UserIndex, bool, error)
}

// Rebuilder triggers an indexer rebuild on cache miss.
type Rebuilder interface {
	Rebuild(ctx context.Context, clientID, sessionID string, timeStart, timeEnd *int64) (*navtypes.UserIndex, error)
}

// Planner is the query planner: authorization, intent classification,
// index acquisition, and metric computation.
type Planner struct {
	authz      Authorizer
	indices    IndexGetter
	rebuilder  Rebuilder
	thresholds navtypes.Thresholds

	// group deduplicates concurrent rebuilds for the same key within
	// this process; correctness does not depend on it (§5 sanctions it
	// explicitly as an optional optimization), it only avoids redundant
	// work under load.
	group singleflight.Group
}

// New constructs a Planner.
func New(authz Authorizer, indices IndexGetter, rebuilder Rebuilder, thresholds navtypes.Thresholds) *Planner {
	return &Planner{authz: authz, indices: indices, rebuilder: rebuilder, thresholds: thresholds}
}

// Handle evaluates a query end to end: authorization first, then time
// window parsing, intent classification, index acquisition, and metric
// computation.
func (p *Planner) Handle(ctx context.Context, req Request, now time.Time) (string, Response, error) {
	authorized, err := p.authz.IsAuthorized(ctx, req.RequesterID, req.ClientID)
	if err != nil {
		return "", Response{}, fmt.Errorf("%w: %v", navtypes.ErrTransient, err)
	}
	if !authorized {
		return "", Response{}, navtypes.ErrUnauthorized
	}

	window, err := ParseTimeWindow(req.TimeStart, req.TimeEnd, req.TZ, now)
	if err != nil {
		return "", Response{}, fmt.Errorf("%w: %v", navtypes.ErrValidation, err)
	}

	params := DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	metric := ClassifyIntent(req.Question)

	idx, err := p.acquireIndex(ctx, req.ClientID, req.SessionID, window)
	if err != nil {
		return "", Response{}, err
	}

	var result interface{}
	var samples []interface{}

	switch metric {
	case MetricAlmostCrash:
		result, samples = computeAlmostCrash(idx, params)
	case MetricStuckMinutes:
		result, samples = computeStuckMinutes(idx, params)
	case MetricStuckIntervals:
		result, samples = computeStuckIntervals(idx, params)
	case MetricAccident:
		result, samples = computeAccident(idx, p.thresholds)
	default:
		result, samples = computeEventCounts(idx)
	}

	if len(samples) > 3 {
		samples = samples[:3]
	}

	answer := FormatAnswer(metric, result)
	resp := Response{
		ClientID:   req.ClientID,
		TimeWindow: window.ToJSON(),
		Metric:     metric,
		Params: ParamsJSON{
			CrashNearM: params.CrashNearM,
			StuckMinS:  params.StuckMinS,
			ConfMin:    params.ConfMin,
		},
		Result:  result,
		Samples: samples,
	}
	return answer, resp, nil
}

func (p *Planner) acquireIndex(ctx context.Context, clientID, sessionID string, window TimeWindow) (*navtypes.UserIndex, error) {
	key := indexer.IndexKey(clientID, sessionID)

	if idx, ok, err := p.indices.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("%w: %v", navtypes.ErrTransient, err)
	} else if ok {
		return idx, nil
	}

	start := window.Start.Unix()
	end := window.End.Unix()

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		return p.rebuilder.Rebuild(ctx, clientID, sessionID, &start, &end)
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return v.(*navtypes.UserIndex), nil
}
