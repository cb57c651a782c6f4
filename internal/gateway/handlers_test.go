package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwatch/navguard/internal/auth"
	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/internal/query"
)

// Handlers that publish through g.msgClient (ingestRecord, ingestBatch,
// addContact) need a live NATS connection the Gateway's concrete
// *messaging.Client field has no seam to fake, so only the collaborators
// reachable through Planner/WatchdogStatus/IndexBuilder/Contacts/AuthService
// are exercised here.

type fakePlanner struct {
	answer string
	resp   query.Response
	err    error
}

func (f *fakePlanner) Handle(ctx context.Context, req query.Request, now time.Time) (string, query.Response, error) {
	return f.answer, f.resp, f.err
}

type fakeWatchdogStatus struct {
	windowSize   int
	lastStuck    int64
	lastAccident int64
	exists       bool
	cleared      []string
}

func (f *fakeWatchdogStatus) Status(clientID string) (int, int64, int64, bool) {
	return f.windowSize, f.lastStuck, f.lastAccident, f.exists
}

func (f *fakeWatchdogStatus) ClearClientState(clientID string) {
	f.cleared = append(f.cleared, clientID)
}

type fakeIndexBuilder struct{}

func (f *fakeIndexBuilder) Rebuild(ctx context.Context, clientID, sessionID string, timeStart, timeEnd *int64) (*navtypes.UserIndex, error) {
	return navtypes.NewUserIndex(clientID, sessionID), nil
}

type fakeContacts struct {
	added      []*navtypes.EmergencyContact
	list       []*navtypes.EmergencyContact
	authorized bool
	authErr    error
}

func (f *fakeContacts) Add(ctx context.Context, c *navtypes.EmergencyContact) error {
	f.added = append(f.added, c)
	return nil
}

func (f *fakeContacts) List(ctx context.Context, clientID string) ([]*navtypes.EmergencyContact, error) {
	return f.list, nil
}

func (f *fakeContacts) IsAuthorized(ctx context.Context, requesterID, clientID string) (bool, error) {
	return f.authorized, f.authErr
}

type fakeAuthService struct {
	caretaker *auth.Caretaker
	regErr    error
	token     string
	loginErr  error
	claims    *auth.Claims
	verifyErr error
}

func (f *fakeAuthService) Register(ctx context.Context, email, password string) (*auth.Caretaker, error) {
	return f.caretaker, f.regErr
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAuthService) VerifyToken(tokenString string) (*auth.Claims, error) {
	return f.claims, f.verifyErr
}

func newTestGateway(t *testing.T, planner Planner, wd WatchdogStatus, ib IndexBuilder, contacts Contacts, authSvc AuthService) *Gateway {
	t.Helper()
	g := New(Config{RateLimitWindow: time.Minute, RateLimitMax: 1000}, Deps{
		Planner:  planner,
		Watchdog: wd,
		Indexer:  ib,
		Contacts: contacts,
		Auth:     authSvc,
	})
	return g
}

func doRequest(g *Gateway, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	g := newTestGateway(t, nil, nil, nil, nil, nil)
	rec := doRequest(g, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Run("register success", func(t *testing.T) {
		authSvc := &fakeAuthService{caretaker: &auth.Caretaker{ID: "c1", Email: "a@b.com"}}
		g := newTestGateway(t, nil, nil, nil, nil, authSvc)
		rec := doRequest(g, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@b.com", "password": "pw"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("register email exists maps to bad request", func(t *testing.T) {
		authSvc := &fakeAuthService{regErr: auth.ErrEmailExists}
		g := newTestGateway(t, nil, nil, nil, nil, authSvc)
		rec := doRequest(g, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@b.com", "password": "pw"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login invalid credentials", func(t *testing.T) {
		authSvc := &fakeAuthService{loginErr: auth.ErrInvalidPassword}
		g := newTestGateway(t, nil, nil, nil, nil, authSvc)
		rec := doRequest(g, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "pw"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login success returns token", func(t *testing.T) {
		authSvc := &fakeAuthService{token: "tok123"}
		g := newTestGateway(t, nil, nil, nil, nil, authSvc)
		rec := doRequest(g, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "pw"})
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "tok123", body["token"])
	})
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	g := newTestGateway(t, &fakePlanner{}, &fakeWatchdogStatus{}, &fakeIndexBuilder{}, &fakeContacts{}, &fakeAuthService{})
	rec := doRequest(g, http.MethodGet, "/watchdog/client-1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWatchdogStatusHandler(t *testing.T) {
	authSvc := &fakeAuthService{claims: &auth.Claims{CaretakerID: "ct1"}}

	t.Run("exists reports window state", func(t *testing.T) {
		wd := &fakeWatchdogStatus{windowSize: 4, lastStuck: 100, exists: true}
		g := newTestGateway(t, &fakePlanner{}, wd, &fakeIndexBuilder{}, &fakeContacts{}, authSvc)
		rec := doRequest(g, http.MethodGet, "/watchdog/client-1/status", "Bearer tok", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(4), body["window_size"])
	})

	t.Run("not exists reports 404", func(t *testing.T) {
		wd := &fakeWatchdogStatus{exists: false}
		g := newTestGateway(t, &fakePlanner{}, wd, &fakeIndexBuilder{}, &fakeContacts{}, authSvc)
		rec := doRequest(g, http.MethodGet, "/watchdog/client-1/status", "Bearer tok", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestWatchdogClearHandler(t *testing.T) {
	authSvc := &fakeAuthService{claims: &auth.Claims{CaretakerID: "ct1"}}
	wd := &fakeWatchdogStatus{}
	g := newTestGateway(t, &fakePlanner{}, wd, &fakeIndexBuilder{}, &fakeContacts{}, authSvc)

	rec := doRequest(g, http.MethodPost, "/watchdog/client-1/clear", "Bearer tok", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"client-1"}, wd.cleared)
}

func TestListContactsHandler(t *testing.T) {
	authSvc := &fakeAuthService{claims: &auth.Claims{CaretakerID: "ct1"}}

	t.Run("unauthorized requester forbidden", func(t *testing.T) {
		contacts := &fakeContacts{authorized: false}
		g := newTestGateway(t, &fakePlanner{}, &fakeWatchdogStatus{}, &fakeIndexBuilder{}, contacts, authSvc)
		rec := doRequest(g, http.MethodGet, "/contacts/client-1", "Bearer tok", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("authorized lists contacts", func(t *testing.T) {
		contacts := &fakeContacts{
			authorized: true,
			list:       []*navtypes.EmergencyContact{{ClientID: "client-1", ContactID: "ctc-1"}},
		}
		g := newTestGateway(t, &fakePlanner{}, &fakeWatchdogStatus{}, &fakeIndexBuilder{}, contacts, authSvc)
		rec := doRequest(g, http.MethodGet, "/contacts/client-1", "Bearer tok", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Contacts []navtypes.EmergencyContact `json:"contacts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Contacts, 1)
		assert.Equal(t, "ctc-1", body.Contacts[0].ContactID)
	})
}

func TestRunQueryHandler(t *testing.T) {
	authSvc := &fakeAuthService{claims: &auth.Claims{CaretakerID: "ct1"}}

	t.Run("planner error maps through writeQueryError", func(t *testing.T) {
		planner := &fakePlanner{err: navtypes.ErrUnauthorized}
		g := newTestGateway(t, planner, &fakeWatchdogStatus{}, &fakeIndexBuilder{}, &fakeContacts{}, authSvc)
		rec := doRequest(g, http.MethodPost, "/query", "Bearer tok", map[string]string{
			"client_id": "client-1",
			"question":  "was there an almost crash today?",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("success returns answer and response envelope", func(t *testing.T) {
		planner := &fakePlanner{
			answer: "no near misses found",
			resp:   query.Response{ClientID: "client-1", Metric: query.MetricAlmostCrash},
		}
		g := newTestGateway(t, planner, &fakeWatchdogStatus{}, &fakeIndexBuilder{}, &fakeContacts{}, authSvc)
		rec := doRequest(g, http.MethodPost, "/query", "Bearer tok", map[string]string{
			"client_id": "client-1",
			"question":  "was there an almost crash today?",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "no near misses found", body["answer"])
	})
}
