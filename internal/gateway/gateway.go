// Package gateway is the JSON-over-HTTP + WebSocket surface: record
// ingest, index build, query, watchdog status/clear, contact
// management, live alert streaming, and caretaker session auth.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pathwatch/navguard/internal/auth"
	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/internal/query"
	"github.com/pathwatch/navguard/pkg/circuit"
	"github.com/pathwatch/navguard/pkg/messaging"
)

// Planner evaluates a query against the index.
type Planner interface {
	Handle(ctx context.Context, req query.Request, now time.Time) (string, query.Response, error)
}

// WatchdogStatus exposes the in-memory watchdog state for a client
// without leaking raw record contents.
type WatchdogStatus interface {
	Status(clientID string) (windowSize int, lastStuckAlertAt, lastAccidentAlertAt int64, exists bool)
	ClearClientState(clientID string)
}

// IndexBuilder triggers an out-of-band rebuild for POST /index/:client_id.
type IndexBuilder interface {
	Rebuild(ctx context.Context, clientID, sessionID string, timeStart, timeEnd *int64) (*navtypes.UserIndex, error)
}

// Contacts is the contacts collaborator surfaced to caretaker-facing
// admin routes.
type Contacts interface {
	Add(ctx context.Context, c *navtypes.EmergencyContact) error
	List(ctx context.Context, clientID string) ([]*navtypes.EmergencyContact, error)
	IsAuthorized(ctx context.Context, requesterID, clientID string) (bool, error)
}

// AuthService issues and verifies caretaker session tokens.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*auth.Caretaker, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifyToken(tokenString string) (*auth.Claims, error)
}

// Gateway is the API gateway.
type Gateway struct {
	router      *gin.Engine
	msgClient   *messaging.Client
	breakers    *circuit.BreakerGroup
	planner     Planner
	watchdog    WatchdogStatus
	indexer     IndexBuilder
	contacts    Contacts
	authSvc     AuthService

	wsClients map[uuid.UUID]*WSClient
	wsMu      sync.RWMutex

	rateLimiter *RateLimiter
}

// WSClient represents a caretaker dashboard WebSocket connection
// streaming alerts for one client.
type WSClient struct {
	ID          uuid.UUID
	CaretakerID string
	ClientID    string
	Conn        *websocket.Conn
	Send        chan []byte
	Done        chan struct{}
}

// RateLimiter implements a sliding-window limiter keyed by an arbitrary
// string. rateLimitMiddleware runs before authMiddleware, so caretaker_id
// is never set there and every request is keyed by its client IP.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// Config holds gateway configuration.
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Deps bundles the gateway's collaborators.
type Deps struct {
	MsgClient *messaging.Client
	Planner   Planner
	Watchdog  WatchdogStatus
	Indexer   IndexBuilder
	Contacts  Contacts
	Auth      AuthService
}

// New constructs a Gateway and wires its routes.
func New(cfg Config, deps Deps) *Gateway {
	breakers := circuit.NewBreakerGroup(circuit.Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		HalfOpenMax: 3,
	})

	g := &Gateway{
		router:    gin.Default(),
		msgClient: deps.MsgClient,
		breakers:  breakers,
		planner:   deps.Planner,
		watchdog:  deps.Watchdog,
		indexer:   deps.Indexer,
		contacts:  deps.Contacts,
		authSvc:   deps.Auth,
		wsClients: make(map[uuid.UUID]*WSClient),
		rateLimiter: &RateLimiter{
			requests: make(map[string][]time.Time),
			limit:    cfg.RateLimitMax,
			window:   cfg.RateLimitWindow,
		},
	}

	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.Use(g.tracingMiddleware())
	g.router.Use(g.rateLimitMiddleware())

	g.router.GET("/health", g.healthCheck)
	g.router.GET("/stats", g.getStats)

	authGroup := g.router.Group("/auth")
	{
		authGroup.POST("/register", g.register)
		authGroup.POST("/login", g.login)
	}

	api := g.router.Group("/")
	api.Use(g.authMiddleware())
	{
		api.POST("records", g.ingestRecord)
		api.POST("records/batch", g.ingestBatch)
		api.POST("index/:client_id", g.buildIndex)
		api.POST("query", g.runQuery)
		api.GET("watchdog/:client_id/status", g.watchdogStatus)
		api.POST("watchdog/:client_id/clear", g.watchdogClear)
		api.POST("contacts", g.addContact)
		api.GET("contacts/:client_id", g.listContacts)
		api.GET("alerts/:client_id/stream", g.streamAlerts)
	}
}

// Start runs the gateway's HTTP server.
func (g *Gateway) Start(addr string) error {
	return g.router.Run(addr)
}

// Middleware

func (g *Gateway) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := g.authSvc.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set("caretaker_id", claims.CaretakerID)
		c.Next()
	}
}

func (g *Gateway) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if caretakerID, ok := c.Get("caretaker_id"); ok {
			key = caretakerID.(string)
		}
		if !g.rateLimiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (g *Gateway) tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set("correlation_id", correlationID)
		c.Header("X-Correlation-ID", correlationID)
		c.Next()
	}
}

// Allow checks whether key may proceed, sliding the window forward.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	requests := rl.requests[key]
	valid := make([]time.Time, 0, len(requests))
	for _, t := range requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}
