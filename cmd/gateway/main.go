package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/pathwatch/navguard/internal/auth"
	"github.com/pathwatch/navguard/internal/gateway"
	"github.com/pathwatch/navguard/internal/indexer"
	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/internal/query"
	"github.com/pathwatch/navguard/internal/store/indexcache"
	"github.com/pathwatch/navguard/internal/store/postgres"
	"github.com/pathwatch/navguard/internal/store/timeseries"
	"github.com/pathwatch/navguard/pkg/messaging"
)

type Config struct {
	Port            string
	NATSUrl         string
	PostgresDSN     string
	RedisAddr       string
	InfluxURL       string
	InfluxToken     string
	InfluxOrg       string
	InfluxBucket    string
	EtcdEndpoints   []string
	JWTSecret       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func loadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8000"),
		NATSUrl:         getEnv("NATS_URL", "nats://localhost:4222"),
		PostgresDSN:     getEnv("POSTGRES_DSN", "postgres://localhost/navguard?sslmode=disable"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		InfluxURL:       getEnv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:     getEnv("INFLUX_TOKEN", ""),
		InfluxOrg:       getEnv("INFLUX_ORG", "navguard"),
		InfluxBucket:    getEnv("INFLUX_BUCKET", "nav_records"),
		EtcdEndpoints:   []string{getEnv("ETCD_ENDPOINT", "localhost:2379")},
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: time.Minute,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func main() {
	cfg := loadConfig()

	msgClient, err := messaging.NewClient(messaging.Config{
		URL:            cfg.NATSUrl,
		Name:           "gateway",
		ReconnectWait:  time.Second,
		MaxReconnects:  60,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer msgClient.Close()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open postgres: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	tsStore := timeseries.New(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	defer tsStore.Close()

	idxStore := indexcache.New(db, redisClient, 10*time.Minute)

	etcdClient, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		log.Printf("etcd unavailable, rebuilds will not be lease-coordinated: %v", err)
		etcdClient = nil
	} else {
		defer etcdClient.Close()
	}

	indexerSvc := indexer.NewService(tsStore, idxStore, navtypes.ThresholdsFromEnv(), etcdClient)

	contactStore := postgres.NewContactStore(db)
	authSvc := auth.NewService(db, cfg.JWTSecret)

	planner := query.New(contactStore, idxStore, indexerSvc, navtypes.ThresholdsFromEnv())

	gw := gateway.New(gateway.Config{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	}, gateway.Deps{
		MsgClient: msgClient,
		Planner:   planner,
		Watchdog:  &natsWatchdogClient{msg: msgClient},
		Indexer:   indexerSvc,
		Contacts:  contactStore,
		Auth:      authSvc,
	})

	if err := gw.StartAlertFanout(); err != nil {
		log.Fatalf("failed to subscribe to alerts: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Printf("gateway starting on port %s", cfg.Port)
		if err := gw.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start gateway: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("gateway shutdown error: %v", err)
	}

	log.Println("gateway stopped")
}

// natsWatchdogClient fronts the watchdog's in-memory state for the
// gateway process over NATS request-reply, since the gateway and
// watchdog run as separate replicas and share no process memory.
type natsWatchdogClient struct {
	msg *messaging.Client
}

type watchdogStatusReply struct {
	WindowSize          int   `json:"window_size"`
	LastStuckAlertAt    int64 `json:"last_stuck_alert_at"`
	LastAccidentAlertAt int64 `json:"last_accident_alert_at"`
	Exists              bool  `json:"exists"`
}

func (w *natsWatchdogClient) Status(clientID string) (int, int64, int64, bool) {
	msg, err := w.msg.Request(context.Background(), "watchdog.status."+clientID, nil, 2*time.Second)
	if err != nil {
		log.Printf("[gateway] watchdog status request failed for %s: %v", clientID, err)
		return 0, 0, 0, false
	}

	var reply watchdogStatusReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		log.Printf("[gateway] malformed watchdog status reply for %s: %v", clientID, err)
		return 0, 0, 0, false
	}
	return reply.WindowSize, reply.LastStuckAlertAt, reply.LastAccidentAlertAt, reply.Exists
}

func (w *natsWatchdogClient) ClearClientState(clientID string) {
	if _, err := w.msg.Request(context.Background(), "watchdog.clear."+clientID, nil, 2*time.Second); err != nil {
		log.Printf("[gateway] watchdog clear request failed for %s: %v", clientID, err)
	}
}
