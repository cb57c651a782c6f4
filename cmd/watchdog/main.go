package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	natsgo "github.com/nats-io/nats.go"

	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/internal/notify"
	"github.com/pathwatch/navguard/internal/store/postgres"
	"github.com/pathwatch/navguard/internal/watchdog"
	"github.com/pathwatch/navguard/pkg/messaging"
)

type Config struct {
	NATSUrl     string
	PostgresDSN string
}

func loadConfig() *Config {
	return &Config{
		NATSUrl:     getEnv("NATS_URL", "nats://localhost:4222"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost/navguard?sslmode=disable"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func main() {
	cfg := loadConfig()

	msgClient, err := messaging.NewClient(messaging.Config{
		URL:            cfg.NATSUrl,
		Name:           "watchdog",
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

	wd := watchdog.New(watchdog.Config{
		Thresholds: navtypes.ThresholdsFromEnv(),
		Alerts:     postgres.NewAlertStore(db),
		Contacts:   postgres.NewContactStore(db),
		Notifier:   notify.New(msgClient),
		Publisher:  msgClient,
	})

	if err := msgClient.QueueSubscribe("records.ingested", "watchdog", func(msg *natsgo.Msg) {
		var evt messaging.RecordIngestedEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Printf("[watchdog] malformed record event: %v", err)
			return
		}
		wd.Process(context.Background(), &navtypes.Record{
			ClientID:   evt.ClientID,
			SessionID:  evt.SessionID,
			T:          evt.T,
			Events:     evt.Events,
			Classes:    evt.Classes,
			Confidence: evt.Confidence,
		})
	}); err != nil {
		log.Fatalf("failed to subscribe to records.ingested: %v", err)
	}

	if err := msgClient.Subscribe("watchdog.status.*", func(msg *natsgo.Msg) {
		clientID := clientIDFromSubject(msg.Subject, "watchdog.status.")
		windowSize, lastStuck, lastAccident, exists := wd.Status(clientID)
		reply, err := json.Marshal(map[string]interface{}{
			"window_size":            windowSize,
			"last_stuck_alert_at":    lastStuck,
			"last_accident_alert_at": lastAccident,
			"exists":                 exists,
		})
		if err != nil {
			return
		}
		if msg.Reply != "" {
			msgClient.Raw().Publish(msg.Reply, reply)
		}
	}); err != nil {
		log.Fatalf("failed to subscribe to watchdog.status.*: %v", err)
	}

	if err := msgClient.Subscribe("watchdog.clear.*", func(msg *natsgo.Msg) {
		clientID := clientIDFromSubject(msg.Subject, "watchdog.clear.")
		wd.ClearClientState(clientID)
		if msg.Reply != "" {
			msgClient.Raw().Publish(msg.Reply, []byte(`{"cleared":true}`))
		}
	}); err != nil {
		log.Fatalf("failed to subscribe to watchdog.clear.*: %v", err)
	}

	log.Println("watchdog running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("watchdog stopped")
}

func clientIDFromSubject(subject, prefix string) string {
	if len(subject) <= len(prefix) {
		return ""
	}
	return subject[len(prefix):]
}
