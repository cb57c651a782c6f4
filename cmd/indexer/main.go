package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/internal/store/timeseries"
	"github.com/pathwatch/navguard/pkg/messaging"
)

type Config struct {
	NATSUrl      string
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func loadConfig() *Config {
	return &Config{
		NATSUrl:      getEnv("NATS_URL", "nats://localhost:4222"),
		InfluxURL:    getEnv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  getEnv("INFLUX_TOKEN", ""),
		InfluxOrg:    getEnv("INFLUX_ORG", "navguard"),
		InfluxBucket: getEnv("INFLUX_BUCKET", "nav_records"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// main runs the ingest subscriber: every accepted record is appended
// to the time-series record store, independent of whether the
// watchdog's streaming checks find anything interesting in it.
func main() {
	cfg := loadConfig()

	msgClient, err := messaging.NewClient(messaging.Config{
		URL:            cfg.NATSUrl,
		Name:           "indexer",
		ReconnectWait:  time.Second,
		MaxReconnects:  60,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer msgClient.Close()

	tsStore := timeseries.New(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	defer tsStore.Close()

	err = msgClient.QueueSubscribe("records.ingested", "indexer", func(msg *natsgo.Msg) {
		var evt messaging.RecordIngestedEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Printf("[indexer] malformed record event: %v", err)
			return
		}

		rec := &navtypes.Record{
			ClientID:   evt.ClientID,
			SessionID:  evt.SessionID,
			T:          evt.T,
			Events:     evt.Events,
			Classes:    evt.Classes,
			Confidence: evt.Confidence,
		}
		if err := rec.Validate(); err != nil {
			log.Printf("[indexer] dropping invalid record for %s: %v", evt.ClientID, err)
			return
		}

		if err := tsStore.Put(context.Background(), rec); err != nil {
			log.Printf("[indexer] failed to persist record for %s: %v", evt.ClientID, err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to records.ingested: %v", err)
	}

	log.Println("indexer ingest subscriber running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("indexer stopped")
}
