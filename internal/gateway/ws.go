package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	natsgo "github.com/nats-io/nats.go"

	"github.com/pathwatch/navguard/pkg/messaging"
)

func timeNow() time.Time {
	return time.Now().UTC()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StartAlertFanout subscribes once to "alerts.*" and fans each alert
// out to every connected WebSocket client tracking that client_id.
// Must be called once before serving traffic.
func (g *Gateway) StartAlertFanout() error {
	return g.msgClient.Subscribe("alerts.*", func(msg *natsgo.Msg) {
		var alert messaging.AlertEvent
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			log.Printf("[gateway] malformed alert on %s: %v", msg.Subject, err)
			return
		}
		g.broadcastAlert(&alert)
	})
}

func (g *Gateway) broadcastAlert(alert *messaging.AlertEvent) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return
	}

	g.wsMu.RLock()
	defer g.wsMu.RUnlock()

	for _, client := range g.wsClients {
		if client.ClientID != alert.ClientID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			// slow consumer, drop rather than block the fanout loop
		}
	}
}

// streamAlerts upgrades to a WebSocket connection and streams alerts
// for clientID, gated by the caretaker session's is_authorized check.
func (g *Gateway) streamAlerts(c *gin.Context) {
	clientID := c.Param("client_id")
	caretakerID := c.MustGet("caretaker_id").(string)

	authorized, err := g.contacts.IsAuthorized(c.Request.Context(), caretakerID, clientID)
	if err != nil || !authorized {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this client"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &WSClient{
		ID:          uuid.New(),
		CaretakerID: caretakerID,
		ClientID:    clientID,
		Conn:        conn,
		Send:        make(chan []byte, 16),
		Done:        make(chan struct{}),
	}

	g.wsMu.Lock()
	g.wsClients[client.ID] = client
	g.wsMu.Unlock()

	go g.wsWritePump(client)
	g.wsReadPump(client)
}

func (g *Gateway) wsReadPump(client *WSClient) {
	defer func() {
		g.wsMu.Lock()
		delete(g.wsClients, client.ID)
		g.wsMu.Unlock()
		close(client.Done)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) wsWritePump(client *WSClient) {
	for {
		select {
		case message := <-client.Send:
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-client.Done:
			return
		}
	}
}
