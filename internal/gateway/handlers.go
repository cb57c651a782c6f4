package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pathwatch/navguard/internal/auth"
	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/internal/query"
	"github.com/pathwatch/navguard/pkg/circuit"
	"github.com/pathwatch/navguard/pkg/messaging"
)

func (g *Gateway) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (g *Gateway) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ws_clients": len(g.wsClients),
	})
}

func (g *Gateway) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	acct, err := g.authSvc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusOK, acct)
}

func (g *Gateway) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := g.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

type recordRequest struct {
	ClientID   string   `json:"client_id"`
	SessionID  string   `json:"session_id"`
	T          int64    `json:"t"`
	Events     []string `json:"events"`
	Classes    []string `json:"classes"`
	FreeAheadM *float64 `json:"free_ahead_m"`
	Confidence float64  `json:"confidence"`
	App        string   `json:"app"`
}

func (r recordRequest) toRecord() *navtypes.Record {
	return &navtypes.Record{
		ClientID:   r.ClientID,
		SessionID:  r.SessionID,
		T:          r.T,
		Events:     r.Events,
		Classes:    r.Classes,
		FreeAheadM: r.FreeAheadM,
		Confidence: r.Confidence,
		App:        r.App,
	}
}

func (g *Gateway) ingestRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rec := req.toRecord()
	if err := rec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.publishRecord(c, rec); err != nil {
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "record accepted"})
}

func (g *Gateway) ingestBatch(c *gin.Context) {
	var reqs []recordRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	accepted := 0
	for _, req := range reqs {
		rec := req.toRecord()
		if err := rec.Validate(); err != nil {
			continue
		}
		if err := g.publishRecord(c, rec); err != nil {
			return
		}
		accepted++
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted, "total": len(reqs)})
}

func (g *Gateway) publishRecord(c *gin.Context, rec *navtypes.Record) error {
	err := g.breakers.Execute(c.Request.Context(), "records", func() error {
		return g.msgClient.Publish(c.Request.Context(), "records.ingested", messaging.RecordIngestedEvent{
			ClientID:   rec.ClientID,
			SessionID:  rec.SessionID,
			T:          rec.T,
			Events:     rec.Events,
			Classes:    rec.Classes,
			Confidence: rec.Confidence,
		})
	})
	if err != nil {
		if errors.Is(err, circuit.ErrCircuitOpen) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record ingest temporarily unavailable"})
			return err
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept record"})
		return err
	}
	return nil
}

func (g *Gateway) buildIndex(c *gin.Context) {
	clientID := c.Param("client_id")
	var req struct {
		SessionID string `json:"session_id"`
		TimeStart *int64 `json:"time_start"`
		TimeEnd   *int64 `json:"time_end"`
	}
	_ = c.ShouldBindJSON(&req)

	idx, err := g.indexer.Rebuild(c.Request.Context(), clientID, req.SessionID, req.TimeStart, req.TimeEnd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build index"})
		return
	}

	c.JSON(http.StatusOK, idx)
}

func (g *Gateway) runQuery(c *gin.Context) {
	var req struct {
		ClientID  string         `json:"client_id" binding:"required"`
		Question  string         `json:"question" binding:"required"`
		SessionID string         `json:"session_id"`
		TimeStart string         `json:"time_start"`
		TimeEnd   string         `json:"time_end"`
		TZ        string         `json:"tz"`
		Params    *query.Params  `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	caretakerID := c.MustGet("caretaker_id").(string)

	answer, resp, err := g.planner.Handle(c.Request.Context(), query.Request{
		RequesterID: caretakerID,
		ClientID:    req.ClientID,
		Question:    req.Question,
		SessionID:   req.SessionID,
		TimeStart:   req.TimeStart,
		TimeEnd:     req.TimeEnd,
		TZ:          req.TZ,
		Params:      req.Params,
	}, timeNow())
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer, "response": resp})
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, navtypes.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this client"})
	case errors.Is(err, navtypes.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, navtypes.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "client or index not found"})
	case errors.Is(err, navtypes.ErrTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (g *Gateway) watchdogStatus(c *gin.Context) {
	clientID := c.Param("client_id")
	windowSize, lastStuck, lastAccident, exists := g.watchdog.Status(clientID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "no watchdog state for client"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window_size":            windowSize,
		"last_stuck_alert_at":    lastStuck,
		"last_accident_alert_at": lastAccident,
	})
}

func (g *Gateway) watchdogClear(c *gin.Context) {
	clientID := c.Param("client_id")
	g.watchdog.ClearClientState(clientID)
	c.JSON(http.StatusOK, gin.H{"message": "cleared"})
}

func (g *Gateway) addContact(c *gin.Context) {
	var contact navtypes.EmergencyContact
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := g.contacts.Add(c.Request.Context(), &contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add contact"})
		return
	}

	g.msgClient.Publish(c.Request.Context(), "contact.added", messaging.ContactEvent{
		ClientID:   contact.ClientID,
		ContactID:  contact.ContactID,
		Authorized: contact.Authorized,
	})

	c.JSON(http.StatusOK, contact)
}

func (g *Gateway) listContacts(c *gin.Context) {
	clientID := c.Param("client_id")
	caretakerID := c.MustGet("caretaker_id").(string)

	authorized, err := g.contacts.IsAuthorized(c.Request.Context(), caretakerID, clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
		return
	}
	if !authorized {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this client"})
		return
	}

	contacts, err := g.contacts.List(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}
