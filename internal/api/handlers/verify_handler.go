// server/internal/api/handlers/verify_handler.go
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"agritrace-api-server/internal/models"
	"agritrace-api-server/internal/provenance"
	"agritrace-api-server/internal/socket"

	"github.com/gin-gonic/gin"
)

// VerifyHandler serves the public verification surface: the page data behind
// the scannable URL and the scan-recording endpoint. No JWT is required;
// authenticated callers are attributed on their scans.
type VerifyHandler struct {
	Service *provenance.Service
	Hub     *socket.Hub
}

// VerifyBatch resolves the provenance snapshot behind a verification URL.
func (h *VerifyHandler) VerifyBatch(c *gin.Context) {
	result, err := h.Service.VerifyByBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type RecordScanRequest struct {
	ActorType string   `json:"actorType"`
	ActorName string   `json:"actorName"`
	Location  string   `json:"location"`
	Outcome   string   `json:"outcome"`
	Notes     string   `json:"notes"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// RecordScan appends one verification attempt to a code's audit log and
// pushes a live event to the owning farmer's scan feed.
func (h *VerifyHandler) RecordScan(c *gin.Context) {
	var req RecordScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var coords *models.GeoPoint
	if req.Latitude != nil && req.Longitude != nil {
		coords = &models.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	event, err := h.Service.RecordScan(c.Request.Context(), c.Param("id"), provenance.ScanInput{
		UserID:      c.GetString("user_id"),
		ActorType:   req.ActorType,
		ActorName:   req.ActorName,
		Location:    req.Location,
		Outcome:     req.Outcome,
		Notes:       req.Notes,
		UserAgent:   c.Request.UserAgent(),
		IP:          c.ClientIP(),
		Coordinates: coords,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.Hub != nil {
		if message, err := json.Marshal(event); err == nil {
			if err := h.Hub.Send(event.FarmerID, message); err != nil {
				log.Printf("Failed to push scan event for %s: %v", event.Code, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "outcome": event.Outcome})
}
