// server/internal/api/handlers/qrcode_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"agritrace-api-server/internal/provenance"

	"github.com/gin-gonic/gin"
)

// QRCodeHandler exposes the farmer-facing surface of the provenance engine.
type QRCodeHandler struct {
	Service *provenance.Service
}

type IssueQRCodeRequest struct {
	HarvestID string `json:"harvestID" binding:"required"`
	// CustomData is merged into the payload embedded in the QR symbol.
	CustomData map[string]interface{} `json:"customData"`
}

// Issue creates the verification code for one of the caller's harvests.
func (h *QRCodeHandler) Issue(c *gin.Context) {
	var req IssueQRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.Service.Issue(c.Request.Context(), c.GetString("user_id"), req.HarvestID, req.CustomData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// List returns a filtered, paginated page of the caller's codes.
func (h *QRCodeHandler) List(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	result, err := h.Service.List(c.Request.Context(), c.GetString("user_id"), provenance.ListQuery{
		Page:     page,
		Limit:    limit,
		Status:   c.Query("status"),
		CropType: c.Query("cropType"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats returns the caller's aggregate dashboard numbers.
func (h *QRCodeHandler) Stats(c *gin.Context) {
	result, err := h.Service.Stats(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetByID returns the full record including its scan log.
func (h *QRCodeHandler) GetByID(c *gin.Context) {
	detail, err := h.Service.GetByID(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DownloadImage serves the raw PNG. This is a pure read; clients report the
// download separately via RecordDownload.
func (h *QRCodeHandler) DownloadImage(c *gin.Context) {
	filename, data, err := h.Service.Image(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "image/png", data)
}

// RecordDownload bumps the retrieval counters for a code.
func (h *QRCodeHandler) RecordDownload(c *gin.Context) {
	if err := h.Service.RecordDownload(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Revoke permanently invalidates an active code.
func (h *QRCodeHandler) Revoke(c *gin.Context) {
	record, err := h.Service.Revoke(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// MarkVerified records the externally decided terminal verified state.
func (h *QRCodeHandler) MarkVerified(c *gin.Context) {
	record, err := h.Service.MarkVerified(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ReconcileExpired sweeps the caller's stale active codes past their expiry.
func (h *QRCodeHandler) ReconcileExpired(c *gin.Context) {
	n, err := h.Service.ReconcileExpired(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "reconciled": n})
}

// Delete removes a code and clears its denormalized copy on the harvest.
func (h *QRCodeHandler) Delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
