// server/internal/api/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"agritrace-api-server/internal/provenance"

	"github.com/gin-gonic/gin"
)

// respondError maps the engine's error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a persistence or encoder failure and stays a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, provenance.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, provenance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, provenance.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
	}
}
