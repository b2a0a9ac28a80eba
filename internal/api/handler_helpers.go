package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// handleRepositoryError maps storage errors to HTTP responses
func handleRepositoryError(c *gin.Context, err error, entityType, operation string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": entityType + " not found",
		})
		return
	}
	if errors.Is(err, domain.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to " + operation + " " + entityType,
	})
}

// parseTimeParam parses an optional RFC3339 query parameter into dest.
// Reports false after writing a 400 response when the value is invalid.
func parseTimeParam(c *gin.Context, param string, dest *time.Time) bool {
	raw := c.Query(param)
	if raw == "" {
		return true
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + param + " parameter, expected RFC3339",
		})
		return false
	}
	*dest = ts
	return true
}

// parseLimit parses an optional limit query parameter with bounds.
func parseLimit(c *gin.Context, fallback, maximum int) (int, bool) {
	limitParam := c.Query("limit")
	if limitParam == "" {
		return fallback, true
	}

	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid limit parameter",
		})
		return 0, false
	}
	if limit > maximum {
		limit = maximum
	}
	return limit, true
}
