package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
)

// getRecoveryStats returns cart status counts and recovery outcomes.
func (r *Router) getRecoveryStats(c *gin.Context) {
	stats, err := r.tracker.Stats(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to collect recovery stats", logger.Error(err))
		handleRepositoryError(c, err, "recovery stats", "collect")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// getWorkerStats returns scheduler queue depth and throughput figures.
func (r *Router) getWorkerStats(c *gin.Context) {
	if r.worker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Worker is not running in this process",
		})
		return
	}

	stats, err := r.worker.GetStats(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to collect worker stats", logger.Error(err))
		handleRepositoryError(c, err, "worker stats", "collect")
		return
	}

	c.JSON(http.StatusOK, stats)
}
