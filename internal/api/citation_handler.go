package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/database"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
)

// List limits for citation endpoints.
const (
	defaultCitationListLimit = 100
	maxCitationListLimit     = 500
	recommendationWindow     = 1000
)

// CitationStore persists and queries citation records.
type CitationStore interface {
	Insert(ctx context.Context, rec *domain.CitationRecord) error
	List(ctx context.Context, filter database.CitationFilter) ([]domain.CitationRecord, error)
	CompetitorCounts(ctx context.Context) ([]domain.CompetitorCitation, error)
}

// analyzeRequest is the body for POST /analyze.
type analyzeRequest struct {
	Query        string `json:"query"`
	ResponseText string `json:"response_text"`
	Platform     string `json:"platform"`
}

// listCitations returns stored citation records, newest first.
func (r *Router) listCitations(c *gin.Context) {
	limit, ok := parseLimit(c, defaultCitationListLimit, maxCitationListLimit)
	if !ok {
		return
	}

	filter := database.CitationFilter{
		Query: c.Query("query"),
		Limit: limit,
	}

	if platform := c.Query("platform"); platform != "" {
		p := domain.Platform(platform)
		if !p.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid platform parameter",
			})
			return
		}
		filter.Platform = p
	}

	if !parseTimeParam(c, "since", &filter.Since) {
		return
	}
	if !parseTimeParam(c, "until", &filter.Until) {
		return
	}

	records, err := r.citations.List(c.Request.Context(), filter)
	if err != nil {
		r.logger.Error("Failed to list citations", logger.Error(err))
		handleRepositoryError(c, err, "citations", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"citations": records,
		"count":     len(records),
	})
}

// analyzeResponse runs mention detection on a submitted answer-engine
// response and persists the resulting record.
func (r *Router) analyzeResponse(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	start := time.Now()
	record, err := r.analyzer.Analyze(
		req.Query,
		req.ResponseText,
		domain.Platform(req.Platform),
		r.cfg.Citation.BrandName,
		r.cfg.Citation.Competitors,
	)
	if err != nil {
		handleRepositoryError(c, err, "analysis", "run")
		return
	}

	if err := r.citations.Insert(c.Request.Context(), record); err != nil {
		r.logger.Error("Failed to store citation record",
			logger.String("record_id", record.ID),
			logger.Error(err))
		handleRepositoryError(c, err, "citation record", "store")
		return
	}

	if r.telemetry != nil {
		r.telemetry.RecordAnalysis(c.Request.Context(),
			string(record.Platform), record.BrandMentioned, time.Since(start))
	}

	r.logger.Info("Analyzed response",
		logger.String("record_id", record.ID),
		logger.String("platform", string(record.Platform)),
		logger.Bool("brand_mentioned", record.BrandMentioned))

	c.JSON(http.StatusCreated, record)
}

// listCompetitors returns aggregate competitor mention counts.
func (r *Router) listCompetitors(c *gin.Context) {
	counts, err := r.citations.CompetitorCounts(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to aggregate competitors", logger.Error(err))
		handleRepositoryError(c, err, "competitors", "aggregate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competitors": counts,
		"count":       len(counts),
	})
}

// getRecommendations derives content recommendations from recent records.
func (r *Router) getRecommendations(c *gin.Context) {
	records, err := r.citations.List(c.Request.Context(), database.CitationFilter{
		Limit: recommendationWindow,
	})
	if err != nil {
		r.logger.Error("Failed to load records for recommendations", logger.Error(err))
		handleRepositoryError(c, err, "citations", "list")
		return
	}

	recommendations := r.engine.Recommend(records)

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recommendations,
		"count":           len(recommendations),
	})
}
