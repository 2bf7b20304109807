package api

import (
	"net/http"

	"CompanyRank/internal/config"
	"CompanyRank/internal/repository"
	"CompanyRank/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RankingHandler ranking endpoints
type RankingHandler struct {
	rankingService *service.RankingService
	logger         *logrus.Logger
}

func NewRankingHandler(db *gorm.DB, logger *logrus.Logger, cfg config.RankingConfig) *RankingHandler {
	svc := service.NewRankingService(
		repository.NewRankingRepository(db),
		repository.NewSelectionRepository(db),
		repository.NewCompanyRepository(db),
		cfg.SourcePrefix,
		logger,
	)
	return &RankingHandler{rankingService: svc, logger: logger}
}

// CreateRanking POST /api/rankings
// body: {selection_base_id, sort_criteria, sort_order, extra_regions, extra_industries, extra_sizes, ranking_name, year_source_label}
func (h *RankingHandler) CreateRanking(c *gin.Context) {
	var req service.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.rankingService.CreateRanking(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "CreateRanking", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListRankings GET /api/rankings
func (h *RankingHandler) ListRankings(c *gin.Context) {
	list, err := h.rankingService.ListRankings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "ListRankings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// LatestRanking GET /api/rankings/latest
func (h *RankingHandler) LatestRanking(c *gin.Context) {
	id, err := h.rankingService.LatestRankingID(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "LatestRanking", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking_id": id})
}

// CurrentRanking GET /api/rankings/current
func (h *RankingHandler) CurrentRanking(c *gin.Context) {
	list, err := h.rankingService.CurrentRanking(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "CurrentRanking", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "total": len(list)})
}

// GetRanking GET /api/rankings/:id
func (h *RankingHandler) GetRanking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rk, err := h.rankingService.GetRanking(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetRanking", err)
		return
	}
	c.JSON(http.StatusOK, rk)
}

// RankingRows GET /api/rankings/:id/rows, consumed by the report exporters
func (h *RankingHandler) RankingRows(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rows, err := h.rankingService.RankingRows(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "RankingRows", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}
