package api

import (
	"net/http"
	"strconv"

	"CompanyRank/internal/config"
	"CompanyRank/internal/repository"
	"CompanyRank/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SelectionHandler selection base endpoints
type SelectionHandler struct {
	selectionService *service.SelectionService
	logger           *logrus.Logger
}

func NewSelectionHandler(db *gorm.DB, logger *logrus.Logger, cfg config.RankingConfig) *SelectionHandler {
	companies := repository.NewCompanyRepository(db)
	filter := service.NewFilterEngine(companies, cfg.RegionalKvedThreshold, logger)
	svc := service.NewSelectionService(filter, repository.NewSelectionRepository(db), companies, cfg.HistoryLimit, logger)
	return &SelectionHandler{selectionService: svc, logger: logger}
}

// CreateSelection POST /api/selections
// body: {min_employees, min_revenue, min_profit, regions, industries, sizes, regional_kved_filter}
func (h *SelectionHandler) CreateSelection(c *gin.Context) {
	var params service.FilterParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.selectionService.CreateSelection(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, "CreateSelection", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListSelections GET /api/selections?limit=10
func (h *SelectionHandler) ListSelections(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := h.selectionService.SelectionHistory(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "ListSelections", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// CurrentSelection GET /api/selections/current
func (h *SelectionHandler) CurrentSelection(c *gin.Context) {
	info, err := h.selectionService.CurrentSelectionInfo(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "CurrentSelection", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetSelection GET /api/selections/:id
func (h *SelectionHandler) GetSelection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.selectionService.GetSelection(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetSelection", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListMembers GET /api/selections/:id/companies?page=1&page_size=20
func (h *SelectionHandler) ListMembers(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, total, err := h.selectionService.SelectionMembers(c.Request.Context(), id, page, pageSize)
	if err != nil {
		respondError(c, h.logger, "ListMembers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "total": total, "page": page, "page_size": pageSize})
}
