package api

import (
	"net/http"
	"strconv"

	"CompanyRank/internal/model"
	"CompanyRank/internal/repository"
	"CompanyRank/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CompanyHandler company store endpoints
type CompanyHandler struct {
	companyService *service.CompanyService
	logger         *logrus.Logger
}

func NewCompanyHandler(db *gorm.DB, logger *logrus.Logger) *CompanyHandler {
	svc := service.NewCompanyService(
		repository.NewCompanyRepository(db),
		repository.NewHistoryRepository(db),
		logger,
	)
	return &CompanyHandler{companyService: svc, logger: logger}
}

// BulkUpsert POST /api/companies/bulk, body: JSON array of companies
func (h *CompanyHandler) BulkUpsert(c *gin.Context) {
	var rows []*model.Company
	if err := c.ShouldBindJSON(&rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.companyService.UpsertCompanies(c.Request.Context(), rows)
	if err != nil {
		respondError(c, h.logger, "BulkUpsert", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": len(rows), "written": n})
}

// ListCompanies GET /api/companies?search=&region=&kved=&size=&ranked=true&page=1&page_size=20
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	ranked, _ := strconv.ParseBool(c.DefaultQuery("ranked", "false"))

	filter := repository.CompanyFilter{
		Search:     c.Query("search"),
		Region:     c.Query("region"),
		Kved:       c.Query("kved"),
		Size:       c.Query("size"),
		RankedOnly: ranked,
	}
	list, total, err := h.companyService.ListCompanies(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, h.logger, "ListCompanies", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "total": total, "page": page, "page_size": pageSize})
}

// GetCompany GET /api/companies/:id
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.companyService.CompanyDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetCompany", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetByEdrpou GET /api/companies/edrpou/:edrpou
func (h *CompanyHandler) GetByEdrpou(c *gin.Context) {
	company, err := h.companyService.GetByEdrpou(c.Request.Context(), c.Param("edrpou"))
	if err != nil {
		respondError(c, h.logger, "GetByEdrpou", err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// FilterOptions GET /api/filter/options
func (h *CompanyHandler) FilterOptions(c *gin.Context) {
	opts, err := h.companyService.FilterOptions(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "FilterOptions", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// Stats GET /api/stats
func (h *CompanyHandler) Stats(c *gin.Context) {
	stats, err := h.companyService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// parseID reads :id, writing a 400 when it is not a positive integer
func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
