package api

import (
	"net/http"

	"CompanyRank/internal/config"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewRouter wires middleware, ops endpoints and the /api routes
func NewRouter(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(logger, "/healthz", "/metrics"), CORS(cfg.Server.CORSOrigins))

	// ops
	pprof.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	companyHandler := NewCompanyHandler(db, logger)
	selectionHandler := NewSelectionHandler(db, logger, cfg.Ranking)
	rankingHandler := NewRankingHandler(db, logger, cfg.Ranking)

	g := r.Group("/api")
	{
		g.POST("/companies/bulk", companyHandler.BulkUpsert)
		g.GET("/companies", companyHandler.ListCompanies)
		g.GET("/companies/:id", companyHandler.GetCompany)
		g.GET("/companies/edrpou/:edrpou", companyHandler.GetByEdrpou)
		g.GET("/filter/options", companyHandler.FilterOptions)
		g.GET("/stats", companyHandler.Stats)

		g.POST("/selections", selectionHandler.CreateSelection)
		g.GET("/selections", selectionHandler.ListSelections)
		g.GET("/selections/current", selectionHandler.CurrentSelection)
		g.GET("/selections/:id", selectionHandler.GetSelection)
		g.GET("/selections/:id/companies", selectionHandler.ListMembers)

		g.POST("/rankings", rankingHandler.CreateRanking)
		g.GET("/rankings", rankingHandler.ListRankings)
		g.GET("/rankings/latest", rankingHandler.LatestRanking)
		g.GET("/rankings/current", rankingHandler.CurrentRanking)
		g.GET("/rankings/:id", rankingHandler.GetRanking)
		g.GET("/rankings/:id/rows", rankingHandler.RankingRows)
	}
	return r
}
