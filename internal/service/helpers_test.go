package service

import (
	"context"
	"io"
	"testing"

	"CompanyRank/internal/config"
	"CompanyRank/internal/database"
	"CompanyRank/internal/model"
	"CompanyRank/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// pipeline every service wired against one database
type pipeline struct {
	db         *gorm.DB
	companies  *CompanyService
	selections *SelectionService
	rankings   *RankingService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	db := newTestDB(t)
	logger := quietLogger()
	companyRepo := repository.NewCompanyRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	return &pipeline{
		db:         db,
		companies:  NewCompanyService(companyRepo, repository.NewHistoryRepository(db), logger),
		selections: NewSelectionService(NewFilterEngine(companyRepo, DefaultRegionalKvedThreshold, logger), selectionRepo, companyRepo, 10, logger),
		rankings:   NewRankingService(repository.NewRankingRepository(db), selectionRepo, companyRepo, "Україна", logger),
	}
}

func (p *pipeline) load(t *testing.T, rows ...*model.Company) {
	t.Helper()
	_, err := p.companies.UpsertCompanies(context.Background(), rows)
	require.NoError(t, err)
}

// currentRanks edrpou -> current rank, nil when unranked
func (p *pipeline) currentRanks(t *testing.T) map[string]*int {
	t.Helper()
	var list []*model.Company
	require.NoError(t, p.db.Order("edrpou").Find(&list).Error)
	out := make(map[string]*int, len(list))
	for _, c := range list {
		out[c.Edrpou] = c.Ranking
	}
	return out
}

func (p *pipeline) companyID(t *testing.T, edrpou string) uint64 {
	t.Helper()
	var c model.Company
	require.NoError(t, p.db.Where("edrpou = ?", edrpou).First(&c).Error)
	return c.ID
}

type companyOpt func(*model.Company)

func company(edrpou, name string, opts ...companyOpt) *model.Company {
	c := &model.Company{Edrpou: edrpou, Name: name}
	for _, o := range opts {
		o(c)
	}
	return c
}

func revenue(v int64) companyOpt {
	return func(c *model.Company) { c.Revenue = decimal.NewNullDecimal(decimal.NewFromInt(v)) }
}

func profit(v int64) companyOpt {
	return func(c *model.Company) { c.Profit = decimal.NewNullDecimal(decimal.NewFromInt(v)) }
}

func personnel(v int) companyOpt {
	return func(c *model.Company) { c.Personnel = &v }
}

func region(v string) companyOpt {
	return func(c *model.Company) { c.RegionName = &v }
}

func kved(v string) companyOpt {
	return func(c *model.Company) { c.KvedCode = &v }
}

func size(v string) companyOpt {
	return func(c *model.Company) { c.CompanySize = &v }
}

func edrpous(list []*model.Company) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Edrpou)
	}
	return out
}
