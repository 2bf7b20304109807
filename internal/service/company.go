package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"CompanyRank/internal/metrics"
	"CompanyRank/internal/model"
	"CompanyRank/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const topKvedGroups = 10

// FilterOptions distinct values offered for the categorical filters
type FilterOptions struct {
	Regions []string `json:"regions"`
	Kveds   []string `json:"industries"`
	Sizes   []string `json:"sizes"`
}

// StoreStats dashboard counters plus the largest KVED groups
type StoreStats struct {
	*repository.CompanyStats
	TopKveds []repository.KvedGroup `json:"top_kved"`
}

// CompanyDetail company with its ranking history, newest first
type CompanyDetail struct {
	Company *model.Company                 `json:"company"`
	History []*model.CompanyRankingHistory `json:"history"`
}

// CompanyService bulk loading and read side of the company store
type CompanyService struct {
	companies repository.CompanyRepository
	history   repository.HistoryRepository
	logger    *logrus.Logger
}

func NewCompanyService(companies repository.CompanyRepository, history repository.HistoryRepository, logger *logrus.Logger) *CompanyService {
	return &CompanyService{companies: companies, history: history, logger: logger}
}

// UpsertCompanies bulk loader entry point. Rows with the same registry id collapse to the last one.
func (s *CompanyService) UpsertCompanies(ctx context.Context, rows []*model.Company) (int, error) {
	seen := make(map[string]int, len(rows))
	batch := make([]*model.Company, 0, len(rows))
	for i, c := range rows {
		if c == nil {
			return 0, &ValidationError{Field: fmt.Sprintf("companies[%d]", i), Message: "is empty"}
		}
		c.Edrpou = strings.TrimSpace(c.Edrpou)
		c.Name = strings.TrimSpace(c.Name)
		if c.Edrpou == "" {
			return 0, &ValidationError{Field: fmt.Sprintf("companies[%d].edrpou", i), Message: "is required"}
		}
		if c.Name == "" {
			return 0, &ValidationError{Field: fmt.Sprintf("companies[%d].name", i), Message: "is required"}
		}
		if c.Source == "" {
			c.Source = model.DefaultSource
		}
		// current rank is owned by ranking runs
		c.ID, c.Ranking, c.RankingCriteria = 0, nil, nil
		if idx, ok := seen[c.Edrpou]; ok {
			batch[idx] = c
			continue
		}
		seen[c.Edrpou] = len(batch)
		batch = append(batch, c)
	}

	n, err := s.companies.UpsertCompanies(ctx, batch)
	metrics.CompaniesUpserted.Add(float64(n))
	if err != nil {
		s.logger.WithError(err).WithField("written", n).Error("bulk upsert failed")
		return n, &PersistenceError{Op: "upsert companies", Err: err}
	}
	s.logger.WithFields(logrus.Fields{"received": len(rows), "written": n}).Info("companies upserted")
	return n, nil
}

func (s *CompanyService) ListCompanies(ctx context.Context, filter repository.CompanyFilter, page, pageSize int) ([]*model.Company, int64, error) {
	return s.companies.ListCompanies(ctx, filter, page, pageSize)
}

func (s *CompanyService) GetCompany(ctx context.Context, id uint64) (*model.Company, error) {
	c, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByEdrpou lookup by registry identifier
func (s *CompanyService) GetByEdrpou(ctx context.Context, edrpou string) (*model.Company, error) {
	c, err := s.companies.GetByEdrpou(ctx, strings.TrimSpace(edrpou))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyService) CompanyDetail(ctx context.Context, id uint64) (*CompanyDetail, error) {
	c, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CompanyDetail{Company: c, History: history}, nil
}

// FilterOptions loads the three option lists concurrently
func (s *CompanyService) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	var opts FilterOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		opts.Regions, err = s.companies.DistinctValues(gctx, "region_name")
		return err
	})
	g.Go(func() (err error) {
		opts.Kveds, err = s.companies.DistinctValues(gctx, "kved_code")
		return err
	})
	g.Go(func() (err error) {
		opts.Sizes, err = s.companies.DistinctValues(gctx, "company_size")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (s *CompanyService) Stats(ctx context.Context) (*StoreStats, error) {
	var out StoreStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.CompanyStats, err = s.companies.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TopKveds, err = s.companies.TopKvedGroups(gctx, topKvedGroups)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
