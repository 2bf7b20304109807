package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"CompanyRank/internal/metrics"
	"CompanyRank/internal/model"
	"CompanyRank/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultSourcePrefix = "Україна"

// RankRequest one ranking run. SelectionBaseID 0 means the active selection base.
type RankRequest struct {
	SelectionBaseID uint64             `json:"selection_base_id"`
	SortCriteria    model.SortCriteria `json:"sort_criteria" validate:"required,oneof=revenue profit personnel"`
	SortOrder       model.SortOrder    `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	ExtraRegions    []string           `json:"extra_regions"`
	ExtraKveds      []string           `json:"extra_industries"`
	ExtraSizes      []string           `json:"extra_sizes"`
	RankingName     string             `json:"ranking_name" validate:"required,max=200"`
	YearSource      string             `json:"year_source_label" validate:"max=50"`
}

// RankingResult stored ranking plus its rows in position order
type RankingResult struct {
	Ranking *model.Ranking `json:"ranking"`
	Rows    []*ExportRow   `json:"rows"`
}

// RankingSummary list entry
type RankingSummary struct {
	*model.Ranking
	Leader string `json:"leader,omitempty"`
}

// ExportRow flat report line handed to the exporters
type ExportRow struct {
	Position            int                 `json:"position"`
	Source              string              `json:"source"`
	Edrpou              string              `json:"edrpou"`
	Name                string              `json:"name"`
	KvedCode            *string             `json:"kved_code"`
	KvedDescription     *string             `json:"kved_description"`
	Personnel           *int                `json:"personnel"`
	RegionName          *string             `json:"region_name"`
	Phone               *string             `json:"phone"`
	Address             *string             `json:"address"`
	Revenue             decimal.NullDecimal `json:"revenue"`
	Profit              decimal.NullDecimal `json:"profit"`
	CompanySize         *string             `json:"company_size"`
	FirstName           *string             `json:"first_name"`
	MiddleName          *string             `json:"middle_name"`
	LastName            *string             `json:"last_name"`
	WorkPhone           *string             `json:"work_phone"`
	CorporateSite       *string             `json:"corporate_site"`
	WorkEmail           *string             `json:"work_email"`
	CompanyStatus       *string             `json:"company_status"`
	Director            *string             `json:"director"`
	GovernmentPurchases decimal.NullDecimal `json:"government_purchases"`
	TenderCount         *int                `json:"tender_count"`
	Initials            *string             `json:"initials"`
	Actualized          bool                `json:"actualized"`
	SortValue           decimal.NullDecimal `json:"sort_value"`
	CriteriaLabel       string              `json:"criteria_label"`
	SourceLabel         string              `json:"source_label"`
	RankingName         string              `json:"ranking_name"`
	TotalCount          int                 `json:"total_count"`
}

// RankingService sorts selection bases into persisted rankings
type RankingService struct {
	rankings     repository.RankingRepository
	selections   repository.SelectionRepository
	companies    repository.CompanyRepository
	validate     *validator.Validate
	sourcePrefix string
	logger       *logrus.Logger
}

func NewRankingService(
	rankings repository.RankingRepository,
	selections repository.SelectionRepository,
	companies repository.CompanyRepository,
	sourcePrefix string,
	logger *logrus.Logger,
) *RankingService {
	if strings.TrimSpace(sourcePrefix) == "" {
		sourcePrefix = defaultSourcePrefix
	}
	return &RankingService{
		rankings:     rankings,
		selections:   selections,
		companies:    companies,
		validate:     newValidator(),
		sourcePrefix: sourcePrefix,
		logger:       logger,
	}
}

// CreateRanking re-derives the selection's members, sorts them and stores the result as the current ranking.
// An empty result is stored too and still clears the previous current ranks.
func (s *RankingService) CreateRanking(ctx context.Context, req RankRequest) (result *RankingResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			metrics.RankingRuns.WithLabelValues("error").Inc()
			return
		}
		metrics.RankingRuns.WithLabelValues("success").Inc()
		metrics.RankingDuration.Observe(time.Since(start).Seconds())
	}()

	req.RankingName = strings.TrimSpace(req.RankingName)
	req.YearSource = strings.TrimSpace(req.YearSource)
	if err := s.validate.Struct(&req); err != nil {
		return nil, validationFromTags(err)
	}
	if req.SortOrder == "" {
		req.SortOrder = model.SortDesc
	}

	base, err := s.resolveSelection(ctx, req.SelectionBaseID)
	if err != nil {
		return nil, err
	}

	q := repository.CompanyQuery{
		MinEmployees: base.MinEmployees,
		MinRevenue:   base.MinRevenue,
		Regions:      cleanValues(req.ExtraRegions),
		Kveds:        cleanValues(req.ExtraKveds),
		Sizes:        cleanValues(req.ExtraSizes),
	}
	if base.MinProfit.Valid {
		minProfit := base.MinProfit.Decimal
		q.MinProfit = &minProfit
	}
	companies, err := s.companies.FindMatching(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load selection members: %w", err)
	}

	SortCompanies(companies, req.SortCriteria, req.SortOrder)

	year := req.YearSource
	if year == "" {
		year = fmt.Sprintf("%d", time.Now().Year())
	}
	ranking := &model.Ranking{
		RunUUID:         uuid.NewString(),
		Name:            req.RankingName,
		SelectionBaseID: base.ID,
		SortCriteria:    req.SortCriteria,
		SortOrder:       req.SortOrder,
		CriteriaLabel:   req.SortCriteria.Label(),
		SourceLabel:     s.sourcePrefix + " " + year,
		RegionFilters:   jsonList(q.Regions),
		KvedFilters:     jsonList(q.Kveds),
		SizeFilters:     jsonList(q.Sizes),
	}
	entries := make([]*model.RankingCompany, 0, len(companies))
	for i, c := range companies {
		entries = append(entries, &model.RankingCompany{
			CompanyID: c.ID,
			Position:  i + 1,
			SortValue: metricValue(c, req.SortCriteria),
		})
	}

	if err := s.rankings.SaveRun(ctx, ranking, entries); err != nil {
		s.logger.WithError(err).WithField("ranking_name", ranking.Name).Error("save ranking failed")
		return nil, &PersistenceError{Op: "save ranking", Err: err}
	}
	metrics.RankedCompanies.Set(float64(len(entries)))

	s.logger.WithFields(logrus.Fields{
		"ranking_id":   ranking.ID,
		"ranking_name": ranking.Name,
		"criteria":     ranking.SortCriteria,
		"order":        ranking.SortOrder,
		"companies":    ranking.CompaniesCount,
	}).Info("ranking created")

	rows := make([]*ExportRow, 0, len(companies))
	for i, c := range companies {
		rows = append(rows, exportRow(ranking, c, entries[i], len(companies)))
	}
	return &RankingResult{Ranking: ranking, Rows: rows}, nil
}

func (s *RankingService) resolveSelection(ctx context.Context, id uint64) (*model.SelectionBase, error) {
	if id == 0 {
		base, err := s.selections.GetActive(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSelectionBase
		}
		return base, err
	}
	base, err := s.selections.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSelectionNotFound
	}
	return base, err
}

// ListRankings newest first, each with the name of the company ranked first
func (s *RankingService) ListRankings(ctx context.Context) ([]*RankingSummary, error) {
	list, err := s.rankings.ListRankings(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(list))
	for _, rk := range list {
		ids = append(ids, rk.ID)
	}
	leaders, err := s.rankings.LeaderNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*RankingSummary, 0, len(list))
	for _, rk := range list {
		out = append(out, &RankingSummary{Ranking: rk, Leader: leaders[rk.ID]})
	}
	return out, nil
}

func (s *RankingService) GetRanking(ctx context.Context, id uint64) (*model.Ranking, error) {
	rk, err := s.rankings.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRankingNotFound
	}
	if err != nil {
		return nil, err
	}
	return rk, nil
}

// RankingRows export rows of a stored ranking in position order
func (s *RankingService) RankingRows(ctx context.Context, id uint64) ([]*ExportRow, error) {
	rk, err := s.GetRanking(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.rankings.ListRows(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*ExportRow, 0, len(rows))
	for _, row := range rows {
		c := row.Company
		out = append(out, exportRow(rk, &c, &model.RankingCompany{Position: row.Position, SortValue: row.SortValue}, len(rows)))
	}
	return out, nil
}

// LatestRankingID ErrRankingNotFound when nothing was ranked yet
func (s *RankingService) LatestRankingID(ctx context.Context) (uint64, error) {
	id, err := s.rankings.LatestID(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrRankingNotFound
	}
	return id, err
}

// CurrentRanking companies carrying a current rank, ordered by it
func (s *RankingService) CurrentRanking(ctx context.Context) ([]*model.Company, error) {
	return s.companies.ListCurrentRanked(ctx)
}

// SortCompanies orders companies in place by the chosen metric. Missing values count as zero.
// The sort is stable, so equal values keep their incoming order.
func SortCompanies(companies []*model.Company, criteria model.SortCriteria, order model.SortOrder) {
	sort.SliceStable(companies, func(i, j int) bool {
		a, b := metricOrZero(companies[i], criteria), metricOrZero(companies[j], criteria)
		if order == model.SortAsc {
			return a.LessThan(b)
		}
		return a.GreaterThan(b)
	})
}

func metricOrZero(c *model.Company, criteria model.SortCriteria) decimal.Decimal {
	switch criteria {
	case model.SortByProfit:
		return c.ProfitOrZero()
	case model.SortByPersonnel:
		return decimal.NewFromInt(int64(c.PersonnelOrZero()))
	default:
		return c.RevenueOrZero()
	}
}

// metricValue stored sort value; NULL when the company has no value for the metric
func metricValue(c *model.Company, criteria model.SortCriteria) decimal.NullDecimal {
	switch criteria {
	case model.SortByProfit:
		return c.Profit
	case model.SortByPersonnel:
		if c.Personnel == nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(*c.Personnel)))
	default:
		return c.Revenue
	}
}

func jsonList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return datatypes.JSON(raw)
}

func exportRow(rk *model.Ranking, c *model.Company, e *model.RankingCompany, total int) *ExportRow {
	return &ExportRow{
		Position:            e.Position,
		Source:              c.Source,
		Edrpou:              c.Edrpou,
		Name:                c.Name,
		KvedCode:            c.KvedCode,
		KvedDescription:     c.KvedDescription,
		Personnel:           c.Personnel,
		RegionName:          c.RegionName,
		Phone:               c.Phone,
		Address:             c.Address,
		Revenue:             c.Revenue,
		Profit:              c.Profit,
		CompanySize:         c.CompanySize,
		FirstName:           c.FirstName,
		MiddleName:          c.MiddleName,
		LastName:            c.LastName,
		WorkPhone:           c.WorkPhone,
		CorporateSite:       c.CorporateSite,
		WorkEmail:           c.WorkEmail,
		CompanyStatus:       c.CompanyStatus,
		Director:            c.Director,
		GovernmentPurchases: c.GovernmentPurchases,
		TenderCount:         c.TenderCount,
		Initials:            c.Initials,
		Actualized:          c.Actualized,
		SortValue:           e.SortValue,
		CriteriaLabel:       rk.CriteriaLabel,
		SourceLabel:         rk.SourceLabel,
		RankingName:         rk.Name,
		TotalCount:          total,
	}
}
