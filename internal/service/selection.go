package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"CompanyRank/internal/metrics"
	"CompanyRank/internal/model"
	"CompanyRank/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 10

// SelectionResult outcome of CreateSelection
type SelectionResult struct {
	Selection *model.SelectionBase `json:"selection"`
	Stats     *FilterResult        `json:"stats"`
}

// SelectionView selection base with a readable criteria line
type SelectionView struct {
	*model.SelectionBase
	Criteria string `json:"criteria"`
}

// SelectionInfo dashboard summary of the current selection state
type SelectionInfo struct {
	TotalCompanies   int64          `json:"total_companies"`
	ActiveSelections int64          `json:"active_selections"`
	RankedCompanies  int64          `json:"ranked_companies"`
	Active           *SelectionView `json:"active,omitempty"`
}

// SelectionService materializes filter results as selection bases
type SelectionService struct {
	filter       *FilterEngine
	selections   repository.SelectionRepository
	companies    repository.CompanyRepository
	historyLimit int
	logger       *logrus.Logger
}

func NewSelectionService(
	filter *FilterEngine,
	selections repository.SelectionRepository,
	companies repository.CompanyRepository,
	historyLimit int,
	logger *logrus.Logger,
) *SelectionService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &SelectionService{
		filter:       filter,
		selections:   selections,
		companies:    companies,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// CreateSelection runs the filter pipeline and stores the survivors as the new active selection base.
// Only the primary thresholds are stored on the base; categorical filters shape membership only.
func (s *SelectionService) CreateSelection(ctx context.Context, p FilterParams) (*SelectionResult, error) {
	res, err := s.filter.Run(ctx, p)
	if err != nil {
		return nil, err
	}

	base := &model.SelectionBase{
		Name:           fmt.Sprintf("Selection Base (%d companies)", len(res.Companies)),
		MinEmployees:   p.MinEmployees,
		MinRevenue:     p.MinRevenue,
		CompaniesCount: len(res.Companies),
	}
	if p.MinProfit != nil {
		base.MinProfit = decimal.NewNullDecimal(*p.MinProfit)
	}
	if err := s.selections.CreateSelection(ctx, base, res.IDs()); err != nil {
		return nil, &PersistenceError{Op: "create selection", Err: err}
	}
	metrics.SelectionsCreated.Inc()

	s.logger.WithFields(logrus.Fields{
		"selection_id": base.ID,
		"companies":    base.CompaniesCount,
	}).Info("selection base created")
	return &SelectionResult{Selection: base, Stats: res}, nil
}

// ActiveSelection most recently created active base, ErrNoSelectionBase when none exists
func (s *SelectionService) ActiveSelection(ctx context.Context) (*model.SelectionBase, error) {
	base, err := s.selections.GetActive(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSelectionBase
	}
	if err != nil {
		return nil, err
	}
	return base, nil
}

func (s *SelectionService) GetSelection(ctx context.Context, id uint64) (*SelectionView, error) {
	base, err := s.selections.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSelectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &SelectionView{SelectionBase: base, Criteria: CriteriaLine(base)}, nil
}

// SelectionHistory newest bases first
func (s *SelectionService) SelectionHistory(ctx context.Context, limit int) ([]*SelectionView, error) {
	if limit <= 0 || limit > 100 {
		limit = s.historyLimit
	}
	bases, err := s.selections.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*SelectionView, 0, len(bases))
	for _, b := range bases {
		views = append(views, &SelectionView{SelectionBase: b, Criteria: CriteriaLine(b)})
	}
	return views, nil
}

// SelectionMembers companies stored for a base, paginated
func (s *SelectionService) SelectionMembers(ctx context.Context, id uint64, page, pageSize int) ([]*model.Company, int64, error) {
	if _, err := s.GetSelection(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.selections.ListMembers(ctx, id, page, pageSize)
}

func (s *SelectionService) CurrentSelectionInfo(ctx context.Context) (*SelectionInfo, error) {
	stats, err := s.companies.Stats(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.selections.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	info := &SelectionInfo{
		TotalCompanies:   stats.Total,
		ActiveSelections: active,
		RankedCompanies:  stats.Ranked,
	}
	base, err := s.ActiveSelection(ctx)
	switch {
	case errors.Is(err, ErrNoSelectionBase):
	case err != nil:
		return nil, err
	default:
		info.Active = &SelectionView{SelectionBase: base, Criteria: CriteriaLine(base)}
	}
	return info, nil
}

// CriteriaLine e.g. "Працівників ≥ 50 | Дохід ≥ 1 000 000"
func CriteriaLine(b *model.SelectionBase) string {
	var parts []string
	if b.MinEmployees > 0 {
		parts = append(parts, fmt.Sprintf("Працівників ≥ %d", b.MinEmployees))
	}
	if b.MinRevenue.IsPositive() {
		parts = append(parts, "Дохід ≥ "+groupThousands(b.MinRevenue))
	}
	if b.MinProfit.Valid {
		parts = append(parts, "Прибуток ≥ "+groupThousands(b.MinProfit.Decimal))
	}
	if len(parts) == 0 {
		return "Без критеріїв"
	}
	return strings.Join(parts, " | ")
}

// groupThousands whole part with space separated thousands
func groupThousands(d decimal.Decimal) string {
	s := d.Round(0).Abs().String()
	var b strings.Builder
	if d.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
