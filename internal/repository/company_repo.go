package repository

import (
	"context"
	"fmt"
	"strings"

	"CompanyRank/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertChunk rows per INSERT statement during bulk loads
const upsertChunk = 500

// registryOrder numeric order of the digit-only registry ids without casting
const registryOrder = "LENGTH(companies.edrpou) ASC, companies.edrpou ASC"

// nullableColumns updated only when the incoming value is not NULL
var nullableColumns = []string{
	"kved_code", "kved_description", "region_name", "phone", "address",
	"personnel", "revenue", "profit", "company_size",
	"first_name", "middle_name", "last_name", "work_phone", "corporate_site", "work_email",
	"company_status", "director", "government_purchases", "tender_count", "initials",
}

// distinctColumns columns exposed as filter options
var distinctColumns = map[string]bool{
	"region_name":  true,
	"kved_code":    true,
	"company_size": true,
}

// CompanyRepository company store
type CompanyRepository interface {
	// UpsertCompanies inserts new registry ids and merges non-null fields into existing ones.
	// Each chunk commits on its own.
	UpsertCompanies(ctx context.Context, companies []*model.Company) (int, error)
	GetByID(ctx context.Context, id uint64) (*model.Company, error)
	GetByEdrpou(ctx context.Context, edrpou string) (*model.Company, error)
	ListCompanies(ctx context.Context, filter CompanyFilter, page, pageSize int) ([]*model.Company, int64, error)
	// FindMatching returns every company matching q, ordered by registry id as a number
	FindMatching(ctx context.Context, q CompanyQuery) ([]*model.Company, error)
	DistinctValues(ctx context.Context, column string) ([]string, error)
	ListCurrentRanked(ctx context.Context) ([]*model.Company, error)
	Stats(ctx context.Context) (*CompanyStats, error)
	TopKvedGroups(ctx context.Context, limit int) ([]KvedGroup, error)
}

// CompanyFilter list page filter
type CompanyFilter struct {
	Search     string // name or registry id prefix
	Region     string
	Kved       string
	Size       string
	RankedOnly bool
}

// CompanyQuery numeric thresholds plus categorical inclusion sets, ANDed together.
// Zero thresholds, nil MinProfit and empty sets add no condition.
type CompanyQuery struct {
	MinEmployees int
	MinRevenue   decimal.Decimal
	MinProfit    *decimal.Decimal
	Regions      []string
	Kveds        []string
	Sizes        []string
}

// CompanyStats dashboard counters
type CompanyStats struct {
	Total      int64 `json:"total_companies"`
	Regions    int64 `json:"total_regions"`
	Kveds      int64 `json:"total_kved"`
	Actualized int64 `json:"actualized_companies"`
	Ranked     int64 `json:"ranked_companies"`
}

// KvedGroup company count per industry code
type KvedGroup struct {
	KvedCode        string `json:"kved_code"`
	KvedDescription string `json:"kved_description"`
	Total           int64  `json:"total_count"`
	Actualized      int64  `json:"actualized_count"`
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) UpsertCompanies(ctx context.Context, companies []*model.Company) (int, error) {
	if len(companies) == 0 {
		return 0, nil
	}
	set := make(clause.Set, 0, len(nullableColumns)+4)
	set = append(set,
		clause.Assignment{Column: clause.Column{Name: "name"}, Value: gorm.Expr("excluded.name")},
		// the default tag is an insert-time value and never overwrites an existing one
		clause.Assignment{Column: clause.Column{Name: "source"}, Value: gorm.Expr("COALESCE(NULLIF(excluded.source, ?), companies.source)", model.DefaultSource)},
		clause.Assignment{Column: clause.Column{Name: "actualized"}, Value: gorm.Expr("excluded.actualized OR companies.actualized")},
		clause.Assignment{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
	)
	for _, col := range nullableColumns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, companies.%s)", col, col)),
		})
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "edrpou"}},
		DoUpdates: set,
	}

	written := 0
	for start := 0; start < len(companies); start += upsertChunk {
		end := start + upsertChunk
		if end > len(companies) {
			end = len(companies)
		}
		chunk := companies[start:end]
		if err := r.db.WithContext(ctx).Clauses(onConflict).Create(&chunk).Error; err != nil {
			return written, fmt.Errorf("upsert companies %d-%d: %w", start, end, err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (r *companyRepository) GetByID(ctx context.Context, id uint64) (*model.Company, error) {
	var c model.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepository) GetByEdrpou(ctx context.Context, edrpou string) (*model.Company, error) {
	var c model.Company
	if err := r.db.WithContext(ctx).Where("edrpou = ?", edrpou).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepository) ListCompanies(ctx context.Context, filter CompanyFilter, page, pageSize int) ([]*model.Company, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.Company{})
	if filter.Search != "" {
		search := likeEscaper.Replace(filter.Search)
		db = db.Where(`name LIKE ? ESCAPE '\' OR edrpou LIKE ? ESCAPE '\'`, "%"+search+"%", search+"%")
	}
	if filter.Region != "" {
		db = db.Where("region_name = ?", filter.Region)
	}
	if filter.Kved != "" {
		db = db.Where("kved_code = ?", filter.Kved)
	}
	if filter.Size != "" {
		db = db.Where("company_size = ?", filter.Size)
	}
	if filter.RankedOnly {
		db = db.Where("ranking IS NOT NULL")
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.Company
	if err := db.Order("name ASC").Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *companyRepository) FindMatching(ctx context.Context, q CompanyQuery) ([]*model.Company, error) {
	db := applyCompanyQuery(r.db.WithContext(ctx).Model(&model.Company{}), q)
	var list []*model.Company
	if err := db.Order(registryOrder).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func applyCompanyQuery(db *gorm.DB, q CompanyQuery) *gorm.DB {
	if q.MinEmployees > 0 {
		db = db.Where("personnel >= ?", q.MinEmployees)
	}
	if q.MinRevenue.IsPositive() {
		db = db.Where("revenue >= ?", q.MinRevenue)
	}
	if q.MinProfit != nil {
		db = db.Where("profit >= ?", *q.MinProfit)
	}
	if len(q.Regions) > 0 {
		db = db.Where("region_name IN ?", q.Regions)
	}
	if len(q.Kveds) > 0 {
		db = db.Where("kved_code IN ?", q.Kveds)
	}
	if len(q.Sizes) > 0 {
		db = db.Where("company_size IN ?", q.Sizes)
	}
	return db
}

func (r *companyRepository) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if !distinctColumns[column] {
		return nil, fmt.Errorf("column %q is not a filter option", column)
	}
	var values []string
	if err := r.db.WithContext(ctx).Model(&model.Company{}).
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (r *companyRepository) ListCurrentRanked(ctx context.Context) ([]*model.Company, error) {
	var list []*model.Company
	if err := r.db.WithContext(ctx).
		Where("ranking IS NOT NULL").
		Order("ranking ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *companyRepository) Stats(ctx context.Context) (*CompanyStats, error) {
	var s CompanyStats
	db := r.db.WithContext(ctx).Model(&model.Company{})
	if err := db.Session(&gorm.Session{}).Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("region_name IS NOT NULL").Distinct("region_name").Count(&s.Regions).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("kved_code IS NOT NULL").Distinct("kved_code").Count(&s.Kveds).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("actualized = ?", true).Count(&s.Actualized).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("ranking IS NOT NULL").Count(&s.Ranked).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *companyRepository) TopKvedGroups(ctx context.Context, limit int) ([]KvedGroup, error) {
	if limit <= 0 {
		limit = 10
	}
	var groups []KvedGroup
	if err := r.db.WithContext(ctx).Model(&model.Company{}).
		Select("kved_code, MAX(kved_description) AS kved_description, COUNT(*) AS total, " +
			"SUM(CASE WHEN actualized THEN 1 ELSE 0 END) AS actualized").
		Where("kved_code IS NOT NULL").
		Group("kved_code").
		Order("total DESC").
		Order("kved_code ASC").
		Limit(limit).
		Scan(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
