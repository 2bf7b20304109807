package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SortCriteria metric a ranking is ordered by
type SortCriteria string

const (
	SortByRevenue   SortCriteria = "revenue"
	SortByProfit    SortCriteria = "profit"
	SortByPersonnel SortCriteria = "personnel"
)

// Label human-readable criteria name stored on companies and history rows
func (c SortCriteria) Label() string {
	switch c {
	case SortByRevenue:
		return "Чистий дохід від реалізації"
	case SortByProfit:
		return "Чистий фінансовий результат"
	case SortByPersonnel:
		return "Кількість працівників"
	}
	return string(c)
}

// SortOrder direction of a ranking
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// Ranking one ranking run. Immutable apart from IsActive.
// The categorical filters are recorded for display; they are not reapplied on later runs.
type Ranking struct {
	ID              uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunUUID         string           `gorm:"column:run_uuid;type:varchar(64);uniqueIndex;not null" json:"run_uuid"`
	Name            string           `gorm:"column:name;type:varchar(255);not null;index" json:"name"`
	SelectionBaseID uint64           `gorm:"column:selection_base_id;not null;index" json:"selection_base_id"`
	SortCriteria    SortCriteria     `gorm:"column:sort_criteria;type:varchar(50);not null" json:"sort_criteria"`
	SortOrder       SortOrder        `gorm:"column:sort_order;type:varchar(8);not null" json:"sort_order"`
	CriteriaLabel   string           `gorm:"column:criteria_label;type:varchar(200);not null" json:"criteria_label"`
	SourceLabel     string           `gorm:"column:source_label;type:varchar(100);not null" json:"source_label"`
	RegionFilters   datatypes.JSON   `gorm:"column:region_filters" json:"region_filters"`
	KvedFilters     datatypes.JSON   `gorm:"column:kved_filters" json:"kved_filters"`
	SizeFilters     datatypes.JSON   `gorm:"column:size_filters" json:"size_filters"`
	CompaniesCount  int              `gorm:"column:companies_count;not null" json:"companies_count"`
	IsActive        bool             `gorm:"column:is_active;type:boolean;not null" json:"is_active"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	Companies       []RankingCompany `gorm:"foreignKey:RankingID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Ranking) TableName() string { return "rankings" }

// RankingCompany position of one company inside one ranking run
type RankingCompany struct {
	ID        uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RankingID uint64              `gorm:"column:ranking_id;not null;uniqueIndex:uq_ranking_position;uniqueIndex:uq_ranking_company" json:"ranking_id"`
	CompanyID uint64              `gorm:"column:company_id;not null;uniqueIndex:uq_ranking_company" json:"company_id"`
	Position  int                 `gorm:"column:position;not null;uniqueIndex:uq_ranking_position" json:"position"`
	SortValue decimal.NullDecimal `gorm:"column:sort_value;type:numeric(15,2)" json:"sort_value"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RankingCompany) TableName() string { return "ranking_companies" }

// CompanyRankingHistory append-only audit row; outlives the ranking it came from
type CompanyRankingHistory struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CompanyID       uint64    `gorm:"column:company_id;not null;uniqueIndex:uq_company_ranking_history" json:"company_id"`
	RankingName     string    `gorm:"column:ranking_name;type:varchar(200);not null;uniqueIndex:uq_company_ranking_history" json:"ranking_name"`
	RankingPosition int       `gorm:"column:ranking_position;not null" json:"ranking_position"`
	RankingCriteria string    `gorm:"column:ranking_criteria;type:varchar(200);not null;uniqueIndex:uq_company_ranking_history" json:"ranking_criteria"`
	SourceName      string    `gorm:"column:source_name;type:varchar(100);not null" json:"source_name"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (CompanyRankingHistory) TableName() string { return "company_ranking_history" }

// All models in migration order
func All() []interface{} {
	return []interface{}{
		&Company{},
		&SelectionBase{},
		&SelectionCompany{},
		&Ranking{},
		&RankingCompany{},
		&CompanyRankingHistory{},
	}
}
