package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SelectionBase snapshot of the primary thresholds that produced a filtered set.
// At most one row is active; the active one feeds the next ranking run.
type SelectionBase struct {
	ID             uint64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name           string              `gorm:"column:name;type:varchar(255);not null" json:"name"`
	MinEmployees   int                 `gorm:"column:min_employees;not null" json:"min_employees"`
	MinRevenue     decimal.Decimal     `gorm:"column:min_revenue;type:numeric(15,2);not null" json:"min_revenue"`
	MinProfit      decimal.NullDecimal `gorm:"column:min_profit;type:numeric(15,2)" json:"min_profit"`
	CompaniesCount int                 `gorm:"column:companies_count;not null" json:"companies_count"`
	IsActive       bool                `gorm:"column:is_active;type:boolean;not null;index" json:"is_active"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (SelectionBase) TableName() string { return "selection_bases" }

// SelectionCompany membership of a company in a selection base
type SelectionCompany struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SelectionBaseID uint64    `gorm:"column:selection_base_id;not null;uniqueIndex:uq_selection_company"`
	CompanyID       uint64    `gorm:"column:company_id;not null;uniqueIndex:uq_selection_company"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SelectionCompany) TableName() string { return "selection_companies" }
