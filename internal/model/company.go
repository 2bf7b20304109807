package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSource provenance tag for rows coming from the primary registry export
const DefaultSource = "основний"

// Company one row per business entity, keyed by the registry identifier (EDRPOU)
type Company struct {
	ID              uint64  `gorm:"column:id;primaryKey;autoIncrement;comment:surrogate id" json:"id"`
	Edrpou          string  `gorm:"column:edrpou;type:varchar(16);uniqueIndex;not null;comment:registry identifier" json:"edrpou"`
	Name            string  `gorm:"column:name;type:text;not null;comment:display name" json:"name"`
	KvedCode        *string `gorm:"column:kved_code;type:varchar(16);index;comment:industry classification code" json:"kved_code"`
	KvedDescription *string `gorm:"column:kved_description;type:text;comment:industry classification description" json:"kved_description"`
	RegionName      *string `gorm:"column:region_name;type:varchar(100);index;comment:region" json:"region_name"`
	Phone           *string `gorm:"column:phone;type:text" json:"phone"`
	Address         *string `gorm:"column:address;type:text" json:"address"`

	Personnel   *int                `gorm:"column:personnel;comment:head-count" json:"personnel"`
	Revenue     decimal.NullDecimal `gorm:"column:revenue;type:numeric(15,2);comment:net revenue" json:"revenue"`
	Profit      decimal.NullDecimal `gorm:"column:profit;type:numeric(15,2);comment:net financial result" json:"profit"`
	CompanySize *string             `gorm:"column:company_size;type:varchar(50);comment:size class label" json:"company_size"`

	// actualization fields
	FirstName           *string             `gorm:"column:first_name;type:text" json:"first_name"`
	MiddleName          *string             `gorm:"column:middle_name;type:text" json:"middle_name"`
	LastName            *string             `gorm:"column:last_name;type:text" json:"last_name"`
	WorkPhone           *string             `gorm:"column:work_phone;type:text" json:"work_phone"`
	CorporateSite       *string             `gorm:"column:corporate_site;type:text" json:"corporate_site"`
	WorkEmail           *string             `gorm:"column:work_email;type:text" json:"work_email"`
	CompanyStatus       *string             `gorm:"column:company_status;type:text" json:"company_status"`
	Director            *string             `gorm:"column:director;type:text" json:"director"`
	GovernmentPurchases decimal.NullDecimal `gorm:"column:government_purchases;type:numeric(15,2)" json:"government_purchases"`
	TenderCount         *int                `gorm:"column:tender_count" json:"tender_count"`
	Initials            *string             `gorm:"column:initials;type:text" json:"initials"`

	Source     string `gorm:"column:source;type:varchar(100);not null;comment:provenance tag" json:"source"`
	Actualized bool   `gorm:"column:actualized;type:boolean;not null;comment:touched by an actualization pass" json:"actualized"`

	// current rank, reflects only the most recent ranking run
	Ranking         *int    `gorm:"column:ranking;index;comment:current rank position" json:"ranking"`
	RankingCriteria *string `gorm:"column:ranking_criteria;type:varchar(200);comment:current rank criteria label" json:"ranking_criteria"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string { return "companies" }

// RevenueOrZero null revenue counts as zero for ordering
func (c *Company) RevenueOrZero() decimal.Decimal {
	if c.Revenue.Valid {
		return c.Revenue.Decimal
	}
	return decimal.Zero
}

// ProfitOrZero null profit counts as zero for ordering
func (c *Company) ProfitOrZero() decimal.Decimal {
	if c.Profit.Valid {
		return c.Profit.Decimal
	}
	return decimal.Zero
}

// PersonnelOrZero null head-count counts as zero for ordering
func (c *Company) PersonnelOrZero() int {
	if c.Personnel != nil {
		return *c.Personnel
	}
	return 0
}

// HasRegion blank region names are treated as missing
func (c *Company) HasRegion() bool {
	return c.RegionName != nil && strings.TrimSpace(*c.RegionName) != ""
}

// Kved industry code or "" when missing
func (c *Company) Kved() string {
	if c.KvedCode == nil {
		return ""
	}
	return *c.KvedCode
}
