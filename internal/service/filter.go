package service

import (
	"context"
	"fmt"
	"strings"

	"CompanyRank/internal/metrics"
	"CompanyRank/internal/model"
	"CompanyRank/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultRegionalKvedThreshold KVED groups below this size only keep companies with a region
const DefaultRegionalKvedThreshold = 100

// FilterParams primary thresholds and secondary inclusion sets.
// Zero/negative employee and revenue thresholds, nil profit and empty sets mean "no constraint".
type FilterParams struct {
	MinEmployees       int              `json:"min_employees"`
	MinRevenue         decimal.Decimal  `json:"min_revenue"`
	MinProfit          *decimal.Decimal `json:"min_profit"`
	Regions            []string         `json:"regions"`
	Kveds              []string         `json:"industries"`
	Sizes              []string         `json:"sizes"`
	RegionalKvedFilter bool             `json:"regional_kved_filter"`
}

// FilterResult survivors of all stages plus per-stage counts
type FilterResult struct {
	Companies           []*model.Company `json:"-"`
	Stage1Count         int              `json:"stage1_count"`
	Stage2Count         int              `json:"stage2_count"`
	DroppedSecondary    int              `json:"dropped_secondary"`
	DroppedRegionalKved int              `json:"dropped_regional_kved"`
}

// IDs company ids of the survivors, in result order
func (r *FilterResult) IDs() []uint64 {
	ids := make([]uint64, 0, len(r.Companies))
	for _, c := range r.Companies {
		ids = append(ids, c.ID)
	}
	return ids
}

// FilterEngine narrows the company store in two ordered stages. Read only.
type FilterEngine struct {
	companies repository.CompanyRepository
	threshold int
	logger    *logrus.Logger
}

func NewFilterEngine(companies repository.CompanyRepository, regionalKvedThreshold int, logger *logrus.Logger) *FilterEngine {
	if regionalKvedThreshold <= 0 {
		regionalKvedThreshold = DefaultRegionalKvedThreshold
	}
	return &FilterEngine{companies: companies, threshold: regionalKvedThreshold, logger: logger}
}

// Validate checks the numeric thresholds
func (p *FilterParams) Validate() error {
	if p.MinEmployees < 0 {
		return &ValidationError{Field: "min_employees", Message: "must be >= 0"}
	}
	if p.MinRevenue.IsNegative() {
		return &ValidationError{Field: "min_revenue", Message: "must be >= 0"}
	}
	return nil
}

// Run applies stage 1 in the store and stage 2 (plus the optional regional KVED pass) in memory.
// An empty stage 1 short-circuits.
func (e *FilterEngine) Run(ctx context.Context, p FilterParams) (*FilterResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// 1. primary thresholds
	primary, err := e.companies.FindMatching(ctx, repository.CompanyQuery{
		MinEmployees: p.MinEmployees,
		MinRevenue:   p.MinRevenue,
		MinProfit:    p.MinProfit,
	})
	if err != nil {
		return nil, fmt.Errorf("primary filter: %w", err)
	}
	res := &FilterResult{Stage1Count: len(primary)}
	if len(primary) == 0 {
		e.logger.WithFields(logrus.Fields{
			"min_employees": p.MinEmployees,
			"min_revenue":   p.MinRevenue.String(),
		}).Info("no companies passed primary filtering")
		metrics.FilterRuns.WithLabelValues("empty").Inc()
		return res, nil
	}

	// 2. categorical sets
	secondary := ApplySecondary(primary, p.Regions, p.Kveds, p.Sizes)
	res.DroppedSecondary = len(primary) - len(secondary)

	// 2b. small KVED groups must be geographically anchored
	if p.RegionalKvedFilter {
		anchored := ApplyRegionalKved(secondary, e.threshold)
		res.DroppedRegionalKved = len(secondary) - len(anchored)
		secondary = anchored
	}

	res.Companies = secondary
	res.Stage2Count = len(secondary)
	metrics.FilterDropped.WithLabelValues("stage2").Add(float64(res.DroppedSecondary))
	metrics.FilterDropped.WithLabelValues("regional_kved").Add(float64(res.DroppedRegionalKved))
	if res.Stage2Count == 0 {
		metrics.FilterRuns.WithLabelValues("empty").Inc()
	} else {
		metrics.FilterRuns.WithLabelValues("matched").Inc()
	}

	e.logger.WithFields(logrus.Fields{
		"stage1":                res.Stage1Count,
		"stage2":                res.Stage2Count,
		"dropped_secondary":     res.DroppedSecondary,
		"dropped_regional_kved": res.DroppedRegionalKved,
	}).Info("filter pipeline finished")
	return res, nil
}

// ApplySecondary keeps companies whose region, KVED and size are in the given sets.
// An empty set does not constrain. Order is preserved.
func ApplySecondary(companies []*model.Company, regions, kveds, sizes []string) []*model.Company {
	regionSet, kvedSet, sizeSet := toSet(regions), toSet(kveds), toSet(sizes)
	out := make([]*model.Company, 0, len(companies))
	for _, c := range companies {
		if !inSet(regionSet, c.RegionName) || !inSet(kvedSet, c.KvedCode) || !inSet(sizeSet, c.CompanySize) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ApplyRegionalKved drops companies without a region from KVED groups smaller than threshold.
// Groups at or above threshold and companies without a KVED code pass untouched.
func ApplyRegionalKved(companies []*model.Company, threshold int) []*model.Company {
	counts := make(map[string]int)
	for _, c := range companies {
		if k := c.Kved(); k != "" {
			counts[k]++
		}
	}
	out := make([]*model.Company, 0, len(companies))
	for _, c := range companies {
		k := c.Kved()
		if k != "" && counts[k] < threshold && !c.HasRegion() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// toSet nil when no non-blank values are given
func toSet(values []string) map[string]struct{} {
	var set map[string]struct{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(values))
		}
		set[v] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, v *string) bool {
	if set == nil {
		return true
	}
	if v == nil {
		return false
	}
	_, ok := set[*v]
	return ok
}

// cleanValues trimmed non-blank values, used to normalize inclusion sets before querying
func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
