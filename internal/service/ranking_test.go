package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"CompanyRank/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSortCompanies_NullRevenueLast(t *testing.T) {
	list := []*model.Company{
		company("001", "no revenue"),
		company("002", "five hundred", revenue(500)),
		company("003", "three hundred", revenue(300)),
	}
	SortCompanies(list, model.SortByRevenue, model.SortDesc)
	assert.Equal(t, []string{"002", "003", "001"}, edrpous(list))
}

func TestSortCompanies_TiesKeepInputOrder(t *testing.T) {
	list := []*model.Company{
		company("001", "a", profit(10)),
		company("002", "b", profit(20)),
		company("003", "c", profit(10)),
		company("004", "d"),
		company("005", "e", profit(0)),
	}
	SortCompanies(list, model.SortByProfit, model.SortDesc)
	assert.Equal(t, []string{"002", "001", "003", "004", "005"}, edrpous(list))

	SortCompanies(list, model.SortByProfit, model.SortAsc)
	assert.Equal(t, []string{"004", "005", "001", "003", "002"}, edrpous(list))
}

func TestSortCompanies_Personnel(t *testing.T) {
	list := []*model.Company{
		company("001", "a", personnel(3)),
		company("002", "b"),
		company("003", "c", personnel(30)),
	}
	SortCompanies(list, model.SortByPersonnel, model.SortDesc)
	assert.Equal(t, []string{"003", "001", "002"}, edrpous(list))
}

func TestCreateRanking_ScenarioByRevenue(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.load(t,
		company("001", "A", revenue(100), personnel(5)),
		company("002", "B", revenue(50), personnel(20)),
		company("003", "C", revenue(200), personnel(1)),
	)

	sel, err := p.selections.CreateSelection(ctx, FilterParams{MinEmployees: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Selection.CompaniesCount)

	res, err := p.rankings.CreateRanking(ctx, RankRequest{
		SortCriteria: model.SortByRevenue,
		RankingName:  "ТОП за доходом",
		YearSource:   "2024",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Ranking.CompaniesCount)
	assert.Equal(t, model.SortDesc, res.Ranking.SortOrder)
	assert.Equal(t, "Чистий дохід від реалізації", res.Ranking.CriteriaLabel)
	assert.Equal(t, "Україна 2024", res.Ranking.SourceLabel)
	assert.Equal(t, sel.Selection.ID, res.Ranking.SelectionBaseID)
	assert.NotEmpty(t, res.Ranking.RunUUID)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "001", res.Rows[0].Edrpou)
	assert.Equal(t, 1, res.Rows[0].Position)
	assert.Equal(t, "002", res.Rows[1].Edrpou)
	assert.Equal(t, 2, res.Rows[1].Position)

	ranks := p.currentRanks(t)
	require.NotNil(t, ranks["001"])
	require.NotNil(t, ranks["002"])
	assert.Equal(t, 1, *ranks["001"])
	assert.Equal(t, 2, *ranks["002"])
	assert.Nil(t, ranks["003"])

	rows, err := p.rankings.RankingRows(ctx, res.Ranking.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Name)
	assert.True(t, rows[0].SortValue.Decimal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "Україна 2024", rows[1].SourceLabel)
	assert.Equal(t, 2, rows[1].TotalCount)
}

func TestCreateRanking_DensePositionsAndSortOrder(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	var rows []*model.Company
	for i := 0; i < 60; i++ {
		opts := []companyOpt{personnel(10)}
		// every seventh company has no revenue, several share a value
		if i%7 != 0 {
			opts = append(opts, revenue(int64((i*37)%11)*1000))
		}
		rows = append(rows, company(fmt.Sprintf("%08d", i), fmt.Sprintf("Co %d", i), opts...))
	}
	p.load(t, rows...)
	_, err := p.selections.CreateSelection(ctx, FilterParams{})
	require.NoError(t, err)

	res, err := p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, RankingName: "dense"})
	require.NoError(t, err)

	var entries []*model.RankingCompany
	require.NoError(t, p.db.Where("ranking_id = ?", res.Ranking.ID).Order("position").Find(&entries).Error)
	require.Len(t, entries, 60)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
	}

	for i := 0; i+1 < len(res.Rows); i++ {
		a, b := res.Rows[i], res.Rows[i+1]
		av, bv := a.Revenue.Decimal, b.Revenue.Decimal
		if !a.Revenue.Valid {
			av = decimal.Zero
		}
		if !b.Revenue.Valid {
			bv = decimal.Zero
		}
		assert.True(t, av.GreaterThanOrEqual(bv), "position %d (%s) < position %d (%s)", a.Position, av, b.Position, bv)
		if av.Equal(bv) {
			assert.Less(t, a.Edrpou, b.Edrpou, "ties ordered by registry id")
		}
	}
}

func TestCreateRanking_EmptySelection(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.load(t, company("001", "A", revenue(100)), company("002", "B", revenue(50)))

	// an earlier ranking leaves current ranks behind
	_, err := p.selections.CreateSelection(ctx, FilterParams{})
	require.NoError(t, err)
	_, err = p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, RankingName: "first"})
	require.NoError(t, err)

	sel, err := p.selections.CreateSelection(ctx, FilterParams{MinRevenue: decimal.NewFromInt(1_000_000)})
	require.NoError(t, err)
	assert.Zero(t, sel.Selection.CompaniesCount)

	res, err := p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, RankingName: "empty"})
	require.NoError(t, err)
	assert.Zero(t, res.Ranking.CompaniesCount)
	assert.Empty(t, res.Rows)

	var entries int64
	require.NoError(t, p.db.Model(&model.RankingCompany{}).Where("ranking_id = ?", res.Ranking.ID).Count(&entries).Error)
	assert.Zero(t, entries)
	for edrpou, rank := range p.currentRanks(t) {
		assert.Nil(t, rank, "company %s still ranked", edrpou)
	}
}

func TestCreateRanking_RerunKeepsHistoryUnique(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.load(t,
		company("001", "A", profit(10)),
		company("002", "B", profit(30)),
		company("003", "C", profit(20)),
	)
	_, err := p.selections.CreateSelection(ctx, FilterParams{})
	require.NoError(t, err)

	req := RankRequest{SortCriteria: model.SortByProfit, RankingName: "Q1-2025"}
	first, err := p.rankings.CreateRanking(ctx, req)
	require.NoError(t, err)

	var historyBefore int64
	require.NoError(t, p.db.Model(&model.CompanyRankingHistory{}).Count(&historyBefore).Error)
	assert.EqualValues(t, 3, historyBefore)

	second, err := p.rankings.CreateRanking(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.Ranking.ID, second.Ranking.ID)
	assert.Equal(t, first.Ranking.Name, second.Ranking.Name)

	var historyAfter, rankings int64
	require.NoError(t, p.db.Model(&model.CompanyRankingHistory{}).Count(&historyAfter).Error)
	require.NoError(t, p.db.Model(&model.Ranking{}).Count(&rankings).Error)
	assert.Equal(t, historyBefore, historyAfter)
	assert.EqualValues(t, 2, rankings)

	latest, err := p.rankings.LatestRankingID(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Ranking.ID, latest)

	list, err := p.rankings.ListRankings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Ranking.ID, list[0].ID)
	assert.Equal(t, "B", list[0].Leader)

	detail, err := p.companies.CompanyDetail(ctx, p.companyID(t, second.Rows[0].Edrpou))
	require.NoError(t, err)
	require.Len(t, detail.History, 1)
	assert.Equal(t, "Q1-2025", detail.History[0].RankingName)
	assert.Equal(t, 1, detail.History[0].RankingPosition)
}

func TestCreateRanking_ExtraFiltersReplaceCurrentRanks(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.load(t,
		company("001", "A", revenue(300), region("Київ"), size("Малі")),
		company("002", "B", revenue(200), region("Львів"), size("Малі")),
		company("003", "C", revenue(100), region("Київ"), size("Великі")),
	)
	_, err := p.selections.CreateSelection(ctx, FilterParams{})
	require.NoError(t, err)
	_, err = p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, RankingName: "all"})
	require.NoError(t, err)

	res, err := p.rankings.CreateRanking(ctx, RankRequest{
		SortCriteria: model.SortByRevenue,
		SortOrder:    model.SortAsc,
		ExtraRegions: []string{"Київ"},
		RankingName:  "kyiv",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"003", "001"}, []string{res.Rows[0].Edrpou, res.Rows[1].Edrpou})
	assert.JSONEq(t, `["Київ"]`, string(res.Ranking.RegionFilters))
	assert.JSONEq(t, `[]`, string(res.Ranking.SizeFilters))

	ranks := p.currentRanks(t)
	require.NotNil(t, ranks["003"])
	require.NotNil(t, ranks["001"])
	assert.Equal(t, 1, *ranks["003"])
	assert.Equal(t, 2, *ranks["001"])
	assert.Nil(t, ranks["002"])

	current, err := p.rankings.CurrentRanking(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"003", "001"}, edrpous(current))
}

func TestCreateRanking_FailedPersistenceLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.load(t,
		company("001", "A", revenue(100)),
		company("002", "B", revenue(200)),
	)
	_, err := p.selections.CreateSelection(ctx, FilterParams{})
	require.NoError(t, err)
	_, err = p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, RankingName: "before"})
	require.NoError(t, err)
	before := p.currentRanks(t)

	// fail the last write of the run, after ranks were cleared and re-populated
	require.NoError(t, p.db.Callback().Create().Before("gorm:create").Register("test:fail_history", func(tx *gorm.DB) {
		if tx.Statement.Table == "company_ranking_history" {
			_ = tx.AddError(errors.New("simulated write failure"))
		}
	}))
	t.Cleanup(func() { _ = p.db.Callback().Create().Remove("test:fail_history") })

	_, err = p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, SortOrder: model.SortAsc, RankingName: "after"})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	assert.Equal(t, before, p.currentRanks(t))
	var rankings int64
	require.NoError(t, p.db.Model(&model.Ranking{}).Count(&rankings).Error)
	assert.EqualValues(t, 1, rankings)
}

func TestCreateRanking_Errors(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.load(t, company("001", "A", revenue(100)))

	_, err := p.rankings.CreateRanking(ctx, RankRequest{SortCriteria: model.SortByRevenue, RankingName: "x"})
	assert.ErrorIs(t, err, ErrNoSelectionBase)

	_, err = p.selections.CreateSelection(ctx, FilterParams{})
	require.NoError(t, err)

	_, err = p.rankings.CreateRanking(ctx, RankRequest{SelectionBaseID: 999, SortCriteria: model.SortByRevenue, RankingName: "x"})
	assert.ErrorIs(t, err, ErrSelectionNotFound)

	cases := []struct {
		name  string
		req   RankRequest
		field string
	}{
		{"blank name", RankRequest{SortCriteria: model.SortByRevenue, RankingName: "   "}, "ranking_name"},
		{"unknown criteria", RankRequest{SortCriteria: "assets", RankingName: "x"}, "sort_criteria"},
		{"missing criteria", RankRequest{RankingName: "x"}, "sort_criteria"},
		{"bad order", RankRequest{SortCriteria: model.SortByRevenue, SortOrder: "up", RankingName: "x"}, "sort_order"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.rankings.CreateRanking(ctx, tc.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	_, err = p.rankings.GetRanking(ctx, 12345)
	assert.ErrorIs(t, err, ErrRankingNotFound)
}
