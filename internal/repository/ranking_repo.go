package repository

import (
	"context"
	"fmt"
	"sync"

	"CompanyRank/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	entryChunk = 500

	// rankingLockKey pg_advisory_xact_lock key shared by every process writing rankings
	rankingLockKey int64 = 0x52414e4b // "RANK"
)

// runMu serializes ranking runs inside one process; the advisory lock covers the others
var runMu sync.Mutex

// RankingRepository ranking runs, their positions and the history they append
type RankingRepository interface {
	// SaveRun persists one ranking run atomically: clears every company's current rank,
	// stores ranking and entries as the only active ranking, sets the new current ranks and appends history
	// (duplicates of company+name+criteria are skipped). entries must be in position order.
	SaveRun(ctx context.Context, ranking *model.Ranking, entries []*model.RankingCompany) error
	GetByID(ctx context.Context, id uint64) (*model.Ranking, error)
	ListRankings(ctx context.Context) ([]*model.Ranking, error)
	LatestID(ctx context.Context) (uint64, error)
	// ListRows entries joined with their companies, ordered by position
	ListRows(ctx context.Context, rankingID uint64) ([]*RankingRow, error)
	// LeaderNames name of the company at position 1, per ranking id
	LeaderNames(ctx context.Context, rankingIDs []uint64) (map[uint64]string, error)
}

// RankingRow one ranked company with its position
type RankingRow struct {
	Position      int                 `gorm:"column:position"`
	SortValue     decimal.NullDecimal `gorm:"column:sort_value"`
	model.Company `gorm:"embedded"`
}

type rankingRepository struct {
	db       *gorm.DB
	advisory bool
}

func NewRankingRepository(db *gorm.DB) RankingRepository {
	return &rankingRepository{db: db, advisory: db.Dialector.Name() == "postgres"}
}

func (r *rankingRepository) SaveRun(ctx context.Context, ranking *model.Ranking, entries []*model.RankingCompany) error {
	runMu.Lock()
	defer runMu.Unlock()

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	fail := func(step string, err error) error {
		tx.Rollback()
		return fmt.Errorf("%s: %w", step, err)
	}

	if r.advisory {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", rankingLockKey).Error; err != nil {
			return fail("acquire ranking lock", err)
		}
	}

	// 1. clear current rank store-wide
	if err := tx.Model(&model.Company{}).
		Where("ranking IS NOT NULL OR ranking_criteria IS NOT NULL").
		UpdateColumns(map[string]interface{}{"ranking": nil, "ranking_criteria": nil}).Error; err != nil {
		return fail("clear current ranks", err)
	}
	if err := tx.Model(&model.Ranking{}).Where("is_active = ?", true).UpdateColumn("is_active", false).Error; err != nil {
		return fail("deactivate rankings", err)
	}

	// 2. ranking snapshot
	ranking.CompaniesCount = len(entries)
	ranking.IsActive = true
	if err := tx.Omit("Companies").Create(ranking).Error; err != nil {
		return fail("create ranking", err)
	}
	if len(entries) == 0 {
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}
	for _, e := range entries {
		e.RankingID = ranking.ID
	}
	if err := tx.CreateInBatches(entries, entryChunk).Error; err != nil {
		return fail("create ranking entries", err)
	}

	// 3. current rank + history
	if err := tx.Exec(`UPDATE companies SET
		ranking = (SELECT rc.position FROM ranking_companies rc WHERE rc.ranking_id = ? AND rc.company_id = companies.id),
		ranking_criteria = ?
		WHERE id IN (SELECT company_id FROM ranking_companies WHERE ranking_id = ?)`,
		ranking.ID, ranking.CriteriaLabel, ranking.ID).Error; err != nil {
		return fail("set current ranks", err)
	}
	history := make([]*model.CompanyRankingHistory, 0, len(entries))
	for _, e := range entries {
		history = append(history, &model.CompanyRankingHistory{
			CompanyID:       e.CompanyID,
			RankingName:     ranking.Name,
			RankingPosition: e.Position,
			RankingCriteria: ranking.CriteriaLabel,
			SourceName:      ranking.SourceLabel,
		})
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "ranking_name"}, {Name: "ranking_criteria"}},
		DoNothing: true,
	}).CreateInBatches(history, entryChunk).Error; err != nil {
		return fail("append ranking history", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *rankingRepository) GetByID(ctx context.Context, id uint64) (*model.Ranking, error) {
	var rk model.Ranking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rk).Error; err != nil {
		return nil, err
	}
	return &rk, nil
}

func (r *rankingRepository) ListRankings(ctx context.Context) ([]*model.Ranking, error) {
	var list []*model.Ranking
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *rankingRepository) LatestID(ctx context.Context) (uint64, error) {
	var rk model.Ranking
	if err := r.db.WithContext(ctx).Select("id").Order("created_at DESC").Order("id DESC").First(&rk).Error; err != nil {
		return 0, err
	}
	return rk.ID, nil
}

func (r *rankingRepository) ListRows(ctx context.Context, rankingID uint64) ([]*RankingRow, error) {
	var rows []*RankingRow
	if err := r.db.WithContext(ctx).Table("ranking_companies").
		Select("ranking_companies.position, ranking_companies.sort_value, companies.*").
		Joins("JOIN companies ON companies.id = ranking_companies.company_id").
		Where("ranking_companies.ranking_id = ?", rankingID).
		Order("ranking_companies.position ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *rankingRepository) LeaderNames(ctx context.Context, rankingIDs []uint64) (map[uint64]string, error) {
	names := make(map[uint64]string, len(rankingIDs))
	if len(rankingIDs) == 0 {
		return names, nil
	}
	var rows []struct {
		RankingID uint64
		Name      string
	}
	if err := r.db.WithContext(ctx).Table("ranking_companies").
		Select("ranking_companies.ranking_id, companies.name").
		Joins("JOIN companies ON companies.id = ranking_companies.company_id").
		Where("ranking_companies.ranking_id IN ? AND ranking_companies.position = ?", rankingIDs, 1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.RankingID] = row.Name
	}
	return names, nil
}
