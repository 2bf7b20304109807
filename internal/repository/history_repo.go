package repository

import (
	"context"

	"CompanyRank/internal/model"

	"gorm.io/gorm"
)

// HistoryRepository read side of the ranking audit trail; rows are written by RankingRepository.SaveRun only
type HistoryRepository interface {
	ListByCompany(ctx context.Context, companyID uint64) ([]*model.CompanyRankingHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// ListByCompany newest first
func (r *historyRepository) ListByCompany(ctx context.Context, companyID uint64) ([]*model.CompanyRankingHistory, error) {
	var list []*model.CompanyRankingHistory
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
