package repository

import (
	"context"
	"fmt"

	"CompanyRank/internal/model"

	"gorm.io/gorm"
)

// membershipChunk join rows per INSERT statement
const membershipChunk = 1000

// SelectionRepository selection bases and their membership
type SelectionRepository interface {
	// CreateSelection deactivates every selection base, inserts base as the active one
	// and records companyIDs as its members, in one transaction
	CreateSelection(ctx context.Context, base *model.SelectionBase, companyIDs []uint64) error
	GetActive(ctx context.Context) (*model.SelectionBase, error)
	GetByID(ctx context.Context, id uint64) (*model.SelectionBase, error)
	ListRecent(ctx context.Context, limit int) ([]*model.SelectionBase, error)
	ListMembers(ctx context.Context, selectionID uint64, page, pageSize int) ([]*model.Company, int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type selectionRepository struct {
	db *gorm.DB
}

func NewSelectionRepository(db *gorm.DB) SelectionRepository {
	return &selectionRepository{db: db}
}

func (r *selectionRepository) CreateSelection(ctx context.Context, base *model.SelectionBase, companyIDs []uint64) error {
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

	// 1. only the new base stays active
	if err := tx.Model(&model.SelectionBase{}).
		Where("is_active = ?", true).
		UpdateColumn("is_active", false).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("deactivate selection bases: %w", err)
	}

	// 2. the base itself
	base.IsActive = true
	if err := tx.Create(base).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("create selection base: %w", err)
	}

	// 3. membership
	if len(companyIDs) > 0 {
		members := make([]*model.SelectionCompany, 0, len(companyIDs))
		for _, id := range companyIDs {
			members = append(members, &model.SelectionCompany{SelectionBaseID: base.ID, CompanyID: id})
		}
		if err := tx.CreateInBatches(members, membershipChunk).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("save selection members: %w, selection_base_id: %d", err, base.ID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *selectionRepository) GetActive(ctx context.Context) (*model.SelectionBase, error) {
	var sb model.SelectionBase
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").Order("id DESC").
		First(&sb).Error; err != nil {
		return nil, err
	}
	return &sb, nil
}

func (r *selectionRepository) GetByID(ctx context.Context, id uint64) (*model.SelectionBase, error) {
	var sb model.SelectionBase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sb).Error; err != nil {
		return nil, err
	}
	return &sb, nil
}

func (r *selectionRepository) ListRecent(ctx context.Context, limit int) ([]*model.SelectionBase, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []*model.SelectionBase
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *selectionRepository) ListMembers(ctx context.Context, selectionID uint64, page, pageSize int) ([]*model.Company, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.Company{}).
		Joins("JOIN selection_companies ON selection_companies.company_id = companies.id").
		Where("selection_companies.selection_base_id = ?", selectionID)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.Company
	if err := db.Select("companies.*").Order(registryOrder).Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *selectionRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.SelectionBase{}).Where("is_active = ?", true).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
