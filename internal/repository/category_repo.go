package repository

import (
	"Agora/internal/model"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepo interface {
	ListCategories(ctx context.Context) ([]*model.Category, error)
	GetCategory(ctx context.Context, id uint64) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, id uint64, name, description string, trusted *bool) error
	SetTrusted(ctx context.Context, id uint64, trusted bool) error
	MoveCategory(ctx context.Context, id uint64, position int) error
	DeleteCategory(ctx context.Context, id uint64) error
}

type CategoryRepoImpl struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepo {
	return &CategoryRepoImpl{db: db}
}

// ListCategories 按 Position 升序返回全部分类
func (s *CategoryRepoImpl) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	result := s.db.WithContext(ctx).
		Order("position asc, id asc").
		Find(&categories)
	if result.Error != nil {
		return nil, result.Error
	}
	return categories, nil
}

func (s *CategoryRepoImpl) GetCategory(ctx context.Context, id uint64) (*model.Category, error) {
	var category model.Category
	result := s.db.WithContext(ctx).First(&category, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &category, nil
}

// CreateCategory 追加到排序末尾
func (s *CategoryRepoImpl) CreateCategory(ctx context.Context, category *model.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last []*model.Category
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("position desc").
			Limit(1).
			Find(&last).Error
		if err != nil {
			return err
		}
		category.Position = 1
		if len(last) > 0 {
			category.Position = last[0].Position + 1
		}
		return translateDuplicate(tx.Create(category).Error)
	})
}

// UpdateCategory 改名与描述; trusted 非 nil 时在同一事务中级联
func (s *CategoryRepoImpl) UpdateCategory(ctx context.Context, id uint64, name, description string, trusted *bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCategory(tx, id); err != nil {
			return err
		}
		if trusted != nil {
			if err := cascadeTrusted(tx, id, *trusted); err != nil {
				return err
			}
		}
		err := tx.Model(&model.Category{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"name":        name,
				"description": description,
			}).Error
		return translateDuplicate(err)
	})
}

// SetTrusted 在同一事务中更新分类与其全部讨论的 trusted
func (s *CategoryRepoImpl) SetTrusted(ctx context.Context, id uint64, trusted bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCategory(tx, id); err != nil {
			return err
		}
		return cascadeTrusted(tx, id, trusted)
	})
}

func lockCategory(tx *gorm.DB, id uint64) error {
	var category model.Category
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func cascadeTrusted(tx *gorm.DB, id uint64, trusted bool) error {
	err := tx.Model(&model.Category{}).
		Where("id = ?", id).
		Update("trusted", trusted).Error
	if err != nil {
		return err
	}

	err = tx.Model(&model.Exchange{}).
		Where("kind = ? AND category_id = ?", model.KindDiscussion, id).
		Update("trusted", trusted).Error
	if err != nil {
		return fmt.Errorf("cascade trusted to discussions: %w", err)
	}
	return nil
}

// MoveCategory 把分类移动到 position (从 1 开始, 越界时夹到两端), 其余分类重新连续编号
func (s *CategoryRepoImpl) MoveCategory(ctx context.Context, id uint64, position int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var categories []*model.Category
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("position asc, id asc").
			Find(&categories).Error
		if err != nil {
			return err
		}

		idx := -1
		for i, c := range categories {
			if c.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotFound
		}

		target := categories[idx]
		rest := append(categories[:idx:idx], categories[idx+1:]...)

		if position < 1 {
			position = 1
		}
		if position > len(categories) {
			position = len(categories)
		}

		ordered := make([]*model.Category, 0, len(categories))
		ordered = append(ordered, rest[:position-1]...)
		ordered = append(ordered, target)
		ordered = append(ordered, rest[position-1:]...)

		return renumber(tx, ordered)
	})
}

// DeleteCategory 仍有讨论引用时拒绝删除
func (s *CategoryRepoImpl) DeleteCategory(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.Exchange{}).
			Where("kind = ? AND category_id = ?", model.KindDiscussion, id).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrInUse
		}

		result := tx.Delete(&model.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		var categories []*model.Category
		if err = tx.Order("position asc, id asc").Find(&categories).Error; err != nil {
			return err
		}
		return renumber(tx, categories)
	})
}

func renumber(tx *gorm.DB, ordered []*model.Category) error {
	for i, c := range ordered {
		if c.Position == i+1 {
			continue
		}
		err := tx.Model(&model.Category{}).
			Where("id = ?", c.ID).
			Update("position", i+1).Error
		if err != nil {
			return err
		}
		c.Position = i + 1
	}
	return nil
}
