package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/jinzhu/copier"
)

// CategoryCache 排好序的全量分类缓存, 由 redis 实现.
// Get 同时返回当前版本号; Set 只在版本号未变时写入, Invalidate 递增版本号,
// 这样在失效之前读库的请求不会把旧列表写回缓存.
type CategoryCache interface {
	Get(ctx context.Context) ([]*model.Category, int64, bool, error)
	Set(ctx context.Context, categories []*model.Category, version int64) error
	Invalidate(ctx context.Context) error
}

type CategoryService interface {
	ListCategories(ctx context.Context, principal *model.User) ([]*dto.CategoryDTO, error)
	ViewableCategories(ctx context.Context, principal *model.User) ([]*model.Category, error)
	GetCategory(ctx context.Context, principal *model.User, id uint64) (*dto.CategoryDTO, error)
	CreateCategory(ctx context.Context, principal *model.User, in *dto.CategoryBaseDTO) (*dto.CategoryDTO, error)
	UpdateCategory(ctx context.Context, principal *model.User, id uint64, in *dto.CategoryBaseDTO) (*dto.CategoryDTO, error)
	SetTrusted(ctx context.Context, principal *model.User, id uint64, trusted bool) error
	MoveUp(ctx context.Context, principal *model.User, id uint64) error
	MoveDown(ctx context.Context, principal *model.User, id uint64) error
	InsertAt(ctx context.Context, principal *model.User, id uint64, position int) error
	DeleteCategory(ctx context.Context, principal *model.User, id uint64) error
}

type categoryServiceImpl struct {
	categoryRepo repository.CategoryRepo
	cache        CategoryCache
	search       SearchService
	policy       TrustPolicy
	workSafe     bool
}

// NewCategoryService cache 可为 nil, 此时每次直接读库; search 可为 nil, 此时不同步检索文档
func NewCategoryService(categoryRepo repository.CategoryRepo, cache CategoryCache, search SearchService, policy TrustPolicy, workSafe bool) CategoryService {
	return &categoryServiceImpl{
		categoryRepo: categoryRepo,
		cache:        cache,
		search:       search,
		policy:       policy,
		workSafe:     workSafe,
	}
}

func (s *categoryServiceImpl) ListCategories(ctx context.Context, principal *model.User) ([]*dto.CategoryDTO, error) {
	categories, err := s.ViewableCategories(ctx, principal)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CategoryDTO, 0, len(categories))
	for _, c := range categories {
		d, err := s.toDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ViewableCategories 先按 position 排序, 再过滤掉 principal 不可见的分类
func (s *categoryServiceImpl) ViewableCategories(ctx context.Context, principal *model.User) ([]*model.Category, error) {
	all, err := s.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	viewable := make([]*model.Category, 0, len(all))
	for _, c := range all {
		if s.policy.CanView(principal, c.Trusted) {
			viewable = append(viewable, c)
		}
	}
	return viewable, nil
}

func (s *categoryServiceImpl) GetCategory(ctx context.Context, principal *model.User, id uint64) (*dto.CategoryDTO, error) {
	category, err := s.categoryRepo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	if !s.policy.CanView(principal, category.Trusted) {
		return nil, ErrForbidden
	}
	return s.toDTO(category)
}

func (s *categoryServiceImpl) CreateCategory(ctx context.Context, principal *model.User, in *dto.CategoryBaseDTO) (*dto.CategoryDTO, error) {
	if err := requireModerator(principal); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, 0, in); err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if in.Trusted != nil {
		category.Trusted = *in.Trusted
	}

	if err := s.categoryRepo.CreateCategory(ctx, category); err != nil {
		return nil, mapCategoryErr(err)
	}
	s.invalidate(ctx)
	return s.toDTO(category)
}

// UpdateCategory 改名与描述; trusted 变化时与改名在同一事务中级联
func (s *categoryServiceImpl) UpdateCategory(ctx context.Context, principal *model.User, id uint64, in *dto.CategoryBaseDTO) (*dto.CategoryDTO, error) {
	if err := requireModerator(principal); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	if err = s.validate(ctx, id, in); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	var trusted *bool
	if in.Trusted != nil && *in.Trusted != category.Trusted {
		trusted = in.Trusted
	}
	if err = s.categoryRepo.UpdateCategory(ctx, id, name, in.Description, trusted); err != nil {
		return nil, mapCategoryErr(err)
	}
	category.Name = name
	category.Description = in.Description
	s.invalidate(ctx)
	if trusted != nil {
		category.Trusted = *trusted
		s.syncTrust(ctx, id, *trusted)
	}
	return s.toDTO(category)
}

func (s *categoryServiceImpl) SetTrusted(ctx context.Context, principal *model.User, id uint64, trusted bool) error {
	if err := requireModerator(principal); err != nil {
		return err
	}
	if err := s.categoryRepo.SetTrusted(ctx, id, trusted); err != nil {
		return mapCategoryErr(err)
	}
	s.invalidate(ctx)
	s.syncTrust(ctx, id, trusted)
	return nil
}

func (s *categoryServiceImpl) MoveUp(ctx context.Context, principal *model.User, id uint64) error {
	return s.moveBy(ctx, principal, id, -1)
}

func (s *categoryServiceImpl) MoveDown(ctx context.Context, principal *model.User, id uint64) error {
	return s.moveBy(ctx, principal, id, 1)
}

func (s *categoryServiceImpl) InsertAt(ctx context.Context, principal *model.User, id uint64, position int) error {
	if err := requireModerator(principal); err != nil {
		return err
	}
	if err := s.categoryRepo.MoveCategory(ctx, id, position); err != nil {
		return mapCategoryErr(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *categoryServiceImpl) DeleteCategory(ctx context.Context, principal *model.User, id uint64) error {
	if err := requireModerator(principal); err != nil {
		return err
	}
	if err := s.categoryRepo.DeleteCategory(ctx, id); err != nil {
		return mapCategoryErr(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *categoryServiceImpl) moveBy(ctx context.Context, principal *model.User, id uint64, delta int) error {
	if err := requireModerator(principal); err != nil {
		return err
	}
	category, err := s.categoryRepo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	if err = s.categoryRepo.MoveCategory(ctx, id, category.Position+delta); err != nil {
		return mapCategoryErr(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *categoryServiceImpl) allCategories(ctx context.Context) ([]*model.Category, error) {
	var version int64
	refill := false
	if s.cache != nil {
		categories, v, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.WarnContext(ctx, "category cache get failed", "err", err)
		} else {
			refill = true
		}
		if ok {
			return categories, nil
		}
		version = v
	}

	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	// 取版本号失败时不回填
	if refill {
		if err = s.cache.Set(ctx, categories, version); err != nil {
			log.WarnContext(ctx, "category cache set failed", "err", err)
		}
	}
	return categories, nil
}

func (s *categoryServiceImpl) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.WarnContext(ctx, "category cache invalidate failed", "err", err)
	}
}

// syncTrust 事务提交后才同步检索文档, 失败只记日志
func (s *categoryServiceImpl) syncTrust(ctx context.Context, id uint64, trusted bool) {
	if s.search == nil {
		return
	}
	if err := s.search.SyncCategoryTrust(ctx, id, trusted); err != nil {
		log.WarnContext(ctx, "category trust sync to search index failed", "category_id", id, "err", err)
	}
}

// validate 字段校验 + 名称唯一; selfID 为正在修改的分类
func (s *categoryServiceImpl) validate(ctx context.Context, selfID uint64, in *dto.CategoryBaseDTO) error {
	verr := &ValidationError{Fields: util.ValidateDTO(in)}
	name := strings.TrimSpace(in.Name)
	if name != "" {
		all, err := s.categoryRepo.ListCategories(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.ID != selfID && strings.EqualFold(c.Name, name) {
				verr.Add("name", "unique", "name has already been taken")
				break
			}
		}
	}
	return verr.OrNil()
}

func (s *categoryServiceImpl) toDTO(c *model.Category) (*dto.CategoryDTO, error) {
	out := &dto.CategoryDTO{}
	if err := copier.Copy(out, c); err != nil {
		return nil, err
	}
	out.Param = util.ResourceParam(c.ID, c.Name, s.workSafe)
	return out, nil
}

func requireModerator(principal *model.User) error {
	if principal == nil {
		return ErrLoginRequired
	}
	if !principal.IsModerator() || principal.IsBan {
		return ErrForbidden
	}
	return nil
}

func mapCategoryErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, repository.ErrInUse):
		return ErrCategoryInUse
	case errors.Is(err, repository.ErrDuplicate):
		verr := &ValidationError{}
		verr.Add("name", "unique", "name has already been taken")
		return verr
	}
	return err
}
