package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/api/middleware"
	"Agora/internal/pkg/response"
	"Agora/internal/pkg/util"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categorySvc service.CategoryService
}

func NewCategoryHandler(categorySvc service.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categorySvc: categorySvc,
	}
}

func (s *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := s.categorySvc.ListCategories(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, categories)
}

func (s *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := paramID(c, "category")
	if err != nil {
		response.Error(c, err)
		return
	}

	category, err := s.categorySvc.GetCategory(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, category)
}

func (s *CategoryHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryBaseDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	category, err := s.categorySvc.CreateCategory(c.Request.Context(), middleware.Principal(c), &req)
	if err != nil {
		response.Error(c, err, &req)
		return
	}
	c.Header("Location", "/api/categories/"+category.Param)
	response.Success(c, category)
}

func (s *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := paramID(c, "category")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CategoryBaseDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	category, err := s.categorySvc.UpdateCategory(c.Request.Context(), middleware.Principal(c), id, &req)
	if err != nil {
		response.Error(c, err, &req)
		return
	}
	response.Success(c, category)
}

// MoveCategory direction 为 up/down, 否则按 position 插入
func (s *CategoryHandler) MoveCategory(c *gin.Context) {
	id, err := paramID(c, "category")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CategoryMoveDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if fields := util.ValidateDTO(&req); fields != nil {
		response.Invalid(c, &service.ValidationError{Fields: fields}, &req)
		return
	}

	ctx, principal := c.Request.Context(), middleware.Principal(c)
	switch {
	case req.Direction == "up":
		err = s.categorySvc.MoveUp(ctx, principal, id)
	case req.Direction == "down":
		err = s.categorySvc.MoveDown(ctx, principal, id)
	case req.Position > 0:
		err = s.categorySvc.InsertAt(ctx, principal, id, req.Position)
	default:
		err = service.ErrParamInvalid
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := paramID(c, "category")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.categorySvc.DeleteCategory(c.Request.Context(), middleware.Principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
