package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/api/middleware"
	"Agora/internal/model"
	"Agora/internal/pkg/response"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type ExchangeHandler struct {
	exchangeSvc service.ExchangeService
}

func NewExchangeHandler(exchangeSvc service.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{
		exchangeSvc: exchangeSvc,
	}
}

func (s *ExchangeHandler) ListDiscussions(c *gin.Context) {
	var q dto.ListQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.exchangeSvc.ListViewable(c.Request.Context(), middleware.Principal(c), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ExchangeHandler) ListPopular(c *gin.Context) {
	var q dto.ListQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.exchangeSvc.ListPopular(c.Request.Context(), middleware.Principal(c), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ExchangeHandler) ListFavorites(c *gin.Context) {
	var q dto.ListQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.exchangeSvc.ListFavorites(c.Request.Context(), middleware.Principal(c), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ExchangeHandler) ListFollowing(c *gin.Context) {
	var q dto.ListQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.exchangeSvc.ListFollowing(c.Request.Context(), middleware.Principal(c), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ExchangeHandler) ListConversations(c *gin.Context) {
	var q dto.ListQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.exchangeSvc.ListConversations(c.Request.Context(), middleware.Principal(c), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ExchangeHandler) SearchExchanges(c *gin.Context) {
	var q dto.SearchQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	list, err := s.exchangeSvc.SearchExchanges(c.Request.Context(), middleware.Principal(c), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ExchangeHandler) SearchPosts(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var q dto.SearchQueryDTO
	if err = c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	posts, err := s.exchangeSvc.SearchPosts(c.Request.Context(), middleware.Principal(c), id, &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}

func (s *ExchangeHandler) GetExchange(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var q dto.ShowQueryDTO
	if err = c.ShouldBindQuery(&q); err != nil {
		response.Error(c, err)
		return
	}

	show, err := s.exchangeSvc.GetExchange(c.Request.Context(), middleware.Principal(c), id, &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, show)
}

func (s *ExchangeHandler) GetExchangeForEdit(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	edit, err := s.exchangeSvc.GetExchangeForEdit(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, edit)
}

func (s *ExchangeHandler) CreateDiscussion(c *gin.Context) {
	s.create(c, model.KindDiscussion)
}

func (s *ExchangeHandler) CreateConversation(c *gin.Context) {
	s.create(c, model.KindConversation)
}

func (s *ExchangeHandler) create(c *gin.Context, kind model.ExchangeKind) {
	var req dto.ExchangeCreateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	req.Type = string(kind)

	exchange, err := s.exchangeSvc.CreateExchange(c.Request.Context(), middleware.Principal(c), &req)
	if err != nil {
		response.Error(c, err, &req)
		return
	}
	c.Header("Location", locationOf(exchange))
	response.Success(c, exchange)
}

func (s *ExchangeHandler) UpdateExchange(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExchangeUpdateDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	exchange, err := s.exchangeSvc.UpdateExchange(c.Request.Context(), middleware.Principal(c), id, &req)
	if err != nil {
		response.Error(c, err, &req)
		return
	}
	c.Header("Location", locationOf(exchange))
	response.Success(c, exchange)
}

func (s *ExchangeHandler) CreatePost(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PostCreateDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	post, err := s.exchangeSvc.CreatePost(c.Request.Context(), middleware.Principal(c), id, &req)
	if err != nil {
		response.Error(c, err, &req)
		return
	}
	response.Success(c, post)
}

// DefineRelationship 关注/收藏及其取消
func (s *ExchangeHandler) DefineRelationship(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RelationshipDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	err = s.exchangeSvc.DefineRelationship(c.Request.Context(), middleware.Principal(c), id, req.Kind, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ExchangeHandler) MarkAsRead(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.exchangeSvc.MarkAsRead(c.Request.Context(), middleware.Principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ExchangeHandler) ListParticipants(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	users, err := s.exchangeSvc.ListParticipants(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}

func (s *ExchangeHandler) InviteParticipants(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.InviteDTO
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := s.exchangeSvc.InviteParticipants(c.Request.Context(), middleware.Principal(c), id, req.Username)
	if err != nil {
		response.Error(c, err, &req)
		return
	}
	response.Success(c, result)
}

// RemoveParticipant 当前用户退出会话
func (s *ExchangeHandler) RemoveParticipant(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.exchangeSvc.RemoveParticipant(c.Request.Context(), middleware.Principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func locationOf(exchange *dto.ExchangeDTO) string {
	if exchange.Kind == string(model.KindConversation) {
		return "/api/conversations/" + exchange.Param
	}
	return "/api/discussions/" + exchange.Param
}
