package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/util"

	"github.com/jinzhu/copier"
)

func toExchangeDTO(e *model.Exchange, workSafe bool) (*dto.ExchangeDTO, error) {
	out := &dto.ExchangeDTO{}
	if err := copier.Copy(out, e); err != nil {
		return nil, err
	}
	out.Kind = string(e.Kind)
	out.Param = util.ResourceParam(e.ID, e.Title, workSafe)
	if e.Category != nil {
		out.Category = &dto.CategoryDTO{}
		if err := copier.Copy(out.Category, e.Category); err != nil {
			return nil, err
		}
		out.Category.Param = util.ResourceParam(e.Category.ID, e.Category.Name, workSafe)
	}
	return out, nil
}

func toPostDTOs(posts []*model.Post) ([]*dto.PostDTO, error) {
	out := make([]*dto.PostDTO, 0, len(posts))
	if err := copier.Copy(&out, &posts); err != nil {
		return nil, err
	}
	return out, nil
}

func toUserDTOs(users []*model.User) []*dto.UserDTO {
	out := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, &dto.UserDTO{ID: u.ID, Username: u.Username})
	}
	return out
}
