package dto

// CategoryDTO 分类
type CategoryDTO struct {
	ID          uint64 `json:"id"`
	Param       string `json:"param"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	Trusted     bool   `json:"trusted"`
}

// CategoryBaseDTO 分类 - 新增或修改
type CategoryBaseDTO struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=255"`
	Trusted     *bool  `json:"trusted"`
}

// CategoryMoveDTO 分类排序, Direction 与 Position 二选一
type CategoryMoveDTO struct {
	Direction string `json:"direction" validate:"omitempty,oneof=up down"`
	Position  int    `json:"position" validate:"omitempty,min=1"`
}
