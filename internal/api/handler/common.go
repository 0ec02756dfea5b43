package handler

import (
	"Agora/internal/pkg/util"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

// paramID 解析 "id;slug" 形式的路径参数
func paramID(c *gin.Context, name string) (uint64, error) {
	id, err := util.ParseParamID(c.Param(name))
	if err != nil || id == 0 {
		return 0, service.ErrParamInvalid
	}
	return id, nil
}
