package response

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/util"
	"Agora/internal/service"
	"errors"
	log "log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Unprocessable       = 422
	InternalServerError = 500
)

// NoticeParam 重定向时附带的提示信息
const NoticeParam = "notice"

// InvalidData 校验失败时回填给表单的数据
type InvalidData struct {
	Fields []util.FieldError `json:"fields"`
	Values any               `json:"values"`
}

// Success 成功返回封装
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装, 4xx 业务码同时作为 HTTP 状态码
func Fail(c *gin.Context, businessCode int, message string) {
	status := businessCode
	if status < 400 || status > 599 {
		status = http.StatusOK
	}
	c.JSON(status, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// Invalid 422, 连同原始输入一起返回以便重新展示表单
func Invalid(c *gin.Context, verr *service.ValidationError, submitted any) {
	c.JSON(http.StatusUnprocessableEntity, dto.Response{
		Code:    Unprocessable,
		Message: verr.Error(),
		Data:    InvalidData{Fields: verr.Fields, Values: submitted},
	})
}

// RedirectWithParam 302 到当前地址, 替换 param 并附带提示
func RedirectWithParam(c *gin.Context, param, value, notice string) {
	u := *c.Request.URL
	q := u.Query()
	q.Set(param, value)
	if notice != "" {
		q.Set(NoticeParam, notice)
	}
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, u.RequestURI())
}

// RedirectWithNotice 302 到 path 并附带提示
func RedirectWithNotice(c *gin.Context, path, notice string) {
	c.Redirect(http.StatusFound, path+"?"+NoticeParam+"="+strings.ReplaceAll(notice, " ", "+"))
}

// Error 处理错误; submitted 为请求体, 仅在校验失败时回显
func Error(c *gin.Context, err error, submitted ...any) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		var values any
		if len(submitted) > 0 {
			values = submitted[0]
		}
		Invalid(c, verr, values)
		return
	}

	var rerr *service.InvalidRangeError
	if errors.As(err, &rerr) {
		RedirectWithParam(c, rerr.Param, strconv.Itoa(rerr.Suggested), rerr.Error())
		return
	}

	if errors.Is(err, service.ErrNoQuery) {
		RedirectWithNotice(c, strings.TrimSuffix(c.Request.URL.Path, "/search"), err.Error())
		return
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, "参数错误")
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "Json错误")
		return
	}

	code := service.CodeOf(err)
	if code == InternalServerError {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
		Fail(c, code, service.UnExpectedError.Error())
		return
	}
	Fail(c, code, err.Error())
}
