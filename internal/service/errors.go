package service

import (
	"Agora/internal/pkg/util"
	"errors"
	"fmt"
	"strings"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Unprocessable       = 422
	InternalServerError = 500
)

var (
	ErrParamInvalid       = errors.New("invalid parameter")
	ErrLoginRequired      = errors.New("login required")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrExchangeNotFound   = errors.New("discussion not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrMembershipNotFound = errors.New("not a participant of this conversation")
	ErrNotConversation    = errors.New("not a conversation")
	ErrExchangeClosed     = errors.New("discussion is closed")
	ErrCategoryInUse      = errors.New("category still has discussions")
	ErrNoCategories       = errors.New("can't create a new discussion, no categories have been made")
	ErrNoQuery            = errors.New("no query specified")
	UnExpectedError       = errors.New("unexpected error, please try again later")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrLoginRequired:      Unauthorized,
	ErrForbidden:          Forbidden,
	ErrUserNotFound:       NotFound,
	ErrExchangeNotFound:   NotFound,
	ErrCategoryNotFound:   NotFound,
	ErrMembershipNotFound: NotFound,
	ErrNotConversation:    BadRequest,
	ErrExchangeClosed:     Forbidden,
	ErrCategoryInUse:      BadRequest,
	ErrNoCategories:       BadRequest,
	ErrNoQuery:            BadRequest,
	UnExpectedError:       InternalServerError,
}

// CodeOf 返回错误对应的业务码, 未登记的错误为 500
func CodeOf(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Unprocessable
	}
	var re *InvalidRangeError
	if errors.As(err, &re) {
		return BadRequest
	}
	for e, code := range ErrorMap {
		if errors.Is(err, e) {
			return code
		}
	}
	return InternalServerError
}

// ValidationError 字段级校验失败, 作为返回值交给调用方重新展示表单
type ValidationError struct {
	Fields []util.FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "validation failed: " + strings.Join(names, ", ")
}

// Add 追加一个字段错误
func (e *ValidationError) Add(field, rule, message string) {
	e.Fields = append(e.Fields, util.FieldError{Field: field, Rule: rule, Message: message})
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// InvalidRangeError 参数越界, Suggested 是调用方应改用的值
type InvalidRangeError struct {
	Param     string
	Value     int
	Min       int
	Max       int
	Suggested int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s=%d out of range [%d,%d]", e.Param, e.Value, e.Min, e.Max)
}
