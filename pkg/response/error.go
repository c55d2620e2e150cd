package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码
const (
	CodeOK             = 0
	CodeInvalidParams  = 40000
	CodeUnauthorized   = 40100
	CodeNotFound       = 40400
	CodePayRejected    = 40200
	CodeInternal       = 50000
	CodeGatewayTimeout = 50400
)

type BizError struct {
	Code int
	Msg  string
	Data any // 可选的结构化错误详情
}

func (e *BizError) Error() string {
	return e.Msg
}

func NewError(code int, msg string) *BizError {
	return &BizError{
		Code: code,
		Msg:  msg,
	}
}

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code: CodeOK,
		Msg:  "success",
		Data: data,
	})
}

func Fail(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code: code,
		Msg:  msg,
	})
}

// FailWith 错误响应附带 data
func FailWith(c *gin.Context, be *BizError) {
	c.JSON(http.StatusOK, Response{
		Code: be.Code,
		Msg:  be.Msg,
		Data: be.Data,
	})
}

func Abort(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code: httpStatus,
		Msg:  msg,
		Data: nil,
	})
}
