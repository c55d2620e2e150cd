package context

import (
	"Formpay/pkg/log"
	"Formpay/pkg/response"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CtxOpenID = "openid"
	// CtxBizCode 非 0 业务码，供指标中间件读取
	CtxBizCode = "biz_code"
)

type HandlerFunc func(*gin.Context) error

func Wrap(h func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {

			// 如果已经写过响应，直接返回
			if c.Writer.Written() {
				return
			}
			// 业务错误
			var be *response.BizError
			if errors.As(err, &be) {
				c.Set(CtxBizCode, be.Code)
				response.FailWith(c, be)
				return
			}
			c.Set(CtxBizCode, response.CodeInternal)
			log.L.Error("unhandled handler error", zap.String("path", c.FullPath()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, response.Response{
				Code: response.CodeInternal,
				Msg:  "系统异常",
			})
		}
	}
}

func GetOpenID(c *gin.Context) (string, error) {
	v := c.GetString(CtxOpenID)
	if v == "" {
		return "", errors.New("openid 不存在")
	}
	return v, nil
}
