package handler

import (
	"Formpay/pkg/context"
	"Formpay/pkg/response"
	"Formpay/service"

	"github.com/gin-gonic/gin"
)

type Wechat struct {
	WeChatService service.IWeChatService
}

func (w *Wechat) RegisterRouter(r gin.IRouter) {
	wx := r.Group("/v1/wechat")
	wx.GET("/jssdk", context.Wrap(w.JSSDK))
}

// JSSDK 返回当前页面的 wx.config 参数
func (w *Wechat) JSSDK(c *gin.Context) error {
	pageURL := c.Query("url")
	if pageURL == "" {
		pageURL = c.GetHeader("Referer")
	}
	conf, err := w.WeChatService.JSSDKConfig(c.Request.Context(), pageURL)
	if err != nil {
		return bizError(err)
	}
	response.Success(c, conf)
	return nil
}
