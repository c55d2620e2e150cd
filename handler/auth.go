package handler

import (
	"Formpay/config"
	"Formpay/pkg/context"
	"Formpay/pkg/jwt"
	"Formpay/pkg/response"
	"Formpay/service"
	"Formpay/types"

	"github.com/gin-gonic/gin"
)

type Auth struct {
	Config        *config.Config
	WeChatService service.IWeChatService
}

func (u *Auth) RegisterRouter(r gin.IRouter) {
	auth := r.Group("/v1/auth")
	auth.POST("/wx-login", context.Wrap(u.Login)) // 网页授权登录
}

func (u *Auth) Login(c *gin.Context) error {
	var req types.WxLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(response.CodeInvalidParams, "code 不能为空")
	}

	identity, err := u.WeChatService.OAuthLogin(c.Request.Context(), req.Code)
	if err != nil {
		return bizError(err)
	}

	expire := u.Config.Jwt.Expire()
	token, err := jwt.GenerateToken([]byte(u.Config.Jwt.Secret), identity.OpenID, jwt.TypeAccess, expire)
	if err != nil {
		return err
	}
	response.Success(c, &types.WxLoginResponse{
		AccessToken: token,
		ExpiresIn:   int(expire.Seconds()),
		OpenID:      identity.OpenID,
		UserInfo:    identity.UserInfo,
	})
	return nil
}
