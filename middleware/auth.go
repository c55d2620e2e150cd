package middleware

import (
	"Formpay/pkg/context"
	"Formpay/pkg/jwt"
	"Formpay/pkg/log"
	"Formpay/pkg/response"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rotateBuffer 临近过期时在响应头下发新 token
const rotateBuffer = 5 * time.Minute

func Auth(secret []byte, expire time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, "缺少 Authorization")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Abort(c, http.StatusUnauthorized, "Authorization 格式错误")
			return
		}

		claims, err := jwt.ParseToken(secret, jwt.TypeAccess, parts[1])
		if err != nil {
			log.L.Debug("invalid access token", zap.Error(err))
			response.Abort(c, http.StatusUnauthorized, "token 无效或已过期")
			return
		}
		if jwt.ShouldRotate(claims, rotateBuffer) {
			if newToken, err := jwt.GenerateToken(secret, claims.OpenID, jwt.TypeAccess, expire); err == nil {
				c.Header("X-New-Access-Token", newToken)
			}
		}
		c.Set(context.CtxOpenID, claims.OpenID)

		c.Next()
	}
}
