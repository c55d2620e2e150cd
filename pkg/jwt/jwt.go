package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TypeAccess = "access"

type Claims struct {
	OpenID string `json:"openid"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

func ShouldRotate(claims *Claims, buffer time.Duration) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) <= buffer
}

func GenerateToken(secret []byte, openid string, tokenType string, expire time.Duration) (string, error) {
	claims := Claims{
		OpenID: openid,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   openid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(secret []byte, expectedType string, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != expectedType {
		return nil, errors.New("invalid token type")
	}
	if claims.OpenID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
