package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"doha-explorer/config"
	"doha-explorer/identity"
)

const ContextKeyUserID = "user_id"

// TokenParser 는 ID 토큰을 검증한다. identity.Verifier 가 구현한다.
type TokenParser interface {
	Parse(token string) (*identity.Identity, error)
}

// BearerAuth 는 Authorization 헤더의 ID 토큰을 검증하고 user_id 를 컨텍스트에 저장한다.
//
// required 가 false 이면 헤더가 없는 익명 요청을 통과시킨다.
// 헤더가 있는데 유효하지 않으면 required 와 관계 없이 401 을 반환한다.
func BearerAuth(parser TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractBearerToken(c)
		if errors.Is(err, ErrMissingHeader) && !required {
			c.Next()
			return
		}
		if err != nil {
			AbortWithUnauthorized(c, err)
			return
		}
		if parser == nil {
			AbortWithUnauthorized(c, ErrInvalidToken)
			return
		}

		id, err := parser.Parse(token)
		if err != nil {
			config.WarnWithFields("id token rejected", config.Fields{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			AbortWithUnauthorized(c, ErrInvalidToken)
			return
		}

		c.Set(ContextKeyUserID, id.UserID)
		c.Next()
	}
}
