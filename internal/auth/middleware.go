package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザー名を共有するためのキーです。
const ContextUserKey = "auth.user"

// RequireLogin はログイン済みでなければ 401 を返すミドルウェアです。
func RequireLogin(flow *Flow) gin.HandlerFunc {
	return RequireLoginOr(flow, func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    CodeUnauthorized,
			"message": msgUnauthorized,
		})
	})
}

// RequireLoginOr はログイン済みでなければ deny を実行して処理を中断します。
func RequireLoginOr(flow *Flow, deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := flow.Check(sessions.Default(c))
		if result.State != StateAuthenticated {
			deny(c)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, result.Username)
		c.Next()
	}
}

// CurrentUser は RequireLogin を通過したリクエストのユーザー名を返します。
func CurrentUser(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
