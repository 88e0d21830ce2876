package auth

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/members-portal/internal/account"
	"github.com/yourusername/members-portal/internal/validation"
)

// Handler は /api/auth/* の JSON ハンドラーです。
type Handler struct {
	flow *Flow
}

// NewHandler は Handler を作成します。
func NewHandler(flow *Flow) *Handler {
	return &Handler{flow: flow}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// identifier は identifier を優先し、無ければ設定された種類のフィールドを使います。
func (r loginRequest) identifier(field account.Identifier) string {
	if r.Identifier != "" {
		return r.Identifier
	}
	if field == account.IdentifierUsername {
		return r.Username
	}
	return r.Email
}

// Register は POST /api/auth/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeInvalidInput,
			"message": "username と email と password を JSON で送ってください",
		})
		return
	}

	result, err := h.flow.Register(c.Request.Context(), sessions.Default(c), validation.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resultBody(result))
}

// Login は POST /api/auth/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeInvalidInput,
			"message": "identifier と password を JSON で送ってください",
		})
		return
	}

	result, err := h.flow.Login(c.Request.Context(), sessions.Default(c), validation.LoginInput{
		Identifier: req.identifier(h.flow.LoginIdentifier()),
		Password:   req.Password,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultBody(result))
}

// Logout は POST /api/auth/logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if _, err := h.flow.Logout(sessions.Default(c)); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session は GET /api/auth/session のハンドラーです。
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, resultBody(h.flow.Check(sessions.Default(c))))
}

func resultBody(r Result) gin.H {
	body := gin.H{"state": r.State}
	if r.Username != "" {
		body["username"] = r.Username
	}
	if !r.ExpiresAt.IsZero() {
		body["expiresAt"] = r.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return body
}

func respondWithError(c *gin.Context, err error) {
	authErr := AsError(err)
	if authErr.Code == CodeInternal {
		_ = c.Error(err)
	}
	c.JSON(StatusCode(authErr.Code), gin.H{
		"code":    authErr.Code,
		"message": authErr.Message,
	})
}
