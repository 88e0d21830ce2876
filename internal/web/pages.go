// Package web はブラウザ向けの HTML ページ（登録・ログイン・会員ページ）を提供します。
package web

import (
	"embed"
	"html/template"
	"math/rand/v2"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/members-portal/internal/auth"
	"github.com/yourusername/members-portal/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// memberImages は会員ページでランダムに表示する画像の枚数です。
const memberImages = 3

// Templates はページテンプレートを返します。
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// Pages は HTML ページのハンドラーです。
type Pages struct {
	flow      *auth.Flow
	staticDir string
}

// NewPages は Pages を作成します。
func NewPages(flow *auth.Flow, staticDir string) *Pages {
	return &Pages{flow: flow, staticDir: staticDir}
}

// Register はページのルーティングを router に登録します。
func (p *Pages) Register(router *gin.Engine) {
	router.SetHTMLTemplate(Templates())

	router.GET("/", p.Home)
	router.GET("/createUser", p.SignupForm)
	router.POST("/submitUser", p.SubmitUser)
	router.GET("/login", p.LoginForm)
	router.POST("/loggingin", p.LoggingIn)
	router.GET("/loggedin", auth.RequireLoginOr(p.flow, redirectTo("/login")), p.LoggedIn)
	router.GET("/members", auth.RequireLoginOr(p.flow, redirectTo("/")), p.Members)
	router.GET("/logout", p.Logout)
	router.NoRoute(p.NotFound)
}

// Home は GET / のハンドラーです。
func (p *Pages) Home(c *gin.Context) {
	result := p.flow.Check(sessions.Default(c))
	c.HTML(http.StatusOK, "home", gin.H{"Authenticated": result.State == auth.StateAuthenticated})
}

// SignupForm は GET /createUser のハンドラーです。
func (p *Pages) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, "createUser", gin.H{})
}

// SubmitUser は POST /submitUser のハンドラーです。
func (p *Pages) SubmitUser(c *gin.Context) {
	in := validation.RegisterInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	}
	result, err := p.flow.Register(c.Request.Context(), sessions.Default(c), in)
	if err != nil {
		authErr := auth.AsError(err)
		if authErr.Code == auth.CodeInternal {
			_ = c.Error(err)
		}
		c.HTML(auth.StatusCode(authErr.Code), "createUser", gin.H{
			"Error":    authErr.Message,
			"Username": in.Username,
			"Email":    in.Email,
		})
		return
	}
	if result.State == auth.StateAuthenticated {
		c.Redirect(http.StatusFound, "/members")
		return
	}
	c.HTML(http.StatusOK, "message", gin.H{"Message": "successfully created user"})
}

// LoginForm は GET /login のハンドラーです。
func (p *Pages) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login", gin.H{"Field": string(p.flow.LoginIdentifier())})
}

// LoggingIn は POST /loggingin のハンドラーです。
func (p *Pages) LoggingIn(c *gin.Context) {
	field := string(p.flow.LoginIdentifier())
	identifier := c.PostForm(field)
	if identifier == "" {
		identifier = c.PostForm("identifier")
	}

	_, err := p.flow.Login(c.Request.Context(), sessions.Default(c), validation.LoginInput{
		Identifier: identifier,
		Password:   c.PostForm("password"),
	})
	if err != nil {
		authErr := auth.AsError(err)
		if authErr.Code == auth.CodeInternal {
			_ = c.Error(err)
		}
		c.HTML(auth.StatusCode(authErr.Code), "login", gin.H{
			"Error":      authErr.Message,
			"Field":      field,
			"Identifier": identifier,
		})
		return
	}
	c.Redirect(http.StatusFound, "/loggedin")
}

// LoggedIn は GET /loggedin のハンドラーです。
func (p *Pages) LoggedIn(c *gin.Context) {
	c.HTML(http.StatusOK, "message", gin.H{"Message": "You are logged in!"})
}

// Members は GET /members のハンドラーです。
func (p *Pages) Members(c *gin.Context) {
	c.HTML(http.StatusOK, "members", gin.H{
		"Username": auth.CurrentUser(c),
		"Image":    rand.IntN(memberImages) + 1,
	})
}

// Logout は GET /logout のハンドラーです。
func (p *Pages) Logout(c *gin.Context) {
	if _, err := p.flow.Logout(sessions.Default(c)); err != nil {
		_ = c.Error(err)
		c.HTML(http.StatusInternalServerError, "message", gin.H{"Message": auth.AsError(err).Message})
		return
	}
	c.HTML(http.StatusOK, "message", gin.H{"Message": "You are logged out."})
}

// NotFound は静的ファイルがあれば返し、無ければ 404 を返します。
func (p *Pages) NotFound(c *gin.Context) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		if file, ok := p.staticFile(c.Request.URL.Path); ok {
			c.File(file)
			return
		}
	}
	c.String(http.StatusNotFound, "Page not found - 404")
}

func (p *Pages) staticFile(urlPath string) (string, bool) {
	if p.staticDir == "" {
		return "", false
	}
	cleaned := path.Clean("/" + urlPath)
	file := filepath.Join(p.staticDir, filepath.FromSlash(cleaned))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}

func redirectTo(location string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, location)
	}
}
