package router

import (
	"io/fs"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"grumblr/internal/config"
	"grumblr/internal/feed"
	"grumblr/internal/handlers"
	"grumblr/internal/middleware"
	"grumblr/internal/realtime"
	"grumblr/internal/render"
	"grumblr/internal/store"
	"grumblr/web"
)

const sessionName = "grumblr_session"

// Deps 路由需要的全部依赖
type Deps struct {
	Config   *config.Config
	Log      zerolog.Logger
	Store    *store.Store
	Feed     *feed.Service
	Renderer *render.Renderer
	Hub      *realtime.Hub
	Mailer   handlers.Mailer
	Captcha  handlers.Captcha
}

// NewEngine builds the gin engine with sessions, templates, static assets and all routes
func NewEngine(deps Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.RequestLogger(deps.Log))

	sessionStore := cookie.NewStore([]byte(deps.Config.Server.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		Secure:   !deps.Config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, sessionStore))

	pages, err := render.Pages()
	if err != nil {
		return nil, err
	}
	r.HTMLRender = pages

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", http.FS(static))

	r.Use(middleware.LoadUser(deps.Store))

	RegisterRoutes(r, deps)
	return r, nil
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	// Handlers
	cfg := deps.Config
	authHandler := handlers.NewAuthHandler(deps.Store, deps.Mailer, deps.Captcha, cfg.Server.SiteURL, deps.Log)
	if cfg.Google.Enabled() {
		authHandler.EnableGoogle(cfg.Google)
	}
	streamHandler := handlers.NewStreamHandler(deps.Store, deps.Feed, deps.Renderer, deps.Hub, cfg.Stream.PageSize, deps.Log)
	profileHandler := handlers.NewProfileHandler(deps.Store, cfg.Stream.PageSize, deps.Log)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Log)
	seoHandler := handlers.NewSEOHandler(deps.Store, cfg.Server.SiteURL, deps.Log)
	gateway := realtime.NewGateway(deps.Hub, cfg.Stream, deps.Log)

	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, http.StatusNotFound, "Page not found.")
	})

	// 公共路由 (Public Routes)
	r.GET("/health", healthHandler.Check)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/feed.xml", seoHandler.GlobalFeed)                    // 全站 RSS
	r.GET("/profile/:username", profileHandler.Show)             // 用户主页
	r.GET("/profile/:username/feed.xml", seoHandler.ProfileFeed) // 用户 RSS

	r.GET("/register", authHandler.ShowRegister)   // 注册页面
	r.POST("/register", authHandler.Register)      // 提交注册
	r.GET("/auth/user_verify", authHandler.Verify) // 邮件验证链接
	r.GET("/auth/login", authHandler.ShowLogin)    // 登录页面
	r.POST("/auth/login", authHandler.Login)       // 提交登录
	r.GET("/auth/logout", authHandler.Logout)      // 退出登录
	r.GET("/auth/google", authHandler.GoogleLogin)
	r.GET("/auth/google/callback", authHandler.GoogleCallback)

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/", streamHandler.Global)             // 全站信息流
		authorized.GET("/following", streamHandler.Following) // 关注的人
		authorized.GET("/profile/", profileHandler.Show)      // 我的主页

		authorized.POST("/profile/edit", profileHandler.Edit)                   // 编辑资料
		authorized.POST("/profile/password", profileHandler.ChangePassword)     // 修改密码
		authorized.POST("/profile/:username/follow", profileHandler.Follow)     // 关注
		authorized.POST("/profile/:username/unfollow", profileHandler.Unfollow) // 取消关注
	}

	// API 路由：读接口公开，follower 视图由 feed 自己要求登录
	api := r.Group("/api")
	{
		api.GET("/get-messages", streamHandler.GetMessages)
		api.GET("/get-messages/:view", streamHandler.GetMessages)
		api.GET("/get-messages/:view/:arg", streamHandler.GetMessages)
		api.GET("/get-messages/:view/:arg/:from", streamHandler.GetMessages)
		api.GET("/get-comments/:msg_id", streamHandler.GetComments)
		api.GET("/get-comments/:msg_id/:from", streamHandler.GetComments)

		api.GET("/get-messages-stream/", gateway.HandleStream) // WebSocket 推送
	}

	write := r.Group("/api")
	write.Use(middleware.APIAuthRequired())
	{
		write.POST("/post-message", streamHandler.PostMessage)
		write.POST("/post-comment/:msg_id", streamHandler.PostComment)
	}
}
