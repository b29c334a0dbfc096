package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/emilythestrangee/social-media/backend/internal/handlers"
	"github.com/emilythestrangee/social-media/backend/internal/middleware"
)

// HealthChecker reports the status of a backing service.
type HealthChecker interface {
	Health() map[string]string
}

type Options struct {
	Addr          string
	AllowOrigins  []string
	Authenticate  gin.HandlerFunc
	RateLimit     gin.HandlerFunc
	HTMLRender    render.HTMLRender
	DB            HealthChecker
	// UploadsDir, when set, is served under /storage for the filesystem bucket.
	UploadsDir string
}

type Server struct {
	handler *handlers.Handler
	opts    Options
}

// NewServer creates and configures a new server
func NewServer(h *handlers.Handler, opts Options) *http.Server {
	s := &Server{handler: h, opts: opts}

	return &http.Server{
		Addr:         opts.Addr,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func passThrough(c *gin.Context) { c.Next() }

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()
	if s.opts.HTMLRender != nil {
		r.HTMLRender = s.opts.HTMLRender
	}

	origins := s.opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authenticate := s.opts.Authenticate
	if authenticate == nil {
		authenticate = passThrough
	}
	limit := s.opts.RateLimit
	if limit == nil {
		limit = passThrough
	}
	r.Use(authenticate)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if s.opts.DB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		stats := s.opts.DB.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	if s.opts.UploadsDir != "" {
		r.Static("/storage", s.opts.UploadsDir)
	}

	h := s.handler

	// HTML pages
	r.GET("/", h.Page.Home)
	r.GET("/create", h.Page.CreatePostForm)
	r.POST("/create", limit, h.Page.CreatePost)
	r.GET("/communities", h.Page.Communities)
	r.GET("/community/create", h.Page.CreateCommunityForm)
	r.POST("/community/create", limit, h.Page.CreateCommunity)
	r.GET("/community/:id", h.Page.Community)
	r.GET("/post/:id", h.Page.Post)
	r.POST("/post/:id/vote", limit, h.Page.Vote)
	r.POST("/post/:id/comments", limit, h.Page.Comment)

	// Sign-in
	r.GET("/auth/github", limit, h.Auth.GitHubLogin)
	r.GET("/auth/github/callback", limit, h.Auth.GitHubCallback)
	r.POST("/auth/signout", h.Auth.SignOutPage)

	// API routes
	api := r.Group("/api")
	{
		api.GET("/posts", h.Post.GetPosts)
		api.GET("/posts/:id", h.Post.GetPost)
		api.GET("/posts/:id/votes", h.Vote.GetVotes)
		api.GET("/posts/:id/comments", h.Comment.GetComments)
		api.GET("/communities", h.Community.GetCommunities)
		api.GET("/communities/:id", h.Community.GetCommunity)
		api.GET("/communities/:id/posts", h.Community.GetCommunityPosts)
		api.GET("/session", h.Auth.GetSession)
		api.POST("/auth/signout", h.Auth.SignOut)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.RequireUser(), limit)
		{
			protected.POST("/posts", h.Post.CreatePost)
			protected.POST("/posts/:id/vote", h.Vote.VotePost)
			protected.POST("/posts/:id/comments", h.Comment.CreateComment)
			protected.POST("/communities", h.Community.CreateCommunity)
		}
	}

	return r
}
