package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tribehub/backend/internal/graph"
)

// RequestObserver records HTTP request metrics
type RequestObserver interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// RouterConfig wires the router dependencies
type RouterConfig struct {
	Posts    graph.PostRepository
	Comments graph.CommentRepository
	Likes    graph.LikeToggler
	Logger   *zap.Logger
	Observer RequestObserver // optional
	Metrics  http.Handler    // optional, served on /metrics
	Release  bool
}

// NewRouter builds the gin engine with middleware, health, metrics and the
// content API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors())
	if cfg.Observer != nil {
		router.Use(requestMetrics(cfg.Observer))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	h := NewHandler(cfg.Posts, cfg.Comments, cfg.Likes, log)
	h.Register(router.Group("/api"))
	return router
}

// Register mounts the content routes on the group
func (h *Handler) Register(api *gin.RouterGroup) {
	// Posts
	api.GET("/posts", h.listPosts)
	api.GET("/posts/search", h.searchPosts)
	api.GET("/posts/:id", h.getPost)
	api.POST("/posts", requireActor(), h.createPost)
	api.PUT("/posts/:id", requireActor(), h.updatePost)
	api.PUT("/posts/:id/validation", requireActor(), h.validatePost)
	api.DELETE("/posts/:id", requireActor(), h.deletePost)
	api.POST("/posts/:id/like", requireActor(), h.toggleLike)
	api.GET("/me/posts", requireActor(), h.myPosts)

	// Comments
	api.GET("/posts/:id/comments", h.listComments)
	api.POST("/posts/:id/comments", requireActor(), h.createComment)
	api.POST("/posts/:id/comments/:commentId/responses", requireActor(), h.respondComment)
	api.PUT("/posts/:id/comments/:commentId", requireActor(), h.updateComment)
	api.DELETE("/posts/:id/comments/:commentId", requireActor(), h.deleteComment)
	api.GET("/comments/:commentId", h.getComment)
}
