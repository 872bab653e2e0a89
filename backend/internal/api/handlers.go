package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tribehub/backend/internal/graph"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Handler adapts the repositories to HTTP
type Handler struct {
	posts    graph.PostRepository
	comments graph.CommentRepository
	likes    graph.LikeToggler
	logger   *zap.Logger
}

// NewHandler creates a new content API handler
func NewHandler(posts graph.PostRepository, comments graph.CommentRepository, likes graph.LikeToggler, log *zap.Logger) *Handler {
	return &Handler{
		posts:    posts,
		comments: comments,
		likes:    likes,
		logger:   log,
	}
}

type postRequest struct {
	Title     string   `json:"title" binding:"required"`
	Content   string   `json:"content"`
	FilesList []string `json:"files_list"`
	Region    string   `json:"region"`
	Tribe     string   `json:"tribe"`
}

func (r postRequest) input() graph.PostInput {
	return graph.PostInput{
		Title:     r.Title,
		Content:   r.Content,
		FilesList: r.FilesList,
		Region:    r.Region,
		Tribe:     r.Tribe,
	}
}

type validationRequest struct {
	Published *bool `json:"published" binding:"required"`
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ============================================================================
// Posts
// ============================================================================

func (h *Handler) listPosts(c *gin.Context) {
	skip, err := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64)
	if err != nil {
		badRequest(c, "skip must be an integer")
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)), 10, 64)
	if err != nil {
		badRequest(c, "limit must be an integer")
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	published, err := strconv.ParseBool(c.DefaultQuery("status", "true"))
	if err != nil {
		badRequest(c, "status must be true or false")
		return
	}

	page, err := h.posts.GetAllPosts(c.Request.Context(), skip, limit, published)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, page)
}

func (h *Handler) searchPosts(c *gin.Context) {
	posts, err := h.posts.GetSearchedPosts(c.Request.Context(), c.Query("value"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, posts)
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, post)
}

// createPost publishes directly for an Expert and files a proposal for a
// Subscriber.
func (h *Handler) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	actor := actorFrom(c)
	post, err := h.posts.CreatePost(c.Request.Context(), req.input(), actor.Kind == graph.KindExpert, actor.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, post)
}

func (h *Handler) updatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	post, err := h.posts.UpdatePost(c.Request.Context(), c.Param("id"), req.input(), actorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, post)
}

func (h *Handler) validatePost(c *gin.Context) {
	var req validationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	post, err := h.posts.UpdatePostValidation(c.Request.Context(), c.Param("id"), actorFrom(c).ID, *req.Published)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, post)
}

func (h *Handler) deletePost(c *gin.Context) {
	actor := actorFrom(c)
	if err := h.posts.DeletePost(c.Request.Context(), c.Param("id"), actor.ID, actor.Kind); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"id": c.Param("id"), "deleted": true})
}

func (h *Handler) toggleLike(c *gin.Context) {
	outcome, err := h.likes.ToggleLike(c.Request.Context(), c.Param("id"), actorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, outcome)
}

func (h *Handler) myPosts(c *gin.Context) {
	posts, err := h.posts.GetMyPosts(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, posts)
}

// ============================================================================
// Comments
// ============================================================================

func (h *Handler) listComments(c *gin.Context) {
	threads, err := h.comments.GetAllComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, threads)
}

func (h *Handler) getComment(c *gin.Context) {
	comment, err := h.comments.GetComment(c.Request.Context(), c.Param("commentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, comment)
}

func (h *Handler) createComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), req.Content, actorFrom(c).ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, comment)
}

func (h *Handler) respondComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.comments.ResponseComment(c.Request.Context(), req.Content, actorFrom(c).ID, c.Param("id"), c.Param("commentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, comment)
}

func (h *Handler) updateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.comments.UpdateComment(c.Request.Context(), c.Param("commentId"), req.Content, actorFrom(c).ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, comment)
}

func (h *Handler) deleteComment(c *gin.Context) {
	if err := h.comments.DeleteComment(c.Request.Context(), c.Param("commentId"), actorFrom(c).ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"id": c.Param("commentId"), "deleted": true})
}
