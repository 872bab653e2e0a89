package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tribehub/backend/internal/graph"
	apperrors "tribehub/backend/pkg/errors"
)

// fakeRepos implements the three repository interfaces with per-test hooks
type fakeRepos struct {
	createPost     func(in graph.PostInput, published bool, actorID string) (*graph.PostRecord, error)
	getPost        func(id string) (*graph.PostView, error)
	getAllPosts    func(skip, limit int64, published bool) (*graph.PostPage, error)
	searchPosts    func(value string) ([]graph.PostRecord, error)
	myPosts        func(actorID string) ([]graph.PostRecord, error)
	updatePost     func(postID string, in graph.PostInput, actorID string) (*graph.Post, error)
	validatePost   func(postID, actorID string, published bool) (*graph.Post, error)
	deletePost     func(postID, actorID string, kind graph.ActorKind) error
	createComment  func(content, actorID, postID string) (*graph.AuthoredComment, error)
	respondComment func(content, actorID, postID, parentID string) (*graph.AuthoredComment, error)
	getComment     func(id string) (*graph.Comment, error)
	allComments    func(postID string) ([]graph.CommentThread, error)
	updateComment  func(id, content, actorID, postID string) (*graph.Comment, error)
	deleteComment  func(id, actorID, postID string) error
	toggleLike     func(postID, actorID string) (*graph.LikeOutcome, error)
}

func (f *fakeRepos) CreatePost(_ context.Context, in graph.PostInput, published bool, actorID string) (*graph.PostRecord, error) {
	return f.createPost(in, published, actorID)
}

func (f *fakeRepos) GetPost(_ context.Context, id string) (*graph.PostView, error) {
	return f.getPost(id)
}

func (f *fakeRepos) GetAllPosts(_ context.Context, skip, limit int64, published bool) (*graph.PostPage, error) {
	return f.getAllPosts(skip, limit, published)
}

func (f *fakeRepos) GetSearchedPosts(_ context.Context, value string) ([]graph.PostRecord, error) {
	return f.searchPosts(value)
}

func (f *fakeRepos) GetMyPosts(_ context.Context, actorID string) ([]graph.PostRecord, error) {
	return f.myPosts(actorID)
}

func (f *fakeRepos) UpdatePost(_ context.Context, postID string, in graph.PostInput, actorID string) (*graph.Post, error) {
	return f.updatePost(postID, in, actorID)
}

func (f *fakeRepos) UpdatePostValidation(_ context.Context, postID, actorID string, published bool) (*graph.Post, error) {
	return f.validatePost(postID, actorID, published)
}

func (f *fakeRepos) DeletePost(_ context.Context, postID, actorID string, kind graph.ActorKind) error {
	return f.deletePost(postID, actorID, kind)
}

func (f *fakeRepos) CreateComment(_ context.Context, content, actorID, postID string) (*graph.AuthoredComment, error) {
	return f.createComment(content, actorID, postID)
}

func (f *fakeRepos) ResponseComment(_ context.Context, content, actorID, postID, parentID string) (*graph.AuthoredComment, error) {
	return f.respondComment(content, actorID, postID, parentID)
}

func (f *fakeRepos) GetComment(_ context.Context, id string) (*graph.Comment, error) {
	return f.getComment(id)
}

func (f *fakeRepos) GetAllComments(_ context.Context, postID string) ([]graph.CommentThread, error) {
	return f.allComments(postID)
}

func (f *fakeRepos) UpdateComment(_ context.Context, id, content, actorID, postID string) (*graph.Comment, error) {
	return f.updateComment(id, content, actorID, postID)
}

func (f *fakeRepos) DeleteComment(_ context.Context, id, actorID, postID string) error {
	return f.deleteComment(id, actorID, postID)
}

func (f *fakeRepos) ToggleLike(_ context.Context, postID, actorID string) (*graph.LikeOutcome, error) {
	return f.toggleLike(postID, actorID)
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeRequestObserver struct {
	requests []recordedRequest
}

func (o *fakeRequestObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.requests = append(o.requests, recordedRequest{method: method, route: route, status: status})
}

func newTestRouter(repos *fakeRepos, observer RequestObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Posts:    repos,
		Comments: repos,
		Likes:    repos,
		Observer: observer,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
}

func do(router http.Handler, method, path, body string, actor *graph.Actor) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(headerActorID, actor.ID)
		req.Header.Set(headerActorKind, string(actor.Kind))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

var (
	expert     = &graph.Actor{ID: "e1", Kind: graph.KindExpert}
	subscriber = &graph.Actor{ID: "s1", Kind: graph.KindSubscriber}
)

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeRepos{}, nil)

	w := do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestCreatePost_PublishedFlagFollowsActorKind(t *testing.T) {
	var gotPublished []bool
	repos := &fakeRepos{
		createPost: func(in graph.PostInput, published bool, actorID string) (*graph.PostRecord, error) {
			gotPublished = append(gotPublished, published)
			return &graph.PostRecord{
				Post:       graph.Post{ID: "p1", Title: in.Title, Published: published},
				Counters:   graph.Counters{Likes: []string{}},
				Author:     &graph.Actor{ID: actorID},
				SubAuthors: []graph.Actor{},
			}, nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodPost, "/api/posts", `{"title":"masque","content":"..."}`, expert)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "p1", data["id"])
	assert.Equal(t, true, data["published"])
	assert.Equal(t, "e1", data["author"].(map[string]interface{})["id"])
	assert.Equal(t, []interface{}{}, data["subAuthors"])

	w = do(router, http.MethodPost, "/api/posts", `{"title":"masque"}`, subscriber)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{true, false}, gotPublished)
}

func TestCreatePost_RequiresActorAndTitle(t *testing.T) {
	router := newTestRouter(&fakeRepos{}, nil)

	w := do(router, http.MethodPost, "/api/posts", `{"title":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/posts", `{"title":"x"}`, &graph.Actor{ID: "a1", Kind: "admin"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/posts", `{}`, expert)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutcomeEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKey    string
		wantValue  interface{}
	}{
		{
			name:       "not found is empty data",
			err:        apperrors.NewNotFound("post", "p1"),
			wantStatus: http.StatusNotFound,
			wantKey:    "data",
			wantValue:  nil,
		},
		{
			name:       "authorization mismatch",
			err:        apperrors.NewAuthorizationMismatch("s1", "edit a post"),
			wantStatus: http.StatusForbidden,
			wantKey:    "error",
			wantValue:  "actor s1 is not allowed to edit a post",
		},
		{
			name:       "validation",
			err:        apperrors.NewValidationFailed("published", "a published post cannot be unpublished"),
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
			wantValue:  "invalid published: a published post cannot be unpublished",
		},
		{
			name:       "store failure shows static message",
			err:        apperrors.NewStoreFailure("updatePost", "The post has not been found", errors.New("bolt: connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantKey:    "error",
			wantValue:  "The post has not been found",
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKey:    "error",
			wantValue:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos := &fakeRepos{
				updatePost: func(string, graph.PostInput, string) (*graph.Post, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(repos, nil)

			w := do(router, http.MethodPut, "/api/posts/p1", `{"title":"x"}`, subscriber)
			assert.Equal(t, tt.wantStatus, w.Code)

			response := decode(t, w)
			require.Contains(t, response, tt.wantKey)
			assert.Equal(t, tt.wantValue, response[tt.wantKey])
		})
	}
}

func TestListPosts_QueryParsing(t *testing.T) {
	var got []interface{}
	repos := &fakeRepos{
		getAllPosts: func(skip, limit int64, published bool) (*graph.PostPage, error) {
			got = []interface{}{skip, limit, published}
			return &graph.PostPage{Data: []graph.PostRecord{}, Next: true, Skip: skip + limit}, nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{int64(0), int64(defaultPageLimit), true}, got)

	w = do(router, http.MethodGet, "/api/posts?skip=20&limit=500&status=false", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{int64(20), int64(maxPageLimit), false}, got)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["next"])
	assert.Equal(t, float64(20+maxPageLimit), data["skip"])

	w = do(router, http.MethodGet, "/api/posts?skip=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRouteIsNotAPostID(t *testing.T) {
	var gotValue string
	repos := &fakeRepos{
		searchPosts: func(value string) ([]graph.PostRecord, error) {
			gotValue = value
			return []graph.PostRecord{}, nil
		},
		getPost: func(id string) (*graph.PostView, error) {
			t.Fatalf("unexpected GetPost(%s)", id)
			return nil, nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodGet, "/api/posts/search?value=Tribe", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Tribe", gotValue)
	assert.Equal(t, []interface{}{}, decode(t, w)["data"])
}

func TestGetPost_UnpublishedOmitsCounters(t *testing.T) {
	repos := &fakeRepos{
		getPost: func(id string) (*graph.PostView, error) {
			return &graph.PostView{Post: graph.Post{ID: id}}, nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodGet, "/api/posts/p1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "p1", data["id"])
	assert.NotContains(t, data, "likes")
	assert.NotContains(t, data, "author")
}

func TestValidatePost_RequiresPublishedField(t *testing.T) {
	var got *bool
	repos := &fakeRepos{
		validatePost: func(postID, actorID string, published bool) (*graph.Post, error) {
			got = &published
			return &graph.Post{ID: postID, Published: published}, nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodPut, "/api/posts/p1/validation", `{}`, expert)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, got)

	w = do(router, http.MethodPut, "/api/posts/p1/validation", `{"published":true}`, expert)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.True(t, *got)
}

func TestDeletePost_PassesActorKind(t *testing.T) {
	var gotKind graph.ActorKind
	repos := &fakeRepos{
		deletePost: func(postID, actorID string, kind graph.ActorKind) error {
			gotKind = kind
			return nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodDelete, "/api/posts/p1", "", subscriber)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, graph.KindSubscriber, gotKind)
}

func TestToggleLike(t *testing.T) {
	repos := &fakeRepos{
		toggleLike: func(postID, actorID string) (*graph.LikeOutcome, error) {
			return &graph.LikeOutcome{PostID: postID, ActorID: actorID, Liked: true}, nil
		},
	}
	router := newTestRouter(repos, nil)

	w := do(router, http.MethodPost, "/api/posts/p1/like", "", subscriber)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["liked"])
	assert.Equal(t, "s1", data["actor_id"])
}

func TestCommentRoutes(t *testing.T) {
	var calls []string
	repos := &fakeRepos{
		allComments: func(postID string) ([]graph.CommentThread, error) {
			calls = append(calls, "list:"+postID)
			return []graph.CommentThread{}, nil
		},
		createComment: func(content, actorID, postID string) (*graph.AuthoredComment, error) {
			calls = append(calls, "create:"+postID+":"+content)
			return &graph.AuthoredComment{Comment: graph.Comment{ID: "c1", Content: content}}, nil
		},
		respondComment: func(content, actorID, postID, parentID string) (*graph.AuthoredComment, error) {
			calls = append(calls, "respond:"+postID+":"+parentID)
			return &graph.AuthoredComment{Comment: graph.Comment{ID: "c2", IsResponse: true}}, nil
		},
		updateComment: func(id, content, actorID, postID string) (*graph.Comment, error) {
			calls = append(calls, "update:"+postID+":"+id)
			return &graph.Comment{ID: id, Content: content, Edited: true}, nil
		},
		deleteComment: func(id, actorID, postID string) error {
			calls = append(calls, "delete:"+postID+":"+id)
			return nil
		},
		getComment: func(id string) (*graph.Comment, error) {
			calls = append(calls, "get:"+id)
			return nil, apperrors.NewNotFound("comment", id)
		},
	}
	router := newTestRouter(repos, nil)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/posts/p1/comments", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/posts/p1/comments", `{"content":"hi"}`, subscriber).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/posts/p1/comments", `{}`, subscriber).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/posts/p1/comments/c1/responses", `{"content":"re"}`, subscriber).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPut, "/api/posts/p1/comments/c1", `{"content":"edit"}`, subscriber).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodDelete, "/api/posts/p1/comments/c1", "", subscriber).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/comments/c9", "", nil).Code)

	assert.Equal(t, []string{
		"list:p1",
		"create:p1:hi",
		"respond:p1:c1",
		"update:p1:c1",
		"delete:p1:c1",
		"get:c9",
	}, calls)
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	observer := &fakeRequestObserver{}
	repos := &fakeRepos{
		getPost: func(id string) (*graph.PostView, error) {
			return nil, apperrors.NewNotFound("post", id)
		},
	}
	router := newTestRouter(repos, observer)

	do(router, http.MethodGet, "/api/posts/p42", "", nil)
	do(router, http.MethodGet, "/nowhere", "", nil)

	require.Len(t, observer.requests, 2)
	assert.Equal(t, recordedRequest{method: "GET", route: "/api/posts/:id", status: http.StatusNotFound}, observer.requests[0])
	assert.Equal(t, "unmatched", observer.requests[1].route)
}
