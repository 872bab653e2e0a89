package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "tribehub/backend/pkg/errors"
	"tribehub/backend/pkg/logger"
)

// PostRepository creates, reads, lists, searches, edits, validates and
// deletes posts.
type PostRepository interface {
	CreatePost(ctx context.Context, in PostInput, published bool, actorID string) (*PostRecord, error)
	GetPost(ctx context.Context, id string) (*PostView, error)
	GetAllPosts(ctx context.Context, skip, limit int64, published bool) (*PostPage, error)
	GetSearchedPosts(ctx context.Context, value string) ([]PostRecord, error)
	GetMyPosts(ctx context.Context, actorID string) ([]PostRecord, error)
	UpdatePost(ctx context.Context, postID string, in PostInput, actorID string) (*Post, error)
	UpdatePostValidation(ctx context.Context, postID, actorID string, published bool) (*Post, error)
	DeletePost(ctx context.Context, postID, actorID string, kind ActorKind) error
}

// CommentRepository manages comments and their one-level threads
type CommentRepository interface {
	CreateComment(ctx context.Context, content, actorID, postID string) (*AuthoredComment, error)
	ResponseComment(ctx context.Context, content, actorID, postID, parentID string) (*AuthoredComment, error)
	GetComment(ctx context.Context, id string) (*Comment, error)
	GetAllComments(ctx context.Context, postID string) ([]CommentThread, error)
	UpdateComment(ctx context.Context, id, content, actorID, postID string) (*Comment, error)
	DeleteComment(ctx context.Context, id, actorID, postID string) error
}

// LikeToggler flips the like relationship between a post and a subscriber
type LikeToggler interface {
	ToggleLike(ctx context.Context, postID, actorID string) (*LikeOutcome, error)
}

// Clock supplies creation and modification timestamps
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies globally unique, URL-safe node ids
type IDGenerator interface {
	NewID() string
}

// Observer receives the outcome of every repository operation
type Observer interface {
	Observe(operation, outcome string, duration time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// UUIDGenerator issues random (v4) UUIDs
type UUIDGenerator struct{}

// NewID returns a new UUID string
func (UUIDGenerator) NewID() string { return uuid.NewString() }

type nopObserver struct{}

func (nopObserver) Observe(string, string, time.Duration) {}

// Option configures a Repository
type Option func(*Repository)

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(r *Repository) { r.clock = clock }
}

// WithIDGenerator replaces the UUID generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(r *Repository) { r.ids = ids }
}

// WithObserver registers an outcome observer (metrics)
func WithObserver(observer Observer) Option {
	return func(r *Repository) { r.observer = observer }
}

// WithLogger replaces the repository logger
func WithLogger(log *zap.Logger) Option {
	return func(r *Repository) { r.logger = log }
}

// WithAggregationConcurrency bounds how many posts are assembled in parallel
func WithAggregationConcurrency(n int) Option {
	return func(r *Repository) { r.concurrency = n }
}

// Repository is the Neo4j implementation of PostRepository,
// CommentRepository and LikeToggler.
type Repository struct {
	store       Store
	logger      *zap.Logger
	clock       Clock
	ids         IDGenerator
	observer    Observer
	concurrency int

	resolver  *AuthorResolver
	assembler *Assembler
}

var (
	_ PostRepository    = (*Repository)(nil)
	_ CommentRepository = (*Repository)(nil)
	_ LikeToggler       = (*Repository)(nil)
)

// NewRepository creates a new graph repository
func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:       store,
		logger:      logger.Named("graph"),
		clock:       systemClock{},
		ids:         UUIDGenerator{},
		observer:    nopObserver{},
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.resolver = NewAuthorResolver(store)
	r.assembler = NewAssembler(store, r.concurrency)
	return r
}

// Authorship exposes the AuthorResolver for a single post
func (r *Repository) Authorship(ctx context.Context, postID string) (*Authorship, error) {
	var err error
	defer r.track("resolveAuthorship", time.Now(), &err)

	authorship, err := r.resolver.Resolve(ctx, postID)
	if err != nil {
		err = r.storeFailure("resolveAuthorship", "Error while resolving the post authors", err)
		return nil, err
	}
	return authorship, nil
}

// now returns the store timestamp, milliseconds since the epoch
func (r *Repository) now() int64 {
	return r.clock.Now().UnixMilli()
}

// track reports the operation outcome once the call returns
func (r *Repository) track(operation string, start time.Time, errp *error) {
	r.observer.Observe(operation, outcomeOf(*errp), time.Since(start))
}

// storeFailure logs the driver error and hides it behind a static message
func (r *Repository) storeFailure(operation, message string, err error) error {
	r.logger.Error("Graph operation failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	return apperrors.NewStoreFailure(operation, message, err)
}

// refused logs a classified NotFound/AuthorizationMismatch outcome
func (r *Repository) refused(operation string, err error, fields ...zap.Field) error {
	r.logger.Warn("Graph operation refused",
		append(fields, zap.String("operation", operation), zap.Error(err))...,
	)
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.IsNotFound(err):
		return string(apperrors.ErrorTypeNotFound)
	case apperrors.IsNotAuthorized(err):
		return string(apperrors.ErrorTypeAuthorization)
	case apperrors.IsErrorType(err, apperrors.ErrorTypeValidation):
		return string(apperrors.ErrorTypeValidation)
	default:
		return string(apperrors.ErrorTypeStore)
	}
}

// ============================================================================
// Outcome Probe
// ============================================================================

// queryProbe is run after a mutation matched nothing, to tell a missing
// target apart from an actor who lacks the kind or relationship.
const queryProbe = `
	OPTIONAL MATCH (post:Post {id: $idPost})
	WITH post
	OPTIONAL MATCH (comment:Comment {id: $idComment})
	OPTIONAL MATCH (comment)-[:BELONGS_TO]->(commentPost:Post)
	WITH post, comment, collect(commentPost.id) AS comment_posts
	OPTIONAL MATCH (subscriber:Subscriber {id: $idUser})
	WITH post, comment, comment_posts, subscriber
	OPTIONAL MATCH (expert:Expert {id: $idUser})
	RETURN post IS NOT NULL AS post_exists,
	       coalesce(post.published, false) AS post_published,
	       comment IS NOT NULL AS comment_exists,
	       coalesce(comment.is_response, false) AS comment_is_response,
	       comment_posts,
	       subscriber IS NOT NULL AS is_subscriber,
	       expert IS NOT NULL AS is_expert
`

type probeResult struct {
	PostExists        bool
	PostPublished     bool
	CommentExists     bool
	CommentIsResponse bool
	CommentPosts      []string
	IsSubscriber      bool
	IsExpert          bool
}

func (p probeResult) actorExists() bool {
	return p.IsSubscriber || p.IsExpert
}

func (p probeResult) isKind(kind ActorKind) bool {
	if kind == KindExpert {
		return p.IsExpert
	}
	return p.IsSubscriber
}

func (p probeResult) commentOnPost(postID string) bool {
	for _, id := range p.CommentPosts {
		if id == postID {
			return true
		}
	}
	return false
}

func probe(ctx context.Context, session Session, postID, commentID, actorID string) (probeResult, error) {
	records, err := session.Run(ctx, queryProbe, map[string]interface{}{
		"idPost":    postID,
		"idComment": commentID,
		"idUser":    actorID,
	})
	if err != nil {
		return probeResult{}, err
	}
	if len(records) == 0 {
		return probeResult{}, nil
	}

	record := records[0]
	return probeResult{
		PostExists:        getBoolFromRecord(record, "post_exists"),
		PostPublished:     getBoolFromRecord(record, "post_published"),
		CommentExists:     getBoolFromRecord(record, "comment_exists"),
		CommentIsResponse: getBoolFromRecord(record, "comment_is_response"),
		CommentPosts:      getStringSliceFromRecord(record, "comment_posts"),
		IsSubscriber:      getBoolFromRecord(record, "is_subscriber"),
		IsExpert:          getBoolFromRecord(record, "is_expert"),
	}, nil
}

// readSession and writeSession open sessions scoped to one call
func (r *Repository) readSession(ctx context.Context) Session {
	return r.store.Open(ctx, neo4j.AccessModeRead)
}

func (r *Repository) writeSession(ctx context.Context) Session {
	return r.store.Open(ctx, neo4j.AccessModeWrite)
}
