package graph

import (
	"context"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "tribehub/backend/pkg/errors"
)

// ============================================================================
// Post Operations
// ============================================================================

const queryCreatePublishedPost = `
	MATCH (user:Expert {id: $idUser})
	CREATE (post:Post {
		id: $id,
		title: $title,
		content: $content,
		creation_date: $creationDate,
		modification_date: $modificationDate,
		files_list: $filesList,
		published: $published,
		region: $region,
		tribe: $tribe
	})-[:PUBLISHED_BY {published_at: $creationDate}]->(user)
	CREATE (user)-[:PUBLISHED]->(post)
	RETURN post
`

const queryCreateProposedPost = `
	MATCH (user:Subscriber {id: $idUser})
	CREATE (post:Post {
		id: $id,
		title: $title,
		content: $content,
		creation_date: $creationDate,
		modification_date: $modificationDate,
		files_list: $filesList,
		published: $published,
		region: $region,
		tribe: $tribe
	})-[:PROPOSED_BY]->(user)
	CREATE (user)-[:PROPOSED]->(post)
	RETURN post
`

const queryCountPosts = `
	MATCH (post:Post {published: $published})
	RETURN count(post) AS total
`

const queryPagePosts = `
	MATCH (post:Post {published: $published})
	RETURN post
	ORDER BY post.creation_date DESC
	SKIP $skip
	LIMIT $limit
`

const querySearchPosts = `
	MATCH (post:Post {published: $published})
	WHERE toLower(post.title) CONTAINS toLower($value)
	RETURN post
	ORDER BY post.creation_date DESC
`

const queryPostsPublishedBy = `
	MATCH (post:Post)-[:PUBLISHED_BY]->(:Expert {id: $idUser})
	RETURN DISTINCT post
	ORDER BY post.creation_date DESC
`

const queryPostsProposedBy = `
	MATCH (post:Post)-[:PROPOSED_BY]->(:Subscriber {id: $idUser})
	RETURN DISTINCT post
	ORDER BY post.creation_date DESC
`

const queryUpdatePost = `
	MATCH (post:Post {id: $idPost}), (user:Expert {id: $idUser})
	SET post.title = $title,
	    post.content = $content,
	    post.modification_date = $modificationDate,
	    post.files_list = $filesList,
	    post.region = $region,
	    post.tribe = $tribe
	MERGE (user)-[:EDITED]->(post)
	MERGE (post)-[edited:EDITED_BY]->(user)
	ON CREATE SET edited.edited_at = $modificationDate
	RETURN post
`

// A published post never goes back to unpublished. The PUBLISHED_BY pair
// is only recorded when the post is actually published.
const queryValidatePost = `
	MATCH (post:Post {id: $idPost}), (user:Expert {id: $idUser})
	WHERE post.published = false OR $published = true
	SET post.published = $published,
	    post.modification_date = $modificationDate
	FOREACH (x IN CASE WHEN $published = true THEN [1] ELSE [] END |
		MERGE (post)-[publishedBy:PUBLISHED_BY]->(user)
		ON CREATE SET publishedBy.published_at = $modificationDate
		MERGE (user)-[:PUBLISHED]->(post)
	)
	RETURN post
`

const queryDeletePublishedPost = `
	MATCH (post:Post {id: $idPost})-[:PUBLISHED_BY]->(:Expert {id: $idUser})
	WITH DISTINCT post
	DETACH DELETE post
	RETURN count(*) AS deleted
`

const queryDeleteProposedPost = `
	MATCH (post:Post {id: $idPost})-[:PROPOSED_BY]->(:Subscriber {id: $idUser})
	WHERE post.published = $published
	WITH DISTINCT post
	DETACH DELETE post
	RETURN count(*) AS deleted
`

// CreatePost creates a post and its origin edges. A published post needs an
// Expert, a proposal needs a Subscriber. The title is stored lower-cased.
func (r *Repository) CreatePost(ctx context.Context, in PostInput, published bool, actorID string) (_ *PostRecord, err error) {
	defer r.track("createPost", time.Now(), &err)

	kind, query := KindSubscriber, queryCreateProposedPost
	if published {
		kind, query = KindExpert, queryCreatePublishedPost
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	now := r.now()
	records, err := session.Run(ctx, query, map[string]interface{}{
		"idUser":           actorID,
		"id":               r.ids.NewID(),
		"title":            strings.ToLower(in.Title),
		"content":          in.Content,
		"creationDate":     now,
		"modificationDate": now,
		"filesList":        filesOrEmpty(in.FilesList),
		"published":        published,
		"region":           in.Region,
		"tribe":            in.Tribe,
	})
	if err != nil {
		return nil, r.storeFailure("createPost", "Error while creating the post", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, "", "", actorID)
		if err != nil {
			return nil, r.storeFailure("createPost", "Error while creating the post", err)
		}
		if !p.actorExists() {
			return nil, r.refused("createPost", apperrors.NewNotFound("actor", actorID))
		}
		return nil, r.refused("createPost", apperrors.NewAuthorizationMismatch(actorID, createVerb(kind)),
			zap.String("required_kind", string(kind)))
	}

	node, _ := getNodeFromRecord(records[0], "post")
	post := postFromNode(node)

	aggregated, err := r.assembler.Assemble(ctx, []Post{post})
	if err != nil {
		return nil, r.storeFailure("createPost", "Error while creating the post", err)
	}

	r.logger.Info("Post created",
		zap.String("post_id", post.ID),
		zap.String("actor_id", actorID),
		zap.Bool("published", published),
	)
	return &aggregated[0], nil
}

// GetPost returns the raw post. Published posts carry live like and comment
// counters; authorship is not resolved here.
func (r *Repository) GetPost(ctx context.Context, id string) (_ *PostView, err error) {
	defer r.track("getPost", time.Now(), &err)

	session := r.readSession(ctx)
	defer session.Close(ctx)

	node, found, err := findNodeByID(ctx, session, LabelPost, id)
	if err != nil {
		return nil, r.storeFailure("getPost", "Error while getting a post", err)
	}
	if !found {
		return nil, apperrors.NewNotFound("post", id)
	}

	view := &PostView{Post: postFromNode(node)}
	if view.Published {
		counters, err := r.assembler.Counters(ctx, session, id)
		if err != nil {
			return nil, r.storeFailure("getPost", "Error while getting a post", err)
		}
		view.Counters = &counters
	}
	return view, nil
}

// GetAllPosts returns one page of posts with the given published status,
// newest first.
func (r *Repository) GetAllPosts(ctx context.Context, skip, limit int64, published bool) (_ *PostPage, err error) {
	defer r.track("getAllPosts", time.Now(), &err)

	if skip < 0 {
		return nil, apperrors.NewValidationFailed("skip", "must not be negative")
	}
	if limit <= 0 {
		return nil, apperrors.NewValidationFailed("limit", "must be positive")
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	countRecords, err := session.Run(ctx, queryCountPosts, map[string]interface{}{
		"published": published,
	})
	if err != nil {
		return nil, r.storeFailure("getAllPosts", "Error occured while getting posts number", err)
	}
	var total int64
	if len(countRecords) > 0 {
		total = getInt64FromRecord(countRecords[0], "total")
	}

	records, err := session.Run(ctx, queryPagePosts, map[string]interface{}{
		"published": published,
		"skip":      skip,
		"limit":     limit,
	})
	if err != nil {
		return nil, r.storeFailure("getAllPosts", "Error while getting the posts", err)
	}

	data, err := r.assembler.Assemble(ctx, postsFromRecords(records))
	if err != nil {
		return nil, r.storeFailure("getAllPosts", "Error while getting the posts", err)
	}

	page := &PostPage{Data: data, Skip: skip}
	if total > skip+limit {
		page.Next = true
		page.Skip = skip + limit
	}
	return page, nil
}

// GetSearchedPosts returns published posts whose title contains value,
// ignoring case. An empty value matches every published post.
func (r *Repository) GetSearchedPosts(ctx context.Context, value string) (_ []PostRecord, err error) {
	defer r.track("getSearchedPosts", time.Now(), &err)

	session := r.readSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, querySearchPosts, map[string]interface{}{
		"published": true,
		"value":     value,
	})
	if err != nil {
		return nil, r.storeFailure("getSearchedPosts", "Sorry the post(s) has not been found", err)
	}

	data, err := r.assembler.Assemble(ctx, postsFromRecords(records))
	if err != nil {
		return nil, r.storeFailure("getSearchedPosts", "Sorry the post(s) has not been found", err)
	}
	return data, nil
}

// GetMyPosts returns the posts the actor published or validated, followed
// by the posts the actor proposed.
func (r *Repository) GetMyPosts(ctx context.Context, actorID string) (_ []PostRecord, err error) {
	defer r.track("getMyPosts", time.Now(), &err)

	session := r.readSession(ctx)
	defer session.Close(ctx)

	params := map[string]interface{}{"idUser": actorID}

	publishedRecords, err := session.Run(ctx, queryPostsPublishedBy, params)
	if err != nil {
		return nil, r.storeFailure("getMyPosts", "Error while getting the posts", err)
	}
	proposedRecords, err := session.Run(ctx, queryPostsProposedBy, params)
	if err != nil {
		return nil, r.storeFailure("getMyPosts", "Error while getting the posts", err)
	}

	posts := append(postsFromRecords(publishedRecords), postsFromRecords(proposedRecords)...)
	data, err := r.assembler.Assemble(ctx, posts)
	if err != nil {
		return nil, r.storeFailure("getMyPosts", "Error while getting the posts", err)
	}
	return data, nil
}

// UpdatePost overwrites the content fields and records the Expert as an
// editor. Editing again does not add a second EDITED_BY edge.
func (r *Repository) UpdatePost(ctx context.Context, postID string, in PostInput, actorID string) (_ *Post, err error) {
	defer r.track("updatePost", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryUpdatePost, map[string]interface{}{
		"idPost":           postID,
		"idUser":           actorID,
		"title":            strings.ToLower(in.Title),
		"content":          in.Content,
		"modificationDate": r.now(),
		"filesList":        filesOrEmpty(in.FilesList),
		"region":           in.Region,
		"tribe":            in.Tribe,
	})
	if err != nil {
		return nil, r.storeFailure("updatePost", "The post has not been found", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, postID, "", actorID)
		if err != nil {
			return nil, r.storeFailure("updatePost", "The post has not been found", err)
		}
		switch {
		case !p.PostExists:
			return nil, r.refused("updatePost", apperrors.NewNotFound("post", postID))
		case !p.actorExists():
			return nil, r.refused("updatePost", apperrors.NewNotFound("actor", actorID))
		default:
			return nil, r.refused("updatePost", apperrors.NewAuthorizationMismatch(actorID, "edit a post"))
		}
	}

	node, _ := getNodeFromRecord(records[0], "post")
	post := postFromNode(node)
	r.logger.Info("Post updated", zap.String("post_id", postID), zap.String("actor_id", actorID))
	return &post, nil
}

// UpdatePostValidation sets the published flag and records the Expert as
// publisher. Unpublishing a published post is rejected.
func (r *Repository) UpdatePostValidation(ctx context.Context, postID, actorID string, published bool) (_ *Post, err error) {
	defer r.track("updatePostValidation", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryValidatePost, map[string]interface{}{
		"idPost":           postID,
		"idUser":           actorID,
		"published":        published,
		"modificationDate": r.now(),
	})
	if err != nil {
		return nil, r.storeFailure("updatePostValidation", "The post doesn't exist anymore!!", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, postID, "", actorID)
		if err != nil {
			return nil, r.storeFailure("updatePostValidation", "The post doesn't exist anymore!!", err)
		}
		switch {
		case !p.PostExists:
			return nil, r.refused("updatePostValidation", apperrors.NewNotFound("post", postID))
		case !p.actorExists():
			return nil, r.refused("updatePostValidation", apperrors.NewNotFound("actor", actorID))
		case !p.IsExpert:
			return nil, r.refused("updatePostValidation", apperrors.NewAuthorizationMismatch(actorID, "validate a post"))
		default:
			return nil, r.refused("updatePostValidation",
				apperrors.NewValidationFailed("published", "a published post cannot be unpublished"))
		}
	}

	node, _ := getNodeFromRecord(records[0], "post")
	post := postFromNode(node)
	r.logger.Info("Post validation updated",
		zap.String("post_id", postID),
		zap.String("actor_id", actorID),
		zap.Bool("published", published),
	)
	return &post, nil
}

// DeletePost detach-deletes a post. An Expert deletes posts it published or
// validated; a Subscriber deletes its own proposals while unpublished.
func (r *Repository) DeletePost(ctx context.Context, postID, actorID string, kind ActorKind) (err error) {
	defer r.track("deletePost", time.Now(), &err)

	params := map[string]interface{}{
		"idPost": postID,
		"idUser": actorID,
	}
	var query string
	switch kind {
	case KindExpert:
		query = queryDeletePublishedPost
	case KindSubscriber:
		query = queryDeleteProposedPost
		params["published"] = false
	default:
		return apperrors.NewValidationFailed("role", "unknown actor kind")
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, query, params)
	if err != nil {
		return r.storeFailure("deletePost", "The post has not been found", err)
	}

	if deletedCount(records) == 0 {
		p, err := probe(ctx, session, postID, "", actorID)
		if err != nil {
			return r.storeFailure("deletePost", "The post has not been found", err)
		}
		if !p.PostExists {
			return r.refused("deletePost", apperrors.NewNotFound("post", postID))
		}
		return r.refused("deletePost", apperrors.NewAuthorizationMismatch(actorID, "delete this post"),
			zap.String("post_id", postID), zap.Bool("published", p.PostPublished))
	}

	r.logger.Info("Post deleted", zap.String("post_id", postID), zap.String("actor_id", actorID))
	return nil
}

func postsFromRecords(records []*neo4j.Record) []Post {
	posts := make([]Post, 0, len(records))
	for _, record := range records {
		if node, ok := getNodeFromRecord(record, "post"); ok {
			posts = append(posts, postFromNode(node))
		}
	}
	return posts
}

func deletedCount(records []*neo4j.Record) int64 {
	if len(records) == 0 {
		return 0
	}
	return getInt64FromRecord(records[0], "deleted")
}

func filesOrEmpty(files []string) []string {
	if files == nil {
		return []string{}
	}
	return files
}

func createVerb(kind ActorKind) string {
	if kind == KindExpert {
		return "publish a post"
	}
	return "propose a post"
}
