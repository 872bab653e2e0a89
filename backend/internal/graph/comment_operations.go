package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "tribehub/backend/pkg/errors"
)

// ============================================================================
// Comment Operations
// ============================================================================

const queryCreateComment = `
	MATCH (user:Subscriber {id: $idUser})
	MATCH (post:Post {id: $idPost})
	CREATE (comment:Comment {
		id: $id,
		content: $content,
		creation_date: $creationDate,
		edited: $edited,
		is_response: $isResponse
	})-[:COMMENTED_BY]->(user)
	CREATE (comment)-[:BELONGS_TO]->(post)
	CREATE (post)-[:HAS_COMMENT]->(comment)
	RETURN comment, user AS author
`

// Replies attach to a root comment of the same post only
const queryCreateResponse = `
	MATCH (user:Subscriber {id: $idUser})
	MATCH (post:Post {id: $idPost})
	MATCH (parent:Comment {id: $idComment, is_response: $parentIsResponse})-[:BELONGS_TO]->(post)
	CREATE (comment:Comment {
		id: $id,
		content: $content,
		creation_date: $creationDate,
		edited: $edited,
		is_response: $isResponse
	})-[:COMMENTED_BY]->(user)
	CREATE (comment)-[:BELONGS_TO]->(post)
	CREATE (post)-[:HAS_COMMENT]->(comment)
	CREATE (parent)-[:HAS_RESPONSE]->(comment)
	RETURN comment, user AS author
`

const queryRootComments = `
	MATCH (post:Post {id: $idPost})-[:HAS_COMMENT]->(comment:Comment {is_response: $isResponse})
	MATCH (comment)-[:BELONGS_TO]->(post)
	OPTIONAL MATCH (comment)-[:COMMENTED_BY]->(author:Subscriber)
	RETURN comment, author
	ORDER BY comment.creation_date
`

// Only direct responses of the given roots; responses are not expanded
const queryResponses = `
	UNWIND $rootIds AS rootId
	MATCH (:Comment {id: rootId})-[:HAS_RESPONSE]->(response:Comment)
	OPTIONAL MATCH (response)-[:COMMENTED_BY]->(author:Subscriber)
	RETURN rootId AS root_id, response, author
	ORDER BY response.creation_date
`

const queryUpdateComment = `
	MATCH (comment:Comment {id: $id})-[:COMMENTED_BY]->(:Subscriber {id: $idUser})
	MATCH (comment)-[:BELONGS_TO]->(:Post {id: $idPost})
	SET comment.content = $content,
	    comment.edited = $edited
	RETURN comment
`

const queryDeleteComment = `
	MATCH (comment:Comment {id: $id})-[:COMMENTED_BY]->(:Subscriber {id: $idUser})
	MATCH (comment)-[:BELONGS_TO]->(:Post {id: $idPost})
	WITH DISTINCT comment
	DETACH DELETE comment
	RETURN count(*) AS deleted
`

// CreateComment adds a root comment by a Subscriber to a post
func (r *Repository) CreateComment(ctx context.Context, content, actorID, postID string) (_ *AuthoredComment, err error) {
	defer r.track("createComment", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryCreateComment, map[string]interface{}{
		"idUser":       actorID,
		"idPost":       postID,
		"id":           r.ids.NewID(),
		"content":      content,
		"creationDate": r.now(),
		"edited":       false,
		"isResponse":   false,
	})
	if err != nil {
		return nil, r.storeFailure("createComment", "Error while creating comment!", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, postID, "", actorID)
		if err != nil {
			return nil, r.storeFailure("createComment", "Error while creating comment!", err)
		}
		return nil, r.refused("createComment", commentTargetError(p, postID, actorID, "comment"))
	}

	comment := authoredCommentFromRecord(records[0], "comment")
	r.logger.Info("Comment created",
		zap.String("comment_id", comment.ID),
		zap.String("post_id", postID),
		zap.String("actor_id", actorID),
	)
	return &comment, nil
}

// ResponseComment adds a response to a root comment of the post
func (r *Repository) ResponseComment(ctx context.Context, content, actorID, postID, parentID string) (_ *AuthoredComment, err error) {
	defer r.track("responseComment", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryCreateResponse, map[string]interface{}{
		"idUser":           actorID,
		"idPost":           postID,
		"idComment":        parentID,
		"parentIsResponse": false,
		"id":               r.ids.NewID(),
		"content":          content,
		"creationDate":     r.now(),
		"edited":           false,
		"isResponse":       true,
	})
	if err != nil {
		return nil, r.storeFailure("responseComment", "Error while answering comment!", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, postID, parentID, actorID)
		if err != nil {
			return nil, r.storeFailure("responseComment", "Error while answering comment!", err)
		}
		if !p.CommentExists {
			return nil, r.refused("responseComment", apperrors.NewNotFound("comment", parentID))
		}
		if err := commentTargetError(p, postID, actorID, "answer a comment"); err != nil {
			return nil, r.refused("responseComment", err)
		}
		if p.CommentIsResponse {
			return nil, r.refused("responseComment",
				apperrors.NewValidationFailed("comment", "responses cannot be answered"))
		}
		return nil, r.refused("responseComment",
			apperrors.NewValidationFailed("comment", "the comment belongs to another post"))
	}

	comment := authoredCommentFromRecord(records[0], "comment")
	r.logger.Info("Comment response created",
		zap.String("comment_id", comment.ID),
		zap.String("parent_id", parentID),
		zap.String("post_id", postID),
	)
	return &comment, nil
}

// GetComment returns a raw comment
func (r *Repository) GetComment(ctx context.Context, id string) (_ *Comment, err error) {
	defer r.track("getComment", time.Now(), &err)

	session := r.readSession(ctx)
	defer session.Close(ctx)

	node, found, err := findNodeByID(ctx, session, LabelComment, id)
	if err != nil {
		return nil, r.storeFailure("getComment", "Error while getting a comment", err)
	}
	if !found {
		return nil, apperrors.NewNotFound("comment", id)
	}

	comment := commentFromNode(node)
	return &comment, nil
}

// GetAllComments returns the root comments of a post, oldest first, each
// with its direct responses. The tree is two levels deep.
func (r *Repository) GetAllComments(ctx context.Context, postID string) (_ []CommentThread, err error) {
	defer r.track("getAllComments", time.Now(), &err)

	session := r.readSession(ctx)
	defer session.Close(ctx)

	rootRecords, err := session.Run(ctx, queryRootComments, map[string]interface{}{
		"idPost":     postID,
		"isResponse": false,
	})
	if err != nil {
		return nil, r.storeFailure("getAllComments", "Error while getting the comments", err)
	}

	threads := make([]CommentThread, 0, len(rootRecords))
	index := make(map[string]int, len(rootRecords))
	rootIDs := make([]string, 0, len(rootRecords))
	for _, record := range rootRecords {
		root := authoredCommentFromRecord(record, "comment")
		index[root.ID] = len(threads)
		rootIDs = append(rootIDs, root.ID)
		threads = append(threads, CommentThread{
			AuthoredComment: root,
			Responses:       []AuthoredComment{},
		})
	}
	if len(rootIDs) == 0 {
		return threads, nil
	}

	responseRecords, err := session.Run(ctx, queryResponses, map[string]interface{}{
		"rootIds": rootIDs,
	})
	if err != nil {
		return nil, r.storeFailure("getAllComments", "Error while getting the comments", err)
	}

	for _, record := range responseRecords {
		i, ok := index[getStringFromRecord(record, "root_id")]
		if !ok {
			continue
		}
		threads[i].Responses = append(threads[i].Responses, authoredCommentFromRecord(record, "response"))
	}
	return threads, nil
}

// UpdateComment replaces the content of the actor's comment on the post
// and marks it edited.
func (r *Repository) UpdateComment(ctx context.Context, id, content, actorID, postID string) (_ *Comment, err error) {
	defer r.track("updateComment", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryUpdateComment, map[string]interface{}{
		"id":      id,
		"idUser":  actorID,
		"idPost":  postID,
		"content": content,
		"edited":  true,
	})
	if err != nil {
		return nil, r.storeFailure("updateComment", "The comment has not been found !", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, postID, id, actorID)
		if err != nil {
			return nil, r.storeFailure("updateComment", "The comment has not been found !", err)
		}
		return nil, r.refused("updateComment", ownedCommentError(p, id, postID, actorID, "edit this comment"))
	}

	node, _ := getNodeFromRecord(records[0], "comment")
	comment := commentFromNode(node)
	return &comment, nil
}

// DeleteComment detach-deletes the actor's comment on the post. Responses
// of a deleted root stay attached to the post.
func (r *Repository) DeleteComment(ctx context.Context, id, actorID, postID string) (err error) {
	defer r.track("deleteComment", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryDeleteComment, map[string]interface{}{
		"id":     id,
		"idUser": actorID,
		"idPost": postID,
	})
	if err != nil {
		return r.storeFailure("deleteComment", "The comment has not been found", err)
	}

	if deletedCount(records) == 0 {
		p, err := probe(ctx, session, postID, id, actorID)
		if err != nil {
			return r.storeFailure("deleteComment", "The comment has not been found", err)
		}
		return r.refused("deleteComment", ownedCommentError(p, id, postID, actorID, "delete this comment"))
	}

	r.logger.Info("Comment deleted", zap.String("comment_id", id), zap.String("actor_id", actorID))
	return nil
}

// commentTargetError classifies a failed comment creation: missing post or
// actor, or an actor who is not a Subscriber. Returns nil when both match.
func commentTargetError(p probeResult, postID, actorID, verb string) error {
	switch {
	case !p.PostExists:
		return apperrors.NewNotFound("post", postID)
	case !p.actorExists():
		return apperrors.NewNotFound("actor", actorID)
	case !p.IsSubscriber:
		return apperrors.NewAuthorizationMismatch(actorID, verb)
	}
	return nil
}

// ownedCommentError classifies a failed update/delete of a comment
func ownedCommentError(p probeResult, id, postID, actorID, verb string) error {
	if !p.CommentExists || !p.commentOnPost(postID) {
		return apperrors.NewNotFound("comment", id)
	}
	return apperrors.NewAuthorizationMismatch(actorID, verb)
}

func authoredCommentFromRecord(record *neo4j.Record, key string) AuthoredComment {
	node, _ := getNodeFromRecord(record, key)
	return AuthoredComment{
		Comment: commentFromNode(node),
		Author:  actorPtrFromRecord(record, "author"),
	}
}
