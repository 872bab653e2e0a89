package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "tribehub/backend/pkg/errors"
)

// ============================================================================
// Like Operations
// ============================================================================

// queryToggleLike checks and flips the LIKED_BY/LIKED pair in one write.
// Touching the subscriber takes its write lock until commit, so concurrent
// toggles on the pair run one after the other and each sees the previous
// one's result.
const queryToggleLike = `
	MATCH (post:Post {id: $idPost}), (user:Subscriber {id: $idUser})
	SET user._like_lock = true
	REMOVE user._like_lock
	WITH post, user
	OPTIONAL MATCH (post)-[likedBy:LIKED_BY]->(user)
	WITH post, user, collect(likedBy) AS likedByEdges
	OPTIONAL MATCH (user)-[like:LIKED]->(post)
	WITH post, user, likedByEdges, collect(like) AS likeEdges
	FOREACH (edge IN likedByEdges | DELETE edge)
	FOREACH (edge IN likeEdges | DELETE edge)
	FOREACH (x IN CASE WHEN size(likedByEdges) = 0 THEN [1] ELSE [] END |
		CREATE (post)-[:LIKED_BY]->(user)
		CREATE (user)-[:LIKED]->(post)
	)
	RETURN size(likedByEdges) = 0 AS liked
`

// ToggleLike likes the post for the subscriber, or unlikes it when the
// LIKED_BY edge already exists.
func (r *Repository) ToggleLike(ctx context.Context, postID, actorID string) (_ *LikeOutcome, err error) {
	defer r.track("toggleLike", time.Now(), &err)

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryToggleLike, map[string]interface{}{
		"idPost": postID,
		"idUser": actorID,
	})
	if err != nil {
		return nil, r.storeFailure("toggleLike", "The post doesn't exist anymore", err)
	}

	if len(records) == 0 {
		p, err := probe(ctx, session, postID, "", actorID)
		if err != nil {
			return nil, r.storeFailure("toggleLike", "The post doesn't exist anymore", err)
		}
		switch {
		case !p.PostExists:
			return nil, r.refused("toggleLike", apperrors.NewNotFound("post", postID))
		case !p.isKind(KindSubscriber) && p.actorExists():
			return nil, r.refused("toggleLike", apperrors.NewAuthorizationMismatch(actorID, "like a post"))
		default:
			return nil, r.refused("toggleLike", apperrors.NewNotFound("actor", actorID))
		}
	}

	outcome := &LikeOutcome{
		PostID:  postID,
		ActorID: actorID,
		Liked:   getBoolFromRecord(records[0], "liked"),
	}
	r.logger.Debug("Like toggled",
		zap.String("post_id", postID),
		zap.String("actor_id", actorID),
		zap.Bool("liked", outcome.Liked),
	)
	return outcome, nil
}
