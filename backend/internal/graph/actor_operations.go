package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "tribehub/backend/pkg/errors"
)

// ============================================================================
// Actor Operations
// ============================================================================

// Actors belong to the auth layer; these upserts exist for seeding and
// tests. An id is never reused across the two kinds.
const queryEnsureExpert = `
	OPTIONAL MATCH (other:Subscriber {id: $id})
	WITH other
	WHERE other IS NULL
	MERGE (actor:Expert {id: $id})
	ON CREATE SET actor.name = $name, actor.created_at = $now
	RETURN actor
`

const queryEnsureSubscriber = `
	OPTIONAL MATCH (other:Expert {id: $id})
	WITH other
	WHERE other IS NULL
	MERGE (actor:Subscriber {id: $id})
	ON CREATE SET actor.name = $name, actor.created_at = $now
	RETURN actor
`

// EnsureActor creates the actor if it does not exist yet
func (r *Repository) EnsureActor(ctx context.Context, kind ActorKind, id, name string) (_ *Actor, err error) {
	defer r.track("ensureActor", time.Now(), &err)

	if !kind.Valid() {
		return nil, apperrors.NewValidationFailed("kind", "unknown actor kind")
	}
	if id == "" {
		return nil, apperrors.NewValidationFailed("id", "must not be empty")
	}

	query := queryEnsureSubscriber
	if kind == KindExpert {
		query = queryEnsureExpert
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, query, map[string]interface{}{
		"id":   id,
		"name": name,
		"now":  r.now(),
	})
	if err != nil {
		return nil, r.storeFailure("ensureActor", "Error while creating the actor", err)
	}
	if len(records) == 0 {
		return nil, r.refused("ensureActor",
			apperrors.NewValidationFailed("id", "already used by an actor of the other kind"),
			zap.String("actor_id", id),
			zap.String("label", kind.Label()))
	}

	actor := actorPtrFromRecord(records[0], "actor")
	return actor, nil
}
