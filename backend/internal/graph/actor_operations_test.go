package graph

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tribehub/backend/pkg/errors"
)

func TestEnsureActor(t *testing.T) {
	store := newFakeStore()
	store.on(queryEnsureExpert, func(params map[string]interface{}) ([]*neo4j.Record, error) {
		return []*neo4j.Record{rec("actor", expertNode(params["id"].(string)))}, nil
	})
	repo := newTestRepository(store)

	actor, err := repo.EnsureActor(context.Background(), KindExpert, "e1", "Awa")
	require.NoError(t, err)
	assert.Equal(t, KindExpert, actor.Kind)
	assert.Equal(t, "e1", actor.ID)

	// the subscriber statement matches nothing: the id belongs to an expert
	_, err = repo.EnsureActor(context.Background(), KindSubscriber, "e1", "Awa")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	_, err = repo.EnsureActor(context.Background(), ActorKind("admin"), "x", "")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestActorKind(t *testing.T) {
	assert.Equal(t, LabelExpert, KindExpert.Label())
	assert.Equal(t, LabelSubscriber, KindSubscriber.Label())
	assert.True(t, KindSubscriber.Valid())
	assert.False(t, ActorKind("admin").Valid())
}
