package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Schema
// ============================================================================

var schemaConstraints = []string{
	"CREATE CONSTRAINT post_id_unique IF NOT EXISTS FOR (p:Post) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT comment_id_unique IF NOT EXISTS FOR (c:Comment) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT subscriber_id_unique IF NOT EXISTS FOR (s:Subscriber) REQUIRE s.id IS UNIQUE",
	"CREATE CONSTRAINT expert_id_unique IF NOT EXISTS FOR (e:Expert) REQUIRE e.id IS UNIQUE",
}

var schemaIndexes = []string{
	// Listing and counting by status, newest first
	"CREATE INDEX post_published IF NOT EXISTS FOR (p:Post) ON (p.published)",
	"CREATE INDEX post_creation_date IF NOT EXISTS FOR (p:Post) ON (p.creation_date)",
	"CREATE INDEX post_title IF NOT EXISTS FOR (p:Post) ON (p.title)",

	// Root comment lookup
	"CREATE INDEX comment_is_response IF NOT EXISTS FOR (c:Comment) ON (c.is_response)",
}

// EnsureSchema creates the uniqueness constraints and indexes the
// repositories rely on. Statements that fail are logged and skipped; it
// returns the number applied.
func EnsureSchema(ctx context.Context, store Store, log *zap.Logger) int {
	session := store.Open(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	applied := 0
	for _, statement := range append(append([]string{}, schemaConstraints...), schemaIndexes...) {
		if _, err := session.Run(ctx, statement, nil); err != nil {
			log.Warn("Failed to apply schema statement (may already exist)",
				zap.String("statement", statement),
				zap.Error(err),
			)
			continue
		}
		applied++
	}
	return applied
}

const queryResetContent = `
	MATCH (n)
	WHERE n:Post OR n:Comment
	DETACH DELETE n
	RETURN count(*) AS deleted
`

// ResetContent deletes every post and comment node with their edges.
// Actor nodes are left in place.
func ResetContent(ctx context.Context, store Store) (int64, error) {
	session := store.Open(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryResetContent, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to reset content graph: %w", err)
	}
	return deletedCount(records), nil
}
