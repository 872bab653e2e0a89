package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Author Resolution
// ============================================================================

// matchAuthorship binds post, proposer, the earliest publisher and the
// editors in edit order. Statements that need authorship start with it.
const matchAuthorship = `
	MATCH (post:Post {id: $id})
	OPTIONAL MATCH (post)-[:PROPOSED_BY]->(proposer:Subscriber)
	WITH post, head(collect(proposer)) AS proposer
	OPTIONAL MATCH (post)-[published:PUBLISHED_BY]->(publisher:Expert)
	WITH post, proposer, publisher, published.published_at AS published_at
	ORDER BY published_at
	WITH post, proposer, head(collect(publisher)) AS publisher
	OPTIONAL MATCH (post)-[edited:EDITED_BY]->(editor:Expert)
	WITH post, proposer, publisher, editor, edited.edited_at AS edited_at
	ORDER BY edited_at
	WITH post, proposer, publisher, collect(editor) AS editors
`

const queryAuthorship = matchAuthorship + `
	RETURN proposer, publisher, editors
`

// AuthorResolver computes a post's original author and its editors
type AuthorResolver struct {
	store Store
}

// NewAuthorResolver creates a resolver over the store
func NewAuthorResolver(store Store) *AuthorResolver {
	return &AuthorResolver{store: store}
}

// Resolve returns the author and editors of a post. A post with neither a
// proposal nor a publication edge resolves to no author and no editors.
func (a *AuthorResolver) Resolve(ctx context.Context, postID string) (*Authorship, error) {
	session := a.store.Open(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	records, err := session.Run(ctx, queryAuthorship, map[string]interface{}{
		"id": postID,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		authorship := resolveAuthorship(nil, nil, nil)
		return &authorship, nil
	}

	record := records[0]
	authorship := resolveAuthorship(
		actorPtrFromRecord(record, "proposer"),
		actorPtrFromRecord(record, "publisher"),
		actorsFromNodes(getNodeSliceFromRecord(record, "editors")),
	)
	return &authorship, nil
}

// resolveAuthorship applies the authorship rules to the traversed actors.
// A proposed post is authored by its Subscriber and edited by the EDITED_BY
// Experts followed by the validating Expert. A directly published post is
// authored by its publisher, which is not repeated among the editors.
func resolveAuthorship(proposer, publisher *Actor, editors []Actor) Authorship {
	result := Authorship{Editors: make([]Actor, 0, len(editors)+1)}

	if proposer != nil {
		result.Author = proposer
		result.Editors = append(result.Editors, editors...)
		if publisher != nil {
			result.Editors = append(result.Editors, *publisher)
		}
		return result
	}

	result.Author = publisher
	result.Editors = append(result.Editors, editors...)
	return result
}
