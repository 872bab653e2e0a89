package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// findNodeByID loads a single node by label and id. The statement is built
// by gocypher, which binds the id as a parameter.
func findNodeByID(ctx context.Context, session Session, label, id string) (neo4j.Node, bool, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", label).WithProperties(map[string]interface{}{"id": id})).
		Return("n").
		Build()
	if err != nil {
		return neo4j.Node{}, false, fmt.Errorf("failed to build %s lookup: %w", label, err)
	}

	records, err := session.Run(ctx, query, params)
	if err != nil {
		return neo4j.Node{}, false, err
	}
	if len(records) == 0 {
		return neo4j.Node{}, false, nil
	}
	if len(records) > 1 {
		return neo4j.Node{}, false, fmt.Errorf("expected 1 %s with id %s but found %d", label, id, len(records))
	}
	if len(records[0].Values) == 0 {
		return neo4j.Node{}, false, nil
	}

	node, ok := records[0].Values[0].(neo4j.Node)
	return node, ok, nil
}
