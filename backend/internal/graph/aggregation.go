package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Aggregation
// ============================================================================

// queryPostAggregate reads likes, comment count and authorship of one post
// in a single statement, so every field of an item comes from the same read.
const queryPostAggregate = matchAuthorship + `
	OPTIONAL MATCH (post)-[:LIKED_BY]->(liker:Subscriber)
	WITH post, proposer, publisher, editors, collect(liker.id) AS likes
	OPTIONAL MATCH (post)-[hasComment:HAS_COMMENT]->(:Comment)
	RETURN likes, count(hasComment) AS comments, proposer, publisher, editors
`

// queryPostCounters reads likes and comment count only
const queryPostCounters = `
	MATCH (post:Post {id: $id})
	OPTIONAL MATCH (post)-[:LIKED_BY]->(liker:Subscriber)
	WITH post, collect(liker.id) AS likes
	OPTIONAL MATCH (post)-[hasComment:HAS_COMMENT]->(:Comment)
	RETURN likes, count(hasComment) AS comments
`

// Assembler turns raw posts into aggregated records
type Assembler struct {
	store       Store
	concurrency int
}

// NewAssembler creates an assembler running at most concurrency reads at once
func NewAssembler(store Store, concurrency int) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Assembler{store: store, concurrency: concurrency}
}

// Assemble aggregates every post. Items are read in parallel, each in its
// own session, and returned in input order.
func (a *Assembler) Assemble(ctx context.Context, posts []Post) ([]PostRecord, error) {
	records := make([]PostRecord, len(posts))
	if len(posts) == 0 {
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, post := range posts {
		idx := i
		post := post
		g.Go(func() error {
			record, err := a.assembleOne(gctx, post)
			if err != nil {
				return err
			}
			records[idx] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *Assembler) assembleOne(ctx context.Context, post Post) (PostRecord, error) {
	session := a.store.Open(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	rows, err := session.Run(ctx, queryPostAggregate, map[string]interface{}{
		"id": post.ID,
	})
	if err != nil {
		return PostRecord{}, err
	}

	record := PostRecord{
		Post:       post,
		Counters:   Counters{Likes: []string{}},
		SubAuthors: []Actor{},
	}
	// The post may have been deleted since it was listed
	if len(rows) == 0 {
		return record, nil
	}

	row := rows[0]
	record.Counters = countersFromRecord(row)
	authorship := resolveAuthorship(
		actorPtrFromRecord(row, "proposer"),
		actorPtrFromRecord(row, "publisher"),
		actorsFromNodes(getNodeSliceFromRecord(row, "editors")),
	)
	record.Author = authorship.Author
	record.SubAuthors = authorship.Editors
	return record, nil
}

// Counters reads likes and comment count of one post
func (a *Assembler) Counters(ctx context.Context, session Session, postID string) (Counters, error) {
	rows, err := session.Run(ctx, queryPostCounters, map[string]interface{}{
		"id": postID,
	})
	if err != nil {
		return Counters{}, err
	}
	if len(rows) == 0 {
		return Counters{Likes: []string{}}, nil
	}
	return countersFromRecord(rows[0]), nil
}

func countersFromRecord(record *neo4j.Record) Counters {
	return Counters{
		Likes:    getStringSliceFromRecord(record, "likes"),
		Comments: getInt64FromRecord(record, "comments"),
	}
}
