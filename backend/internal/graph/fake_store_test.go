package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// fakeStore answers statements from scripted handlers and records every
// call with its bound parameters.
type fakeStore struct {
	mu       sync.Mutex
	calls    []fakeCall
	handlers map[string]func(params map[string]interface{}) ([]*neo4j.Record, error)
	fallback func(query string, params map[string]interface{}) ([]*neo4j.Record, error)
	opened   int
	closed   int
}

type fakeCall struct {
	Query  string
	Params map[string]interface{}
	Mode   neo4j.AccessMode
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		handlers: make(map[string]func(params map[string]interface{}) ([]*neo4j.Record, error)),
	}
}

func (f *fakeStore) on(query string, handler func(params map[string]interface{}) ([]*neo4j.Record, error)) {
	f.handlers[query] = handler
}

func (f *fakeStore) returns(query string, records ...*neo4j.Record) {
	f.on(query, func(map[string]interface{}) ([]*neo4j.Record, error) {
		return records, nil
	})
}

func (f *fakeStore) fails(query string, err error) {
	f.on(query, func(map[string]interface{}) ([]*neo4j.Record, error) {
		return nil, err
	})
}

func (f *fakeStore) Open(ctx context.Context, mode neo4j.AccessMode) Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	return &fakeSession{store: f, mode: mode}
}

func (f *fakeStore) callsTo(query string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, call := range f.calls {
		if call.Query == query {
			out = append(out, call)
		}
	}
	return out
}

func (f *fakeStore) allCalls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func (f *fakeStore) sessionsBalanced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened == f.closed
}

type fakeSession struct {
	store *fakeStore
	mode  neo4j.AccessMode
}

func (s *fakeSession) Run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	s.store.mu.Lock()
	s.store.calls = append(s.store.calls, fakeCall{Query: query, Params: params, Mode: s.mode})
	handler, ok := s.store.handlers[query]
	fallback := s.store.fallback
	s.store.mu.Unlock()

	if ok {
		return handler(params)
	}
	if fallback != nil {
		return fallback(query, params)
	}
	return nil, nil
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.closed++
	return nil
}

// ============================================================================
// Fixtures
// ============================================================================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequentialIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type recordedOutcome struct {
	Operation string
	Outcome   string
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
}

func (o *recordingObserver) Observe(operation, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, recordedOutcome{Operation: operation, Outcome: outcome})
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(store *fakeStore, opts ...Option) *Repository {
	base := []Option{
		WithClock(fixedClock{t: testNow}),
		WithIDGenerator(&sequentialIDs{}),
		WithLogger(zap.NewNop()),
		WithAggregationConcurrency(4),
	}
	return NewRepository(store, append(base, opts...)...)
}

func rec(pairs ...interface{}) *neo4j.Record {
	record := &neo4j.Record{}
	for i := 0; i+1 < len(pairs); i += 2 {
		record.Keys = append(record.Keys, pairs[i].(string))
		record.Values = append(record.Values, pairs[i+1])
	}
	return record
}

func postNode(id string, published bool, creationDate int64) neo4j.Node {
	return neo4j.Node{
		Labels: []string{LabelPost},
		Props: map[string]interface{}{
			"id":                id,
			"title":             "title of " + id,
			"content":           "content of " + id,
			"creation_date":     creationDate,
			"modification_date": creationDate,
			"files_list":        []interface{}{"a.png"},
			"published":         published,
			"region":            "centre",
			"tribe":             "ewondo",
		},
	}
}

func commentNode(id string, isResponse bool) neo4j.Node {
	return neo4j.Node{
		Labels: []string{LabelComment},
		Props: map[string]interface{}{
			"id":            id,
			"content":       "comment " + id,
			"creation_date": int64(1),
			"edited":        false,
			"is_response":   isResponse,
		},
	}
}

func subscriberNode(id string) neo4j.Node {
	return neo4j.Node{
		Labels: []string{LabelSubscriber},
		Props:  map[string]interface{}{"id": id, "name": "subscriber " + id, "password": "hash"},
	}
}

func expertNode(id string) neo4j.Node {
	return neo4j.Node{
		Labels: []string{LabelExpert},
		Props:  map[string]interface{}{"id": id, "name": "expert " + id},
	}
}

// aggregateRecord builds a queryPostAggregate row; nil actors are absent edges
func aggregateRecord(likes []string, comments int64, proposer, publisher *neo4j.Node, editors ...neo4j.Node) *neo4j.Record {
	likeValues := make([]interface{}, 0, len(likes))
	for _, id := range likes {
		likeValues = append(likeValues, id)
	}
	editorValues := make([]interface{}, 0, len(editors))
	for _, editor := range editors {
		editorValues = append(editorValues, editor)
	}

	var proposerValue, publisherValue interface{}
	if proposer != nil {
		proposerValue = *proposer
	}
	if publisher != nil {
		publisherValue = *publisher
	}
	return rec(
		"likes", likeValues,
		"comments", comments,
		"proposer", proposerValue,
		"publisher", publisherValue,
		"editors", editorValues,
	)
}

func probeRecord(p probeResult) *neo4j.Record {
	posts := make([]interface{}, 0, len(p.CommentPosts))
	for _, id := range p.CommentPosts {
		posts = append(posts, id)
	}
	return rec(
		"post_exists", p.PostExists,
		"post_published", p.PostPublished,
		"comment_exists", p.CommentExists,
		"comment_is_response", p.CommentIsResponse,
		"comment_posts", posts,
		"is_subscriber", p.IsSubscriber,
		"is_expert", p.IsExpert,
	)
}
