package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "tribehub/backend/pkg/errors"
)

// ConnConfig is the explicit connection configuration of the store adapter
type ConnConfig struct {
	URI                   string
	User                  string
	Password              string
	Database              string
	MaxConnectionPoolSize int
}

// Store hands out sessions scoped to one repository call
type Store interface {
	Open(ctx context.Context, mode neo4j.AccessMode) Session
}

// Session runs parameterized statements. Each Run is one transaction.
// Sessions are not safe for concurrent use.
type Session interface {
	Run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error)
	Close(ctx context.Context) error
}

// Neo4jStore is the Store backed by the official driver
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore creates the driver and verifies connectivity
func NewNeo4jStore(ctx context.Context, cfg ConnConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
		},
	)
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(cfg.URI, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(cfg.URI, err)
	}

	return NewNeo4jStoreFromDriver(driver, cfg.Database), nil
}

// NewNeo4jStoreFromDriver wraps an existing driver
func NewNeo4jStoreFromDriver(driver neo4j.DriverWithContext, database string) *Neo4jStore {
	return &Neo4jStore{driver: driver, database: database}
}

// Open starts a session. Sessions share the driver's bookmark manager, so a
// read in one session observes writes committed by another.
func (s *Neo4jStore) Open(ctx context.Context, mode neo4j.AccessMode) Session {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:      mode,
		DatabaseName:    s.database,
		BookmarkManager: s.driver.ExecuteQueryBookmarkManager(),
	})
	return &neo4jSession{session: session, mode: mode}
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type neo4jSession struct {
	session neo4j.SessionWithContext
	mode    neo4j.AccessMode
}

// Run executes the statement in a managed transaction, so transient
// failures (deadlocks, leader switches) are retried by the driver.
func (s *neo4jSession) Run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	}

	var (
		out any
		err error
	)
	if s.mode == neo4j.AccessModeRead {
		out, err = s.session.ExecuteRead(ctx, work)
	} else {
		out, err = s.session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	records, _ := out.([]*neo4j.Record)
	return records, nil
}

func (s *neo4jSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}
