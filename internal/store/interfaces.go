package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lintel.app/tracker/internal/issue"
)

var ErrNotFound = errors.New("not found")

type IssueStore interface {
	GetByKey(ctx context.Context, key string) (*issue.Issue, error)
	Upsert(ctx context.Context, record *issue.Issue) error
	Delete(ctx context.Context, key string) error
	ListByProject(ctx context.Context, projectKey string) ([]*issue.Issue, error)
}

// DBTX is the subset of pgx operations the stores need; satisfied by both
// *pgxpool.Pool and pgx.Tx, so stores work inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the typed stores over one database handle.
type Stores struct {
	db DBTX
}

func NewStores(db DBTX) *Stores {
	return &Stores{db: db}
}

func (s *Stores) Issues() IssueStore {
	return newIssueStore(s.db)
}

var _ DBTX = (*pgxpool.Pool)(nil)
