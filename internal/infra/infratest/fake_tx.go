// README: In-memory transaction doubles for service tests that use fake repositories.
package infratest

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool hands out a fresh Tx per Begin and counts commits and rollbacks.
// Safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	BeginErr  error
	Begins    int
	Commits   int
	Rollbacks int
}

func (p *Pool) Begin(context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BeginErr != nil {
		return nil, p.BeginErr
	}
	p.Begins++
	return &Tx{pool: p}, nil
}

func (p *Pool) Counts() (begins, commits, rollbacks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Begins, p.Commits, p.Rollbacks
}

// Tx only implements Commit and Rollback; the embedded pgx.Tx is nil, so
// any query issued against it panics. Fake repositories must ignore it.
type Tx struct {
	pgx.Tx
	pool *Pool
	done bool
}

func (t *Tx) Commit(context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	if !t.done {
		t.done = true
		t.pool.Commits++
	}
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	if !t.done {
		t.done = true
		t.pool.Rollbacks++
	}
	return nil
}

// ErrNoDatabase is returned by the query methods on Pool.
var ErrNoDatabase = errors.New("infratest: no database behind fake pool")

func (p *Pool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrNoDatabase
}

func (p *Pool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrNoDatabase
}

func (p *Pool) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

type errRow struct{}

func (errRow) Scan(...any) error { return ErrNoDatabase }
