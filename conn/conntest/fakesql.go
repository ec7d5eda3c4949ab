// Package conntest provides a scripted database/sql driver so repositories
// can be tested without a MySQL server. Each statement the code runs must
// match the next Step in order.
package conntest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// Step is one expected statement. Query is matched as a substring. Columns
// and Rows answer a query; Affected answers an exec.
type Step struct {
	Query    string
	Columns  []string
	Rows     [][]driver.Value
	Affected int64
	Err      error
}

// Call is a statement the code actually ran.
type Call struct {
	Query string
	Args  []driver.Value
}

type Script struct {
	mu    sync.Mutex
	steps []Step
	Calls []Call
}

var (
	registerOnce sync.Once
	scripts      sync.Map
	seq          atomic.Int64
)

// Open returns a DB bound to steps. The test fails if a step is left unused.
func Open(t testing.TB, steps ...Step) (*sql.DB, *Script) {
	t.Helper()
	registerOnce.Do(func() { sql.Register("conntest", fakeDriver{}) })
	s := &Script{steps: steps}
	dsn := strconv.FormatInt(seq.Add(1), 10)
	scripts.Store(dsn, s)
	db, err := sql.Open("conntest", dsn)
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
		scripts.Delete(dsn)
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.steps) > 0 {
			t.Errorf("unused statements: %d, next %q", len(s.steps), s.steps[0].Query)
		}
	})
	return db, s
}

func (s *Script) next(query string, args []driver.NamedValue) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	s.Calls = append(s.Calls, Call{Query: query, Args: vals})
	if len(s.steps) == 0 {
		return Step{}, fmt.Errorf("unexpected statement %q", query)
	}
	st := s.steps[0]
	if !strings.Contains(query, st.Query) {
		return Step{}, fmt.Errorf("statement %q does not match %q", query, st.Query)
	}
	s.steps = s.steps[1:]
	return st, st.Err
}

type fakeDriver struct{}

func (fakeDriver) Open(dsn string) (driver.Conn, error) {
	v, ok := scripts.Load(dsn)
	if !ok {
		return nil, errors.New("conntest: unknown script")
	}
	return &fakeConn{s: v.(*Script)}, nil
}

type fakeConn struct{ s *Script }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("conntest: prepared statements are not supported")
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("conntest: no transactions") }

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	st, err := c.s.next(query, args)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(st.Affected), nil
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	st, err := c.s.next(query, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{cols: st.Columns, rows: st.Rows}, nil
}

type fakeRows struct {
	cols []string
	rows [][]driver.Value
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}
