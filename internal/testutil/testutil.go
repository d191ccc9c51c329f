// Package testutil holds helpers shared by handler and database tests.
package testutil

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
	"libraryapi/internal/platform/postgres"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tables in truncation order.
var Tables = []string{"loans", "books", "readers", "categories"}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// OpenDB connects to TEST_DB_DSN, applies the embedded migrations once per
// test binary and empties every table. The test is skipped when TEST_DB_DSN
// is unset.
func OpenDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Open(ctx, postgres.PoolConfig{DSN: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrateOnce.Do(func() {
		migrateErr = postgres.MigrationSource("").Up(ctx, pool)
	})
	require.NoError(t, migrateErr)

	Truncate(t, pool)
	return pool
}

// Truncate empties every table and restarts the id sequences.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE "+strings.Join(Tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}

// NewRequest builds a request with body encoded as JSON. A string body is
// sent verbatim.
func NewRequest(method, path string, body any) *http.Request {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b)
	}

	r := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if raw != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// Serve runs r through h and decodes the envelope. Bodies that are not JSON
// (preflight responses) leave the envelope zero.
func Serve(h http.Handler, r *http.Request) (*httptest.ResponseRecorder, httpx.Envelope) {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	var env httpx.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

// DecodeData unmarshals the envelope's data field into out.
func DecodeData(t *testing.T, env httpx.Envelope, out any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
