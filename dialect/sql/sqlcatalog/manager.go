package sqlcatalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
	"github.com/syssam/vellum/dialect/sql"
)

// Manager resolves table metadata through a dialect provider and caches it.
// Concurrent lookups of the same table share a single catalog load; lookups
// of other tables never wait on it.
type Manager struct {
	provider sql.Provider
	querier  dialect.ExecQuerier
	cache    *Cache
	log      *slog.Logger
	validate bool
	loads    singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache sets the cache of the manager. By default every manager owns a
// private cache.
func WithCache(c *Cache) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}

// WithLogger sets the logger used for load and eviction events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithValidation enables or disables metadata validation after a load.
// Validation is enabled by default.
func WithValidation(enabled bool) Option {
	return func(m *Manager) {
		m.validate = enabled
	}
}

// NewManager returns a catalog manager reading metadata with p's catalog
// queries through q.
//
//	drv, _ := sql.Open(dialect.Postgres, "pgx", dsn)
//	catalog := sqlcatalog.NewManager(sql.NewPostgres(), drv,
//	    sqlcatalog.WithLogger(logger),
//	)
//	users, err := catalog.GetTable(ctx, "", "users")
func NewManager(p sql.Provider, q dialect.ExecQuerier, opts ...Option) *Manager {
	m := &Manager{
		provider: p,
		querier:  q,
		log:      slog.Default(),
		validate: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = NewCache()
	}
	return m
}

// Provider returns the dialect provider of the manager.
func (m *Manager) Provider() sql.Provider { return m.provider }

// Cache returns the metadata cache of the manager.
func (m *Manager) Cache() *Cache { return m.cache }

func (m *Manager) schema(schema string) string {
	if schema == "" {
		return m.provider.DefaultSchema()
	}
	return schema
}

// GetTable returns the metadata of a table, loading and caching it on the
// first lookup. An empty schema selects the provider's default schema. A
// table without columns in the catalog is reported as NotFound.
func (m *Manager) GetTable(ctx context.Context, schema, name string) (*TableMetadata, error) {
	if strings.TrimSpace(name) == "" {
		return nil, vellum.NewInvalidArgumentError("table", "table name must not be empty")
	}
	schema = m.schema(schema)
	if t, ok := m.cache.Get(schema, name); ok {
		return t, nil
	}
	v, err, _ := m.loads.Do(Key(schema, name), func() (any, error) {
		if t, ok := m.cache.Get(schema, name); ok {
			return t, nil
		}
		start := time.Now()
		t, err := m.load(ctx, schema, name)
		if err != nil {
			return nil, err
		}
		m.cache.Set(t)
		m.log.DebugContext(ctx, "catalog table loaded",
			"schema", schema,
			"table", name,
			"columns", len(t.columns),
			"duration", time.Since(start),
		)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TableMetadata), nil
}

// GetColumn returns a column of a table that was already resolved with
// GetTable. It never queries the database.
func (m *Manager) GetColumn(schema, table, column string) (*ColumnMetadata, error) {
	schema = m.schema(schema)
	t, ok := m.cache.Get(schema, table)
	if !ok {
		return nil, vellum.NewNotFoundError("table", qualify(schema, table))
	}
	c, ok := t.Column(column)
	if !ok {
		return nil, vellum.NewNotFoundError("column", t.QualifiedName()+"."+column)
	}
	return c, nil
}

// TableExists reports whether the table exists. A cached table exists by
// definition; otherwise the catalog is probed and, on a hit, the table is
// loaded into the cache.
func (m *Manager) TableExists(ctx context.Context, schema, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, vellum.NewInvalidArgumentError("table", "table name must not be empty")
	}
	schema = m.schema(schema)
	if _, ok := m.cache.Get(schema, name); ok {
		return true, nil
	}
	q := m.provider.TableExistsQuery(schema, name)
	found := false
	err := sql.QueryRows(ctx, m.querier, q.Text, q.Args, func(sql.ColumnScanner) error {
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("sqlcatalog: probe %s: %w", qualify(schema, name), err)
	}
	if !found {
		return false, nil
	}
	if _, err := m.GetTable(ctx, schema, name); err != nil {
		return false, err
	}
	return true, nil
}

// RefreshCache evicts a table, with its columns, from the cache. The next
// lookup reloads it. It reports whether the table was cached.
func (m *Manager) RefreshCache(schema, name string) bool {
	schema = m.schema(schema)
	evicted := m.cache.Delete(schema, name)
	m.log.Debug("catalog table evicted", "schema", schema, "table", name, "cached", evicted)
	return evicted
}

// RefreshSchema evicts every cached table of a schema and returns how many
// were removed.
func (m *Manager) RefreshSchema(schema string) int {
	schema = m.schema(schema)
	n := m.cache.DeletePrefix(schema)
	m.log.Debug("catalog schema evicted", "schema", schema, "tables", n)
	return n
}

// Warm loads the given tables concurrently. Names are either "table" or
// "schema.table".
func (m *Manager) Warm(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		schema, table := SplitName(name)
		g.Go(func() error {
			_, err := m.GetTable(ctx, schema, table)
			return err
		})
	}
	return g.Wait()
}

// SplitName splits "schema.table" into its parts. A name without a dot has
// an empty schema.
func SplitName(name string) (schema, table string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
