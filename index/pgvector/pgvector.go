package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq" // postgres driver
	"github.com/pgvector/pgvector-go"

	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/index"
)

// Compile-time check to ensure Index satisfies index.Index.
var _ index.Index = (*Index)(nil)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// loadBatchSize is the number of rows inserted per statement batch in Load.
const loadBatchSize = 500

// Index searches embeddings stored in PostgreSQL.
type Index struct {
	db     *sql.DB
	table  string
	dim    int
	metric distance.Metric
	n      int
}

// Connect opens a database handle using the lib/pq driver.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Open attaches to an existing embedding table.
//
// The table must hold rows 0..n-1 without gaps, otherwise row alignment with
// the catalog cannot hold and an error is returned.
func Open(ctx context.Context, db *sql.DB, table string, dim int, metric distance.Metric) (*Index, error) {
	if err := validate(table, dim, metric); err != nil {
		return nil, err
	}

	var count, next int
	query := `SELECT count(*), coalesce(max(row_id) + 1, 0) FROM ` + table
	if err := db.QueryRowContext(ctx, query).Scan(&count, &next); err != nil {
		return nil, fmt.Errorf("count rows in %s: %w", table, err)
	}
	if count != next {
		return nil, fmt.Errorf("table %s has gaps: %d rows but max row_id %d", table, count, next-1)
	}

	return &Index{db: db, table: table, dim: dim, metric: metric, n: count}, nil
}

// Load replaces the content of table with the rows of src and returns an
// Index over it.
func Load(ctx context.Context, db *sql.DB, table string, src *index.Flat) (*Index, error) {
	if err := validate(table, src.Dimension(), src.Metric()); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (row_id integer PRIMARY KEY, embedding vector(%d) NOT NULL)`, table, src.Dimension()),
		`TRUNCATE ` + table,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (row_id, embedding) VALUES ($1, $2)`)
	if err != nil {
		return nil, err
	}
	defer insert.Close()

	for row := 0; row < src.Len(); row++ {
		if row%loadBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, _ := src.Vector(uint32(row))
		if _, err := insert.ExecContext(ctx, row, pgvector.NewVector(v)); err != nil {
			return nil, fmt.Errorf("insert row %d: %w", row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Index{db: db, table: table, dim: src.Dimension(), metric: src.Metric(), n: src.Len()}, nil
}

// Dimension implements index.Index.
func (x *Index) Dimension() int { return x.dim }

// Metric implements index.Index.
func (x *Index) Metric() distance.Metric { return x.metric }

// Len implements index.Index.
func (x *Index) Len() int { return x.n }

// Search implements index.Index.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	if err := index.CheckQuery(x, query, k); err != nil {
		return nil, err
	}
	if k == 0 || x.n == 0 {
		return []index.Result{}, nil
	}
	k = min(k, x.n)

	q := query
	if x.metric.Normalizes() {
		if n, ok := distance.NormalizeL2Copy(query); ok {
			q = n
		}
	}

	rows, err := x.db.QueryContext(ctx, searchQuery(x.table, x.metric), pgvector.NewVector(q), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	results := make([]index.Result, 0, k)
	for rows.Next() {
		var (
			row  int64
			dist float64
		)
		if err := rows.Scan(&row, &dist); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, index.Result{Row: uint32(row), Distance: adjust(x.metric, dist)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// operator returns the pgvector distance operator for m.
func operator(m distance.Metric) string {
	switch m {
	case distance.MetricL2:
		return "<->"
	case distance.MetricDot:
		return "<#>"
	default:
		return "<=>"
	}
}

func searchQuery(table string, m distance.Metric) string {
	return `SELECT row_id, embedding ` + operator(m) + ` $1 AS distance FROM ` + table +
		` ORDER BY distance, row_id LIMIT $2`
}

// adjust maps a pgvector distance onto the flat index scale. pgvector's <->
// is the plain Euclidean distance while the flat index reports it squared.
func adjust(m distance.Metric, d float64) float32 {
	if m == distance.MetricL2 {
		return float32(d * d)
	}
	return float32(d)
}

func validate(table string, dim int, metric distance.Metric) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if dim <= 0 {
		return index.ErrInvalidDimension
	}
	if !metric.Valid() {
		return fmt.Errorf("unsupported metric: %v", metric)
	}
	return nil
}
