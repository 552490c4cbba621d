package telemetry

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OpenDB opens an instrumented Postgres handle scoped to schema. Every
// pooled connection gets the schema's search_path through the DSN, and pool
// statistics are exported as metrics.
func OpenDB(dsn, schema string) (*sql.DB, error) {
	attrs := []attribute.KeyValue{semconv.DBSystemPostgreSQL}
	if schema != "" {
		dsn = withSearchPath(dsn, schema)
		attrs = append(attrs, semconv.DBNamespace(schema))
	}

	db, err := otelsql.Open("postgres", dsn, otelsql.WithAttributes(attrs...))
	if err != nil {
		return nil, err
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(attrs...)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register db stats metrics: %w", err)
	}
	return db, nil
}

// withSearchPath appends search_path to a URL or key/value DSN.
func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}
