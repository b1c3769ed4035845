package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"querypilot/config"
	"querypilot/errs"
	"querypilot/models"
)

// Runner executes generated SQL against the target database.
type Runner struct {
	pool *Pool
}

func NewRunner(pool *Pool) *Runner {
	return &Runner{pool: pool}
}

func (r *Runner) Dialect() string {
	return r.pool.Dialect()
}

// RunSQL executes query on a scoped connection. Database errors are query
// errors; nothing is retried.
func (r *Runner) RunSQL(ctx context.Context, query string) (models.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return models.QueryResult{}, errs.Query("empty SQL statement", nil)
	}

	var result models.QueryResult
	err := r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return classifyQueryErr(err)
		}
		defer rows.Close()

		result, err = scanRows(rows)
		if err != nil {
			return classifyQueryErr(err)
		}
		return nil
	})
	if err != nil {
		return models.QueryResult{}, err
	}
	return result, nil
}

func classifyQueryErr(err error) error {
	if errors.Is(err, driver.ErrBadConn) {
		return errs.Connection("database connection lost", err)
	}
	return errs.Query("query failed", err)
}

func scanRows(rows *sql.Rows) (models.QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return models.QueryResult{}, err
	}
	columnTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			columnTypes[i] = ct.DatabaseTypeName()
		}
	}

	resultRows := [][]any{}
	for rows.Next() {
		// Create a slice of interface{} to hold the values
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return models.QueryResult{}, err
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return models.QueryResult{}, err
	}

	return models.QueryResult{Columns: columns, ColumnTypes: columnTypes, Rows: resultRows}, nil
}

// normalizeValues converts driver values into JSON friendly ones.
func normalizeValues(values []any) []any {
	row := make([]any, len(values))
	for i, val := range values {
		switch v := val.(type) {
		case []byte:
			row[i] = string(v)
		case time.Time:
			row[i] = v.UTC().Format(time.RFC3339Nano)
		default:
			row[i] = v
		}
	}
	return row
}

// SchemaColumns reads the columns catalog of the target database.
func (r *Runner) SchemaColumns(ctx context.Context) ([]models.ColumnInfo, error) {
	var query string
	switch r.pool.Driver() {
	case config.DriverSQLite:
		query = `SELECT 'main', 'main', m.name, p.name, p.type
			FROM sqlite_master m JOIN pragma_table_info(m.name) p
			WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
			ORDER BY m.name, p.cid`
	case config.DriverSQLServer:
		query = `SELECT TABLE_CATALOG, TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, DATA_TYPE
			FROM INFORMATION_SCHEMA.COLUMNS
			ORDER BY TABLE_SCHEMA, TABLE_NAME, ORDINAL_POSITION`
	default:
		query = `SELECT table_catalog, table_schema, table_name, column_name, data_type
			FROM information_schema.columns
			WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY table_schema, table_name, ordinal_position`
	}

	var columns []models.ColumnInfo
	err := r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return classifyQueryErr(err)
		}
		defer rows.Close()

		for rows.Next() {
			var c models.ColumnInfo
			var catalog, schema sql.NullString
			if err := rows.Scan(&catalog, &schema, &c.Table, &c.Column, &c.DataType); err != nil {
				return classifyQueryErr(err)
			}
			c.Catalog, c.Schema = catalog.String, schema.String
			columns = append(columns, c)
		}
		if err := rows.Err(); err != nil {
			return classifyQueryErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read columns catalog: %w", err)
	}
	return columns, nil
}
