package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and Execute implementations. It exposes no write path.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	// Classify turns a driver error into an execution failure.
	// When nil, only the error text is kept.
	Classify func(error) *core.ExecError

	// ReadOnlyTx runs Execute inside a read-only transaction.
	ReadOnlyTx bool
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Execute runs sqlStr and captures its rows or its failure.
//
// SQL errors are returned inside the result. The error return is reserved
// for a missing connection and for cancellation of ctx.
func (b *BaseSQLAdapter) Execute(ctx context.Context, sqlStr string) (*core.ExecResult, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	var q interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	} = b.DB

	if b.ReadOnlyTx {
		tx, err := b.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		q = tx
	}

	rows, err := q.QueryContext(ctx, sqlStr)
	if err != nil {
		return b.failure(ctx, sqlStr, err)
	}
	defer func() { _ = rows.Close() }()

	set, err := scanRows(rows)
	if err != nil {
		return b.failure(ctx, sqlStr, err)
	}

	if b.Logger != nil {
		b.Logger.Debug("statement executed", slog.Int("rows", set.Len()))
	}
	return &core.ExecResult{Rows: set}, nil
}

func (b *BaseSQLAdapter) failure(ctx context.Context, sqlStr string, err error) (*core.ExecResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var execErr *core.ExecError
	if b.Classify != nil {
		execErr = b.Classify(err)
	}
	if execErr == nil {
		execErr = &core.ExecError{Message: err.Error()}
	}

	if b.Logger != nil {
		b.Logger.Debug("statement failed", slog.String("code", execErr.Code), slog.String("error", execErr.Message))
	}
	return core.NewExecFailure(sqlStr, execErr), nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses defaultSchema if not specified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSchema, table
}

// GetTableMetadataCommon provides a shared implementation of GetTableMetadata
// for databases exposing information_schema with $N placeholders.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table, defaultSchema string) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	schema, tableName := ParseQualifiedName(table, defaultSchema)

	rows, err := b.DB.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", schema, tableName) //nolint:gosec // Table names are from metadata
	var rowCount int64
	if err := b.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &core.TableMetadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}
