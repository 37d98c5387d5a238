package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Connect opens a pool through the pgx stdlib driver and pings it until
// the database answers or attempts run out.
func Connect(ctx context.Context, dsn string, attempts int) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	attempts = max(attempts, 1)
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return db, nil
		}
		if i < attempts {
			log.Printf("[DB] Ping failed (attempt %d/%d): %v", i, attempts, err)
			time.Sleep(time.Second)
		}
	}

	db.Close()
	return nil, fmt.Errorf("ping database: %w", err)
}

// Migrate applies the embedded schema files in name order. Every file is
// idempotent, so running it on an up-to-date database is a no-op.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		stmt, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		log.Printf("[DB] Applied %s", name)
	}
	return nil
}

// pgErrorCode extracts the SQLSTATE from either driver's error type.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
