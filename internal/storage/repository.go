// Package storage is the SQLite store adapter, for deployments that keep
// the shared ledger local instead of in a spreadsheet. It implements the
// same ports as the sheets adapter; the schema is managed by embedded
// migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"receiptbook/internal/core"
	ports "receiptbook/internal/sheets"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Ensure interface conformance
var (
	_ ports.LedgerStore = (*SQLiteRepository)(nil)
	_ ports.UserStore   = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, core.ErrStoreUnavailable, err)
}

// LoadAll returns every ledger row in insertion order as a bag of named
// fields, matching the sheets adapter's shape.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.RawRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, name, quantity, category, amount, owner FROM ledger ORDER BY id`)
	if err != nil {
		return nil, unavailable("load ledger", err)
	}
	defer rows.Close()

	var out []core.RawRow
	for rows.Next() {
		var date, name, category, owner string
		var quantity, amount int64
		if err := rows.Scan(&date, &name, &quantity, &category, &amount, &owner); err != nil {
			return nil, unavailable("scan ledger row", err)
		}
		out = append(out, core.RawRow{
			core.ColDate:     date,
			core.ColName:     name,
			core.ColQuantity: strconv.FormatInt(quantity, 10),
			core.ColCategory: category,
			core.ColAmount:   strconv.FormatInt(amount, 10),
			core.ColOwner:    owner,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate ledger rows", err)
	}
	return out, nil
}

// AppendRows inserts items in order inside one transaction, so a failure
// writes nothing.
func (r *SQLiteRepository) AppendRows(ctx context.Context, items []core.LineItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	for _, li := range items {
		if err := li.Validate(); err != nil {
			return 0, fmt.Errorf("validation failed: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin append", err)
	}
	defer tx.Rollback()

	if err := insertItems(ctx, tx, items); err != nil {
		return 0, unavailable("append ledger rows", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit append", err)
	}

	slog.InfoContext(ctx, "Ledger rows appended to SQLite", "rows", len(items))
	return len(items), nil
}

// RewriteAll replaces the whole ledger content with the given raw rows.
// SQLite's type affinity keeps non-numeric cells intact as text, so rows
// the read boundary rejected survive a rewrite untouched. The local
// transaction is an adapter detail; the read-modify-write window stays at
// the caller.
func (r *SQLiteRepository) RewriteAll(ctx context.Context, rows []core.RawRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin rewrite", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger`); err != nil {
		return unavailable("clear ledger", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger (date, name, quantity, category, amount, owner) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return unavailable("prepare rewrite", err)
	}
	defer stmt.Close()
	for _, row := range rows {
		_, err := stmt.ExecContext(ctx, row[core.ColDate], row[core.ColName],
			row[core.ColQuantity], row[core.ColCategory], row[core.ColAmount], row[core.ColOwner])
		if err != nil {
			return unavailable("rewrite ledger", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit rewrite", err)
	}

	slog.InfoContext(ctx, "Ledger rewritten in SQLite", "rows", len(rows))
	return nil
}

// EnsureColumn adds a missing ledger column. The migration schema already
// carries the full set; this keeps parity with the sheets adapter for
// databases created by older builds.
func (r *SQLiteRepository) EnsureColumn(ctx context.Context, name string) error {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('ledger')`)
	if err != nil {
		return unavailable("inspect schema", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return unavailable("scan schema", err)
		}
		if col == name {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("iterate schema", err)
	}

	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE ledger ADD COLUMN %q TEXT NOT NULL DEFAULT ''`, name))
	if err != nil {
		return unavailable("add column", err)
	}
	slog.InfoContext(ctx, "Ledger column added", "column", name)
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, items []core.LineItem) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger (date, name, quantity, category, amount, owner) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, li := range items {
		if _, err := stmt.ExecContext(ctx, li.Date.String(), li.Name, li.Quantity, li.Category, li.Amount, li.Owner); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT username, hashed_password, avatar FROM users ORDER BY rowid`)
	if err != nil {
		return nil, unavailable("load users", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.Username, &u.HashedPassword, &u.Avatar); err != nil {
			return nil, unavailable("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate users", err)
	}
	return out, nil
}

func (r *SQLiteRepository) AppendUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, hashed_password, avatar) VALUES (?, ?, ?)`,
		u.Username, u.HashedPassword, u.Avatar)
	if err != nil {
		return unavailable("append user", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET hashed_password = ?, avatar = ? WHERE username = ?`,
		u.HashedPassword, u.Avatar, u.Username)
	if err != nil {
		return unavailable("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %q: %w", u.Username, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return unavailable("delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	return nil
}
