package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the SQL flavour and the database/sql driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

const pgUniqueViolation = "23505"

const transactionColumns = "id, user_id, type, date, description, amount_cents, category, account"

// SQLRepository implements Store on top of database/sql. Queries are written
// with ? placeholders and rebound to $N for postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the sqlite file at dbPath
// and brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	if err := RunMigrations(SQLite, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewSQLRepository(db, SQLite), nil
}

// NewPostgresRepository connects to dsn through pgx and migrates the schema.
func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	if err := RunMigrations(Postgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewSQLRepository(db, Postgres), nil
}

// NewSQLRepository wraps an already migrated handle.
func NewSQLRepository(db *sql.DB, d Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d}
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		r.rebind("INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id"),
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %q: %w", username, core.ErrConflict)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "username", username)
	return id, nil
}

func (r *SQLRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		r.rebind("SELECT id, username, password_hash FROM users WHERE username = ?"),
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, ownerID int64, f core.TransactionFields) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind(`INSERT INTO transactions (user_id, type, date, description, amount_cents, category, account)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING `+transactionColumns),
		ownerID, string(f.Type), f.Date.String(), f.Description, f.Amount.Cents(), f.Category, f.Account,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", tx.ID,
		"user_id", ownerID,
		"type", tx.Type,
		"amount_cents", f.Amount.Cents())

	return tx, nil
}

func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind("SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC"),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLRepository) Update(ctx context.Context, ownerID, id int64, f core.TransactionFields) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind(`UPDATE transactions
SET type = ?, date = ?, description = ?, amount_cents = ?, category = ?, account = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?
RETURNING `+transactionColumns),
		string(f.Type), f.Date.String(), f.Description, f.Amount.Cents(), f.Category, f.Account, id, ownerID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		r.rebind("DELETE FROM transactions WHERE id = ? AND user_id = ?"),
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx    core.Transaction
		typ   string
		date  dateColumn
		cents int64
	)
	if err := s.Scan(&tx.ID, &tx.OwnerID, &typ, &date, &tx.Description, &cents, &tx.Category, &tx.Account); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Date = date.Date
	tx.Amount = core.FromCents(cents)
	return tx, nil
}

// dateColumn scans a TEXT 'YYYY-MM-DD' (sqlite) or a DATE (postgres).
type dateColumn struct {
	core.Date
}

func (c *dateColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		c.Date = core.NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		d, err := core.ParseDate(v)
		c.Date = d
		return err
	case []byte:
		d, err := core.ParseDate(string(v))
		c.Date = d
		return err
	default:
		return fmt.Errorf("unsupported date column type %T", src)
	}
}

// rebind rewrites ? placeholders to $1..$N for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
