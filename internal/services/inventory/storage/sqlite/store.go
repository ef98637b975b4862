// Package sqlite provides a SQLite-backed inventory storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/inventag/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/inventag/internal/services/inventory/storage"
	"github.com/louisbranch/inventag/internal/services/inventory/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists inventory state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite inventory store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateItem inserts one item record.
func (s *Store) CreateItem(ctx context.Context, item storage.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(item.ID)
	if err := storage.ValidateItemID(id); err != nil {
		return err
	}
	createdAt := item.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO items (id, name, price, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		strings.TrimSpace(item.Name),
		strings.TrimSpace(item.Price),
		strings.TrimSpace(item.Description),
		strings.TrimSpace(item.CreatedBy),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// GetItem returns one item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (storage.Item, error) {
	if err := ctx.Err(); err != nil {
		return storage.Item{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Item{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Item{}, storage.ErrItemIDRequired
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, price, description, created_by, created_at
		   FROM items
		  WHERE id = ?`,
		id,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Item{}, storage.ErrNotFound
		}
		return storage.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListItems returns one page of items ordered by ID.
func (s *Store) ListItems(ctx context.Context, pageSize int, pageToken string) (storage.ItemPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ItemPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ItemPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.ItemPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	page := storage.ItemPage{
		Items: make([]storage.Item, 0, pageSize),
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, price, description, created_by, created_at
		   FROM items
		  WHERE id > ?
		  ORDER BY id ASC
		  LIMIT ?`,
		pageToken,
		pageSize+1,
	)
	if err != nil {
		return storage.ItemPage{}, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return storage.ItemPage{}, fmt.Errorf("list items: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return storage.ItemPage{}, fmt.Errorf("list items: %w", err)
	}
	if len(page.Items) > pageSize {
		page.NextPageToken = page.Items[pageSize-1].ID
		page.Items = page.Items[:pageSize]
	}
	return page, nil
}

// PutUser inserts or replaces one operator account.
func (s *Store) PutUser(ctx context.Context, user storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	username := strings.TrimSpace(user.Username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(user.PasswordHash) == 0 {
		return fmt.Errorf("password hash is required")
	}
	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash`,
		username,
		user.PasswordHash,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser returns one operator account by username.
func (s *Store) GetUser(ctx context.Context, username string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.User{}, fmt.Errorf("username is required")
	}

	var (
		user      storage.User
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (storage.Item, error) {
	var (
		item      storage.Item
		createdAt int64
	)
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.Description,
		&item.CreatedBy,
		&createdAt,
	); err != nil {
		return storage.Item{}, err
	}
	item.CreatedAt = fromMillis(createdAt)
	return item, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "items.id")
}

var (
	_ storage.ItemStore = (*Store)(nil)
	_ storage.UserStore = (*Store)(nil)
)
