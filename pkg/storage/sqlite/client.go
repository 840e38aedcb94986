// Package sqlite provides the SQLite implementation of storage.StateStore.
//
// SQLite is a lightweight, file-based database suitable for a single home
// hub. Each user's state is stored as one JSON document in a TEXT column.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// Client implements StateStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing user states.
	tableName string
}

// Config contains configuration for creating a SQLite StateStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use (default: "user_states").
	TableName string
}

// NewClient creates a new SQLite StateStore client.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "user_states"
	}
	if err := storage.ValidateTableName(tableName); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Load implements storage.StateStore.
func (c *Client) Load(ctx context.Context, userID string) (*model.UserState, error) {
	query := fmt.Sprintf("SELECT state FROM %s WHERE user_id = ?", c.tableName)

	var data string
	err := c.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return storage.DecodeState([]byte(data))
}

// Save implements storage.StateStore.
func (c *Client) Save(ctx context.Context, state *model.UserState) error {
	data, err := storage.EncodeState(state)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query, state.UserID, string(data), time.Now()); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Delete implements storage.StateStore.
func (c *Client) Delete(ctx context.Context, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", c.tableName)
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// ListUsers implements storage.StateStore.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT user_id FROM %s ORDER BY user_id", c.tableName)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListUsers: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
