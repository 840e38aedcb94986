// Package postgres provides the PostgreSQL implementation of
// storage.StateStore. States are stored as JSONB documents.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// Client is a PostgreSQL StateStore client.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
}

// DSN builds the lib/pq connection string for cfg.
func (cfg *Config) DSN() string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "user_states"
	}
	if err := storage.ValidateTableName(tableName); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
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

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id VARCHAR(255) PRIMARY KEY,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Load implements storage.StateStore.
func (c *Client) Load(ctx context.Context, userID string) (*model.UserState, error) {
	query := fmt.Sprintf("SELECT state FROM %s WHERE user_id = $1", c.tableName)

	var data []byte
	err := c.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return storage.DecodeState(data)
}

// Save implements storage.StateStore.
func (c *Client) Save(ctx context.Context, state *model.UserState) error {
	data, err := storage.EncodeState(state)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, state, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query, state.UserID, string(data)); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Delete implements storage.StateStore.
func (c *Client) Delete(ctx context.Context, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", c.tableName)
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
