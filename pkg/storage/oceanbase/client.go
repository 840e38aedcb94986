// Package oceanbase provides the OceanBase implementation of
// storage.StateStore over the MySQL wire protocol. Any MySQL-compatible
// server works.
package oceanbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// Client is an OceanBase client.
type Client struct {
	db        *sql.DB
	config    *Config
	tableName string
}

// Config contains OceanBase configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
}

// DSN builds the go-sql-driver/mysql connection string for cfg.
func (cfg *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	return mc.FormatDSN()
}

// NewClient creates a new OceanBase client.
func NewClient(cfg *Config) (*Client, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "user_states"
	}
	if err := storage.ValidateTableName(tableName); err != nil {
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	client := &Client{
		db:        db,
		config:    cfg,
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
			user_id VARCHAR(128) PRIMARY KEY,
			state LONGTEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
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
		INSERT INTO %s (user_id, state) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query, state.UserID, string(data)); err != nil {
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
