package app

import (
	"database/sql"
	"fmt"

	"orderline/internal/config"
	"orderline/internal/db"
	"orderline/internal/engine"
	"orderline/internal/migrate"
)

// OpenEngine prepares a workspace for use: the data directory is created,
// the database opened and migrated, and orderline.yml loaded (defaults when
// absent). The caller owns the returned connection.
func OpenEngine(workspace string) (engine.Engine, *sql.DB, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return engine.Engine{}, nil, fmt.Errorf("ensure workspace: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	return engine.New(conn, cfg), conn, nil
}
