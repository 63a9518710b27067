package history

import "fmt"

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		project TEXT,
		source TEXT NOT NULL DEFAULT 'cli',
		result_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// migrate upgrades databases created by older versions.
func (s *Store) migrate() error {
	// Migration 1: source column, added with the web and MCP frontends
	if err := s.addColumnIfMissing("searches", "source", "TEXT NOT NULL DEFAULT 'cli'"); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}
	return nil
}

func (s *Store) addColumnIfMissing(table, column, definition string) error {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Info("adding column", "table", table, "column", column)
	_, err = s.conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
