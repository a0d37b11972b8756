package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return err
	}

	PostgresDB = db
	return InitPostgresTables(db)
}

// InitPostgresTables creates the community tables if they don't exist
func InitPostgresTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS communities (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			name VARCHAR(100) NOT NULL,
			description TEXT,
			category VARCHAR(50) NOT NULL DEFAULT 'general',
			tags TEXT[] NOT NULL DEFAULT '{}',
			created_by VARCHAR(64) NOT NULL,
			member_count INTEGER NOT NULL DEFAULT 1,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Members reference Mongo user ids, hence VARCHAR rather than a foreign key
		`CREATE TABLE IF NOT EXISTS community_members (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			community_id UUID NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			user_id VARCHAR(64) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'member',
			joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(community_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS community_messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			community_id UUID NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			user_id VARCHAR(64) NOT NULL,
			username VARCHAR(100) NOT NULL,
			content TEXT NOT NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_communities_name_lower ON communities(LOWER(name))`,
		`CREATE INDEX IF NOT EXISTS idx_communities_category ON communities(category)`,
		`CREATE INDEX IF NOT EXISTS idx_community_members_community_id ON community_members(community_id)`,
		`CREATE INDEX IF NOT EXISTS idx_community_members_user_id ON community_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_community_messages_community_created ON community_messages(community_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
