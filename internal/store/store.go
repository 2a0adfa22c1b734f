// Package store provides SQLite-backed persistence for the document
// hierarchy (Project → ContextType → Artifact → Document), context
// files, and the append-only AI interaction / routing pattern logs.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS context_types (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, name)
);

CREATE TABLE IF NOT EXISTS artifacts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	context_type_id INTEGER NOT NULL REFERENCES context_types(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'active'
		CHECK(status IN ('active', 'archived', 'completed')),
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(context_type_id, name)
);

CREATE TABLE IF NOT EXISTS documents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	artifact_id INTEGER NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
	filename    TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	metadata    TEXT,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(artifact_id, filename)
);

CREATE TABLE IF NOT EXISTS context_files (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	content         TEXT NOT NULL,
	project_id      INTEGER REFERENCES projects(id) ON DELETE CASCADE,
	context_type_id INTEGER REFERENCES context_types(id) ON DELETE CASCADE,
	artifact_id     INTEGER REFERENCES artifacts(id) ON DELETE CASCADE,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ai_interactions (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id        INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	section            TEXT,
	item_text          TEXT NOT NULL,
	ai_model           TEXT NOT NULL,
	query_sent         TEXT NOT NULL,
	response_received  TEXT NOT NULL,
	routing_confidence REAL,
	routing_reason     TEXT,
	user_override      INTEGER NOT NULL DEFAULT 0,
	timestamp          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ai_interactions_document ON ai_interactions(document_id);

CREATE TABLE IF NOT EXISTS routing_patterns (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	content_pattern  TEXT NOT NULL,
	suggested_model  TEXT NOT NULL,
	corrected_model  TEXT,
	confidence_score REAL NOT NULL,
	timestamp        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store defines the persistence operations the document services
// depend on. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing.
type Store interface {
	CreateProject(name string) (*models.Project, error)
	ProjectByName(name string) (*models.Project, error)
	ListProjects() ([]models.Project, error)

	CreateContextType(projectID int64, name string) (*models.ContextType, error)
	ContextType(projectID int64, name string) (*models.ContextType, error)
	ListContextTypes(projectID int64) ([]models.ContextType, error)

	CreateArtifact(contextTypeID int64, name, status string) (*models.Artifact, error)
	Artifact(contextTypeID int64, name string) (*models.Artifact, error)
	ListArtifacts(contextTypeID int64, status string) ([]models.Artifact, error)
	UpdateArtifactStatus(id int64, status string) error

	CreateDocument(artifactID int64, filename, content, metadata string) (*models.Document, error)
	Document(artifactID int64, filename string) (*models.Document, error)
	ListDocuments(artifactID int64) ([]models.Document, error)
	UpdateDocument(artifactID int64, filename string, content, metadata *string) (*models.Document, error)
	DeleteDocument(artifactID int64, filename string) error
	SearchDocuments(projectID int64, query string, limit int) ([]SearchResult, error)

	UpsertContextFile(f models.ContextFile) (*models.ContextFile, error)
	ProjectContext(projectID int64) (*models.ContextFile, error)
	ContextTypeContext(contextTypeID int64) (*models.ContextFile, error)
	ArtifactContext(artifactID int64) (*models.ContextFile, error)

	CreateAIInteraction(i models.AIInteraction) (*models.AIInteraction, error)
	DocumentInteractions(documentID int64) ([]models.AIInteraction, error)

	CreateRoutingPattern(p models.RoutingPattern) error
	RecentRoutingPatterns(limit int) ([]models.RoutingPattern, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// classifyInsert maps SQLite uniqueness violations to the
// already-exists sentinel so callers can test with errors.Is.
func classifyInsert(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return apperr.ErrAlreadyExists
	}
	return err
}
