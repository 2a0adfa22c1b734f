package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/models"
)

// UpsertContextFile creates or replaces the context file attached to
// one hierarchy level. Exactly one of ProjectID, ContextTypeID,
// ArtifactID must be set; anything else is a caller error.
func (db *DB) UpsertContextFile(f models.ContextFile) (*models.ContextFile, error) {
	keys := 0
	for _, id := range []*int64{f.ProjectID, f.ContextTypeID, f.ArtifactID} {
		if id != nil {
			keys++
		}
	}
	if keys != 1 {
		return nil, apperr.Invalid("ContextFile must have exactly one of: project_id, context_type_id, or artifact_id")
	}

	var col string
	var parent int64
	switch {
	case f.ProjectID != nil:
		col, parent = "project_id", *f.ProjectID
	case f.ContextTypeID != nil:
		col, parent = "context_type_id", *f.ContextTypeID
	default:
		col, parent = "artifact_id", *f.ArtifactID
	}

	var id int64
	err := db.conn.QueryRow(
		fmt.Sprintf(`SELECT id FROM context_files WHERE %s = ?`, col), parent).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := db.conn.Exec(
			fmt.Sprintf(`INSERT INTO context_files (content, %s) VALUES (?, ?)`, col),
			f.Content, parent)
		if err != nil {
			return nil, fmt.Errorf("store: create context file: %w", err)
		}
		id, _ = res.LastInsertId()
	case err != nil:
		return nil, fmt.Errorf("store: find context file: %w", err)
	default:
		if _, err := db.conn.Exec(
			`UPDATE context_files SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			f.Content, id); err != nil {
			return nil, fmt.Errorf("store: update context file: %w", err)
		}
	}

	return db.contextFileByID(id)
}

// ProjectContext returns the project-level context file, nil if none.
func (db *DB) ProjectContext(projectID int64) (*models.ContextFile, error) {
	return db.contextFileBy("project_id", projectID)
}

// ContextTypeContext returns the context-type-level context file, nil if none.
func (db *DB) ContextTypeContext(contextTypeID int64) (*models.ContextFile, error) {
	return db.contextFileBy("context_type_id", contextTypeID)
}

// ArtifactContext returns the artifact-level context file, nil if none.
func (db *DB) ArtifactContext(artifactID int64) (*models.ContextFile, error) {
	return db.contextFileBy("artifact_id", artifactID)
}

func (db *DB) contextFileBy(col string, parent int64) (*models.ContextFile, error) {
	row := db.conn.QueryRow(fmt.Sprintf(
		`SELECT id, content, project_id, context_type_id, artifact_id, created_at, updated_at
		 FROM context_files WHERE %s = ?`, col), parent)
	return scanContextFile(row)
}

func (db *DB) contextFileByID(id int64) (*models.ContextFile, error) {
	row := db.conn.QueryRow(
		`SELECT id, content, project_id, context_type_id, artifact_id, created_at, updated_at
		 FROM context_files WHERE id = ?`, id)
	return scanContextFile(row)
}

func scanContextFile(row *sql.Row) (*models.ContextFile, error) {
	var f models.ContextFile
	err := row.Scan(&f.ID, &f.Content, &f.ProjectID, &f.ContextTypeID, &f.ArtifactID, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan context file: %w", err)
	}
	return &f, nil
}
