package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/models"
)

// CreateProject inserts a new project.
func (db *DB) CreateProject(name string) (*models.Project, error) {
	res, err := db.conn.Exec(`INSERT INTO projects (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("store: create project %q: %w", name, classifyInsert(err))
	}
	id, _ := res.LastInsertId()
	return db.projectByID(id)
}

// ProjectByName resolves a project by exact name, nil if absent.
func (db *DB) ProjectByName(name string) (*models.Project, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, created_at, updated_at FROM projects WHERE name = ?`, name)
	return scanProject(row)
}

// ListProjects returns all projects ordered by name.
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, created_at, updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) projectByID(id int64) (*models.Project, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, created_at, updated_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan project: %w", err)
	}
	return &p, nil
}

// CreateContextType inserts a context type under a project.
func (db *DB) CreateContextType(projectID int64, name string) (*models.ContextType, error) {
	res, err := db.conn.Exec(
		`INSERT INTO context_types (project_id, name) VALUES (?, ?)`, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("store: create context type %q: %w", name, classifyInsert(err))
	}
	id, _ := res.LastInsertId()
	row := db.conn.QueryRow(
		`SELECT id, project_id, name, created_at, updated_at FROM context_types WHERE id = ?`, id)
	return scanContextType(row)
}

// ContextType resolves a context type by name under a project, nil if absent.
func (db *DB) ContextType(projectID int64, name string) (*models.ContextType, error) {
	row := db.conn.QueryRow(
		`SELECT id, project_id, name, created_at, updated_at
		 FROM context_types WHERE project_id = ? AND name = ?`, projectID, name)
	return scanContextType(row)
}

// ListContextTypes returns the context types of a project ordered by name.
func (db *DB) ListContextTypes(projectID int64) ([]models.ContextType, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, name, created_at, updated_at
		 FROM context_types WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list context types: %w", err)
	}
	defer rows.Close()

	var out []models.ContextType
	for rows.Next() {
		var ct models.ContextType
		if err := rows.Scan(&ct.ID, &ct.ProjectID, &ct.Name, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func scanContextType(row *sql.Row) (*models.ContextType, error) {
	var ct models.ContextType
	err := row.Scan(&ct.ID, &ct.ProjectID, &ct.Name, &ct.CreatedAt, &ct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan context type: %w", err)
	}
	return &ct, nil
}

// CreateArtifact inserts an artifact and bumps the parent context
// type's timestamp.
func (db *DB) CreateArtifact(contextTypeID int64, name, status string) (*models.Artifact, error) {
	if status == "" {
		status = models.StatusActive
	}
	res, err := db.conn.Exec(
		`INSERT INTO artifacts (context_type_id, name, status) VALUES (?, ?, ?)`,
		contextTypeID, name, status)
	if err != nil {
		return nil, fmt.Errorf("store: create artifact %q: %w", name, classifyInsert(err))
	}
	id, _ := res.LastInsertId()

	_, _ = db.conn.Exec(
		`UPDATE context_types SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, contextTypeID)

	return db.artifactByID(id)
}

// Artifact resolves an artifact by name under a context type, nil if absent.
func (db *DB) Artifact(contextTypeID int64, name string) (*models.Artifact, error) {
	row := db.conn.QueryRow(
		`SELECT id, context_type_id, name, status, created_at, updated_at
		 FROM artifacts WHERE context_type_id = ? AND name = ?`, contextTypeID, name)
	return scanArtifact(row)
}

// ListArtifacts returns artifacts under a context type, optionally
// filtered by status, most recently updated first.
func (db *DB) ListArtifacts(contextTypeID int64, status string) ([]models.Artifact, error) {
	q := `SELECT id, context_type_id, name, status, created_at, updated_at
	      FROM artifacts WHERE context_type_id = ?`
	args := []any{contextTypeID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY updated_at DESC`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []models.Artifact
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ID, &a.ContextTypeID, &a.Name, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateArtifactStatus transitions an artifact's lifecycle status.
func (db *DB) UpdateArtifactStatus(id int64, status string) error {
	res, err := db.conn.Exec(
		`UPDATE artifacts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("store: update artifact status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: artifact %d not found", id)
	}
	return nil
}

func (db *DB) artifactByID(id int64) (*models.Artifact, error) {
	row := db.conn.QueryRow(
		`SELECT id, context_type_id, name, status, created_at, updated_at
		 FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

func scanArtifact(row *sql.Row) (*models.Artifact, error) {
	var a models.Artifact
	err := row.Scan(&a.ID, &a.ContextTypeID, &a.Name, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan artifact: %w", err)
	}
	return &a, nil
}

// CreateDocument inserts a document and bumps parent timestamps.
// metadata is a raw JSON string; empty means no metadata.
func (db *DB) CreateDocument(artifactID int64, filename, content, metadata string) (*models.Document, error) {
	var meta any
	if metadata != "" {
		meta = metadata
	}
	res, err := db.conn.Exec(
		`INSERT INTO documents (artifact_id, filename, content, metadata) VALUES (?, ?, ?, ?)`,
		artifactID, filename, content, meta)
	if err != nil {
		return nil, fmt.Errorf("store: create document %q: %w", filename, classifyInsert(err))
	}
	id, _ := res.LastInsertId()

	if err := db.bumpArtifact(artifactID); err != nil {
		return nil, err
	}
	return db.documentByID(id)
}

// Document resolves a document by filename under an artifact, nil if absent.
func (db *DB) Document(artifactID int64, filename string) (*models.Document, error) {
	row := db.conn.QueryRow(
		`SELECT id, artifact_id, filename, content, COALESCE(metadata, ''), created_at, updated_at
		 FROM documents WHERE artifact_id = ? AND filename = ?`, artifactID, filename)
	return scanDocument(row)
}

// ListDocuments returns the documents of an artifact, most recently
// updated first.
func (db *DB) ListDocuments(artifactID int64) ([]models.Document, error) {
	rows, err := db.conn.Query(
		`SELECT id, artifact_id, filename, content, COALESCE(metadata, ''), created_at, updated_at
		 FROM documents WHERE artifact_id = ? ORDER BY updated_at DESC`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ArtifactID, &d.Filename, &d.Content, &d.Metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDocument applies partial updates (nil fields untouched), bumps
// the updated_at timestamp and parent timestamps, and returns the
// updated row.
func (db *DB) UpdateDocument(artifactID int64, filename string, content, metadata *string) (*models.Document, error) {
	q := `UPDATE documents SET updated_at = CURRENT_TIMESTAMP`
	var args []any
	if content != nil {
		q += `, content = ?`
		args = append(args, *content)
	}
	if metadata != nil {
		q += `, metadata = ?`
		if *metadata == "" {
			args = append(args, nil)
		} else {
			args = append(args, *metadata)
		}
	}
	q += ` WHERE artifact_id = ? AND filename = ?`
	args = append(args, artifactID, filename)

	res, err := db.conn.Exec(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update document %q: %w", filename, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("store: document %q not found in artifact %d: %w", filename, artifactID, apperr.ErrNotFound)
	}

	if err := db.bumpArtifact(artifactID); err != nil {
		return nil, err
	}
	return db.Document(artifactID, filename)
}

// DeleteDocument removes a document and bumps parent timestamps.
func (db *DB) DeleteDocument(artifactID int64, filename string) error {
	res, err := db.conn.Exec(
		`DELETE FROM documents WHERE artifact_id = ? AND filename = ?`, artifactID, filename)
	if err != nil {
		return fmt.Errorf("store: delete document %q: %w", filename, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: document %q not found in artifact %d: %w", filename, artifactID, apperr.ErrNotFound)
	}
	return db.bumpArtifact(artifactID)
}

func (db *DB) documentByID(id int64) (*models.Document, error) {
	row := db.conn.QueryRow(
		`SELECT id, artifact_id, filename, content, COALESCE(metadata, ''), created_at, updated_at
		 FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.ArtifactID, &d.Filename, &d.Content, &d.Metadata, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan document: %w", err)
	}
	return &d, nil
}

// bumpArtifact refreshes the updated_at of an artifact and its parent
// context type after a child write.
func (db *DB) bumpArtifact(artifactID int64) error {
	_, err := db.conn.Exec(
		`UPDATE artifacts SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, artifactID)
	if err != nil {
		return fmt.Errorf("store: bump artifact: %w", err)
	}
	_, err = db.conn.Exec(`
		UPDATE context_types SET updated_at = CURRENT_TIMESTAMP
		WHERE id = (SELECT context_type_id FROM artifacts WHERE id = ?)`, artifactID)
	if err != nil {
		return fmt.Errorf("store: bump context type: %w", err)
	}
	return nil
}

// TouchDocument overrides a document's updated_at. Test hook for
// staleness scenarios; not part of the Store interface.
func (db *DB) TouchDocument(id int64, t time.Time) error {
	_, err := db.conn.Exec(`UPDATE documents SET updated_at = ? WHERE id = ?`, t, id)
	return err
}
