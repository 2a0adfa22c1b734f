package store

import "fmt"

// SearchResult is one search hit across a project's documents.
type SearchResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
}

// SearchDocuments performs a LIKE-based search over every document in
// a project, joined through the hierarchy so results carry full paths.
func (db *DB) SearchDocuments(projectID int64, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT p.name || '/' || ct.name || '/' || a.name || '/' || d.filename,
		       d.filename,
		       substr(d.content, 1, 200)
		FROM documents d
		JOIN artifacts a ON a.id = d.artifact_id
		JOIN context_types ct ON ct.id = a.context_type_id
		JOIN projects p ON p.id = ct.project_id
		WHERE p.id = ? AND (d.filename LIKE ? OR d.content LIKE ?)
		ORDER BY d.updated_at DESC
		LIMIT ?`, projectID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search documents: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Filename, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
