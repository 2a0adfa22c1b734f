package store

import (
	"fmt"

	"github.com/clyqra/anthra/internal/models"
)

// CreateAIInteraction appends one audit record. Interactions are never
// updated or deleted.
func (db *DB) CreateAIInteraction(i models.AIInteraction) (*models.AIInteraction, error) {
	res, err := db.conn.Exec(`
		INSERT INTO ai_interactions
			(document_id, section, item_text, ai_model, query_sent,
			 response_received, routing_confidence, routing_reason, user_override)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.DocumentID, nullIfEmpty(i.Section), i.ItemText, i.AIModel, i.QuerySent,
		i.ResponseReceived, i.RoutingConfidence, nullIfEmpty(i.RoutingReason), i.UserOverride)
	if err != nil {
		return nil, fmt.Errorf("store: create ai interaction: %w", err)
	}
	id, _ := res.LastInsertId()

	row := db.conn.QueryRow(`
		SELECT id, document_id, COALESCE(section, ''), item_text, ai_model, query_sent,
		       response_received, routing_confidence, COALESCE(routing_reason, ''),
		       user_override, timestamp
		FROM ai_interactions WHERE id = ?`, id)

	var out models.AIInteraction
	if err := row.Scan(&out.ID, &out.DocumentID, &out.Section, &out.ItemText, &out.AIModel,
		&out.QuerySent, &out.ResponseReceived, &out.RoutingConfidence, &out.RoutingReason,
		&out.UserOverride, &out.Timestamp); err != nil {
		return nil, fmt.Errorf("store: scan ai interaction: %w", err)
	}
	return &out, nil
}

// DocumentInteractions returns a document's interactions, newest first.
func (db *DB) DocumentInteractions(documentID int64) ([]models.AIInteraction, error) {
	rows, err := db.conn.Query(`
		SELECT id, document_id, COALESCE(section, ''), item_text, ai_model, query_sent,
		       response_received, routing_confidence, COALESCE(routing_reason, ''),
		       user_override, timestamp
		FROM ai_interactions WHERE document_id = ? ORDER BY timestamp DESC, id DESC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("store: document interactions: %w", err)
	}
	defer rows.Close()

	var out []models.AIInteraction
	for rows.Next() {
		var i models.AIInteraction
		if err := rows.Scan(&i.ID, &i.DocumentID, &i.Section, &i.ItemText, &i.AIModel,
			&i.QuerySent, &i.ResponseReceived, &i.RoutingConfidence, &i.RoutingReason,
			&i.UserOverride, &i.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// CreateRoutingPattern appends one routing pattern log entry.
func (db *DB) CreateRoutingPattern(p models.RoutingPattern) error {
	_, err := db.conn.Exec(`
		INSERT INTO routing_patterns (content_pattern, suggested_model, corrected_model, confidence_score)
		VALUES (?, ?, ?, ?)`,
		p.ContentPattern, p.SuggestedModel, nullIfEmpty(p.CorrectedModel), p.ConfidenceScore)
	if err != nil {
		return fmt.Errorf("store: create routing pattern: %w", err)
	}
	return nil
}

// RecentRoutingPatterns returns the newest logged patterns, up to limit.
func (db *DB) RecentRoutingPatterns(limit int) ([]models.RoutingPattern, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT id, content_pattern, suggested_model, COALESCE(corrected_model, ''),
		       confidence_score, timestamp
		FROM routing_patterns ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent routing patterns: %w", err)
	}
	defer rows.Close()

	var out []models.RoutingPattern
	for rows.Next() {
		var p models.RoutingPattern
		if err := rows.Scan(&p.ID, &p.ContentPattern, &p.SuggestedModel, &p.CorrectedModel,
			&p.ConfidenceScore, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
