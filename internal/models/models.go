// Package models defines the domain types for Anthra.
package models

import "time"

// Artifact statuses.
const (
	StatusActive    = "active"
	StatusArchived  = "archived"
	StatusCompleted = "completed"
)

// Project is the root of the document hierarchy.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContextType groups artifacts under a project (e.g. "tech", "journal").
// Name is unique within its project.
type ContextType struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Artifact groups documents under a context type (e.g. "sprint-1").
// Name is unique within its context type.
type Artifact struct {
	ID            int64     `json:"id"`
	ContextTypeID int64     `json:"context_type_id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Document is a markdown file stored under an artifact.
// Filename is unique within its artifact. Metadata is a raw JSON blob.
type Document struct {
	ID         int64     `json:"id"`
	ArtifactID int64     `json:"artifact_id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ContextFile is a markdown blob attached to exactly one hierarchy
// level. Exactly one of ProjectID, ContextTypeID, ArtifactID is set;
// the store enforces this at creation time.
type ContextFile struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	ProjectID     *int64    `json:"project_id,omitempty"`
	ContextTypeID *int64    `json:"context_type_id,omitempty"`
	ArtifactID    *int64    `json:"artifact_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AIInteraction is an append-only audit record of one AI exchange.
type AIInteraction struct {
	ID                int64     `json:"id"`
	DocumentID        int64     `json:"document_id"`
	Section           string    `json:"section,omitempty"`
	ItemText          string    `json:"item_text"`
	AIModel           string    `json:"ai_model"`
	QuerySent         string    `json:"query_sent"`
	ResponseReceived  string    `json:"response_received"`
	RoutingConfidence *float64  `json:"routing_confidence,omitempty"`
	RoutingReason     string    `json:"routing_reason,omitempty"`
	UserOverride      bool      `json:"user_override"`
	Timestamp         time.Time `json:"timestamp"`
}

// RoutingPattern is one logged routing decision, used for offline
// learning. CorrectedModel is empty when the user accepted the
// suggestion.
type RoutingPattern struct {
	ID              int64     `json:"id"`
	ContentPattern  string    `json:"content_pattern"`
	SuggestedModel  string    `json:"suggested_model"`
	CorrectedModel  string    `json:"corrected_model,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// DocumentPath is the parsed form of the four-segment document address
// "project/context_type/artifact/filename".
type DocumentPath struct {
	Project     string `json:"project"`
	ContextType string `json:"context_type"`
	Artifact    string `json:"artifact"`
	Filename    string `json:"filename"`
}

// String reassembles the canonical path form.
func (p DocumentPath) String() string {
	return p.Project + "/" + p.ContextType + "/" + p.Artifact + "/" + p.Filename
}
