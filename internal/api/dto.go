package api

import (
	"github.com/clyqra/anthra/internal/respond"
)

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreateDocumentRequest is the body of POST /api/documents. When
// Template is set the named template supplies content and metadata.
type CreateDocumentRequest struct {
	Path     string         `json:"path"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Template string         `json:"template,omitempty"`
}

// UpdateDocumentRequest is the body of PUT /api/documents/*. Nil
// fields keep the stored value.
type UpdateDocumentRequest struct {
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ReplyRequest is the body of POST /api/documents/ai/reply.
type ReplyRequest struct {
	ArtifactID  int64                `json:"artifact_id"`
	Filename    string               `json:"filename"`
	ItemText    string               `json:"item_text"`
	AIModel     string               `json:"ai_model"`
	Response    string               `json:"response"`
	Section     string               `json:"section,omitempty"`
	RoutingInfo *respond.RoutingInfo `json:"routing_info,omitempty"`
}

// RouteRequest is the body of POST /api/documents/ai/route.
// CorrectedModel, when set, records a user override for offline
// learning instead of influencing the decision.
type RouteRequest struct {
	Content        string `json:"content"`
	Context        string `json:"context,omitempty"`
	CorrectedModel string `json:"corrected_model,omitempty"`
}

// RedactRequest is the body of POST /api/documents/ai/redact.
type RedactRequest struct {
	Content    string `json:"content"`
	Model      string `json:"model,omitempty"`
	SkipEmails bool   `json:"skip_emails,omitempty"`
	SkipNames  bool   `json:"skip_names,omitempty"`
}

// RedactResponse reports the scrubbed content and the reversal map.
type RedactResponse struct {
	Content  string            `json:"content"`
	Mappings map[string]string `json:"mappings"`
	Redacted bool              `json:"redacted"`
}

// ContextFileRequest is the body of POST /api/context-files. Exactly
// one of the three parent IDs must be set.
type ContextFileRequest struct {
	Content       string `json:"content"`
	ProjectID     *int64 `json:"project_id,omitempty"`
	ContextTypeID *int64 `json:"context_type_id,omitempty"`
	ArtifactID    *int64 `json:"artifact_id,omitempty"`
}
