// Package docs provides path-addressed document operations on top of
// the store: "project/context-type/artifact/filename" strings resolved
// against the hierarchy, with missing context types and artifacts
// created on the fly.
package docs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/models"
	"github.com/clyqra/anthra/internal/parser"
	"github.com/clyqra/anthra/internal/store"
)

// Manager resolves path strings against the document hierarchy.
type Manager struct {
	store store.Store
	now   func() time.Time
}

// NewManager creates a Manager. now may be nil for wall-clock time.
func NewManager(s store.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: s, now: now}
}

// Loaded is a document together with its resolved path and decoded
// metadata.
type Loaded struct {
	Document *models.Document `json:"document"`
	Metadata map[string]any   `json:"metadata"`
	Path     string           `json:"path"`
}

// ParsePath splits a "project/context-type/artifact/filename" string.
// Anything other than exactly four segments is rejected.
func ParsePath(path string) (models.DocumentPath, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		return models.DocumentPath{}, apperr.Invalid(
			"Invalid path format. Expected: \"project/context-type/artifact/filename\", got: %q", path)
	}
	return models.DocumentPath{
		Project:     parts[0],
		ContextType: parts[1],
		Artifact:    parts[2],
		Filename:    parts[3],
	}, nil
}

// CreateFromPath creates a document at the given path. The project
// must already exist; the context type and artifact are created if
// missing. Creating under a nonexistent project is a typo far more
// often than an intent, so that level never auto-creates.
func (m *Manager) CreateFromPath(path, content string, metadata map[string]any) (*Loaded, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	project, err := m.store.ProjectByName(parsed.Project)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperr.NotFound("Project %q not found", parsed.Project)
	}

	contextType, err := m.store.ContextType(project.ID, parsed.ContextType)
	if err != nil {
		return nil, err
	}
	if contextType == nil {
		contextType, err = m.store.CreateContextType(project.ID, parsed.ContextType)
		if err != nil {
			return nil, err
		}
	}

	artifact, err := m.store.Artifact(contextType.ID, parsed.Artifact)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		artifact, err = m.store.CreateArtifact(contextType.ID, parsed.Artifact, models.StatusActive)
		if err != nil {
			return nil, err
		}
	}

	raw, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	document, err := m.store.CreateDocument(artifact.ID, parsed.Filename, content, raw)
	if err != nil {
		return nil, err
	}

	return &Loaded{Document: document, Metadata: metadata, Path: parsed.String()}, nil
}

// LoadByPath resolves every level of the path, failing loudly at the
// first missing one.
func (m *Manager) LoadByPath(path string) (*Loaded, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	artifact, err := m.resolveArtifact(parsed)
	if err != nil {
		return nil, err
	}

	document, err := m.store.Document(artifact.ID, parsed.Filename)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperr.NotFound("Document %q not found in artifact %q", parsed.Filename, parsed.Artifact)
	}

	metadata := map[string]any{}
	if document.Metadata != "" {
		// Invalid JSON, ignore.
		_ = json.Unmarshal([]byte(document.Metadata), &metadata)
	}

	return &Loaded{Document: document, Metadata: metadata, Path: parsed.String()}, nil
}

// UpdateByPath applies a partial update. A nil field keeps the stored
// value.
func (m *Manager) UpdateByPath(path string, content *string, metadata map[string]any) (*models.Document, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	artifact, err := m.resolveArtifact(parsed)
	if err != nil {
		return nil, err
	}

	existing, err := m.store.Document(artifact.ID, parsed.Filename)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("Document %q not found in artifact %q", parsed.Filename, parsed.Artifact)
	}

	var rawMetadata *string
	if metadata != nil {
		raw, err := encodeMetadata(metadata)
		if err != nil {
			return nil, err
		}
		rawMetadata = &raw
	}

	return m.store.UpdateDocument(artifact.ID, parsed.Filename, content, rawMetadata)
}

// DeleteByPath removes the document at the given path.
func (m *Manager) DeleteByPath(path string) error {
	parsed, err := ParsePath(path)
	if err != nil {
		return err
	}
	artifact, err := m.resolveArtifact(parsed)
	if err != nil {
		return err
	}
	return m.store.DeleteDocument(artifact.ID, parsed.Filename)
}

func (m *Manager) resolveArtifact(parsed models.DocumentPath) (*models.Artifact, error) {
	project, err := m.store.ProjectByName(parsed.Project)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperr.NotFound("Project %q not found", parsed.Project)
	}

	contextType, err := m.store.ContextType(project.ID, parsed.ContextType)
	if err != nil {
		return nil, err
	}
	if contextType == nil {
		return nil, apperr.NotFound("Context type %q not found in project %q", parsed.ContextType, parsed.Project)
	}

	artifact, err := m.store.Artifact(contextType.ID, parsed.Artifact)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, apperr.NotFound("Artifact %q not found in context type %q", parsed.Artifact, parsed.ContextType)
	}
	return artifact, nil
}

// MergeMetadata overlays frontmatter keys on stored metadata;
// frontmatter wins on conflicts.
func MergeMetadata(frontmatter, stored map[string]any) map[string]any {
	merged := make(map[string]any, len(stored)+len(frontmatter))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range frontmatter {
		merged[k] = v
	}
	return merged
}

// CreateFromTemplate instantiates a named template at the given path.
// The template's frontmatter becomes the document metadata and its
// body becomes the content.
func (m *Manager) CreateFromTemplate(path, templateName string) (*Loaded, error) {
	template, ok := Templates[templateName]
	if !ok {
		return nil, apperr.NotFound("Template %q not found", templateName)
	}

	content := template.Render(m.now())
	frontmatter, body := parser.ParseFrontmatter(content)
	return m.CreateFromPath(path, body, frontmatter)
}

func encodeMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", apperr.Invalid("invalid metadata: %v", err)
	}
	return string(raw), nil
}
