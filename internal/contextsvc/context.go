// Package contextsvc assembles inherited context by walking the
// hierarchy Project → ContextType → Artifact → Document → Section.
// Each resolved level contributes its context file, if it has one.
package contextsvc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/markdown"
	"github.com/clyqra/anthra/internal/store"
)

// Query selects how deep to walk and what to narrow to. Project is
// required; each deeper level only applies when its parent is given.
type Query struct {
	Project      string `json:"project"`
	ContextType  string `json:"context_type,omitempty"`
	Artifact     string `json:"artifact,omitempty"`
	Document     string `json:"document,omitempty"`
	Section      string `json:"section,omitempty"`
	MaxAgeDays   *int   `json:"max_age_days,omitempty"`
	IncludeStale bool   `json:"include_stale,omitempty"`
}

// InheritedContext is the merged view for one query. Path accumulates
// one segment per resolved level plus an optional #section suffix.
type InheritedContext struct {
	ProjectContext   string         `json:"project_context,omitempty"`
	TypeContext      string         `json:"type_context,omitempty"`
	ArtifactContext  string         `json:"artifact_context,omitempty"`
	DocumentContent  string         `json:"document_content"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Path             string         `json:"path"`
	StalenessWarning string         `json:"staleness_warning,omitempty"`
}

// Assembler resolves context queries against the store.
type Assembler struct {
	store store.Store
	now   func() time.Time
}

// NewAssembler creates an Assembler. now may be nil for wall-clock time.
func NewAssembler(s store.Store, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{store: s, now: now}
}

// GetContext walks the hierarchy named by q. A missing project returns
// (nil, nil): there is nothing to show. A missing child under a
// resolved parent is a caller error and fails loudly with a message
// naming the offending identifier.
func (a *Assembler) GetContext(q Query) (*InheritedContext, error) {
	project, err := a.store.ProjectByName(q.Project)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	ctx := &InheritedContext{Path: q.Project}

	if pc, err := a.store.ProjectContext(project.ID); err != nil {
		return nil, err
	} else if pc != nil {
		ctx.ProjectContext = pc.Content
	}

	if q.ContextType == "" {
		return ctx, nil
	}

	contextType, err := a.store.ContextType(project.ID, q.ContextType)
	if err != nil {
		return nil, err
	}
	if contextType == nil {
		return nil, apperr.NotFound("Context type %q not found in project %q", q.ContextType, q.Project)
	}
	ctx.Path += "/" + q.ContextType

	if tc, err := a.store.ContextTypeContext(contextType.ID); err != nil {
		return nil, err
	} else if tc != nil {
		ctx.TypeContext = tc.Content
	}

	if q.Artifact == "" {
		return ctx, nil
	}

	artifact, err := a.store.Artifact(contextType.ID, q.Artifact)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, apperr.NotFound("Artifact %q not found in context type %q", q.Artifact, q.ContextType)
	}
	ctx.Path += "/" + q.Artifact

	if ac, err := a.store.ArtifactContext(artifact.ID); err != nil {
		return nil, err
	} else if ac != nil {
		ctx.ArtifactContext = ac.Content
	}

	if q.Document == "" {
		return ctx, nil
	}

	document, err := a.store.Document(artifact.ID, q.Document)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperr.NotFound("Document %q not found in artifact %q", q.Document, q.Artifact)
	}
	ctx.Path += "/" + q.Document

	// Malformed metadata JSON is ignored, never fatal.
	if document.Metadata != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(document.Metadata), &meta); err == nil {
			ctx.Metadata = meta
		}
	}

	if !q.IncludeStale && q.MaxAgeDays != nil {
		maxAge := *q.MaxAgeDays
		if maxAge == 0 {
			maxAge = 7
		}
		cutoff := a.now().AddDate(0, 0, -maxAge)
		if document.UpdatedAt.Before(cutoff) {
			daysOld := int(a.now().Sub(document.UpdatedAt).Hours() / 24)
			ctx.StalenessWarning = fmt.Sprintf(
				"⚠️ This document is %d days old. Consider updating it for more accurate context.", daysOld)
		}
	}

	content := document.Content
	if q.Section != "" {
		content = ExtractSection(document.Content, q.Section)
		ctx.Path += "#" + q.Section
	}
	ctx.DocumentContent = content

	return ctx, nil
}

// ExtractSection slices out the named section: from its header
// (inclusive, matched case-insensitively on exact header text at any
// level) through the line before the next header. Content preceding
// the first header rides along when the target is found. An unknown
// section name returns the content unchanged.
func ExtractSection(content, sectionName string) string {
	lines := markdown.Split(content)

	type span struct{ start, end int }
	sections := make(map[string]span)
	var order []string

	cur := ""
	curStart := 0
	for i, line := range lines {
		if _, name := markdown.Header(line); name != "" {
			if cur != "" {
				sections[cur] = span{curStart, i}
			}
			cur, curStart = name, i
			order = append(order, name)
		}
	}
	if cur != "" {
		sections[cur] = span{curStart, len(lines)}
	}

	target := ""
	for _, name := range order {
		if strings.EqualFold(name, sectionName) {
			target = name
			break
		}
	}
	if target == "" {
		return content
	}

	s := sections[target]
	if target == order[0] && s.start > 0 {
		// First section: frontmatter and intro lines ride along.
		return strings.Join(lines[:s.end], "\n")
	}
	return strings.Join(lines[s.start:s.end], "\n")
}

// FormatForAI flattens an InheritedContext into the markdown blob sent
// to a model: fixed block order, absent blocks omitted entirely.
func FormatForAI(ctx *InheritedContext) string {
	var parts []string

	if ctx.ProjectContext != "" {
		parts = append(parts, "# Project Context\n", ctx.ProjectContext, "\n")
	}
	if ctx.TypeContext != "" {
		parts = append(parts, "# Context Type Context\n", ctx.TypeContext, "\n")
	}
	if ctx.ArtifactContext != "" {
		parts = append(parts, "# Artifact Context\n", ctx.ArtifactContext, "\n")
	}
	if ctx.StalenessWarning != "" {
		parts = append(parts, "\n"+ctx.StalenessWarning+"\n\n")
	}

	parts = append(parts, "# Current Document\n", "Path: "+ctx.Path+"\n\n", ctx.DocumentContent)

	return strings.Join(parts, "\n")
}
