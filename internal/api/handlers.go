package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/checksum"
	"github.com/clyqra/anthra/internal/contextsvc"
	"github.com/clyqra/anthra/internal/docs"
	"github.com/clyqra/anthra/internal/models"
	"github.com/clyqra/anthra/internal/redact"
	"github.com/clyqra/anthra/internal/respond"
	"github.com/clyqra/anthra/internal/routing"
	"github.com/clyqra/anthra/internal/sse"
	"github.com/clyqra/anthra/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	store     store.Store
	assembler *contextsvc.Assembler
	writer    *respond.Writer
	engine    *routing.Engine
	redactor  *redact.Redactor
	docs      *docs.Manager
	broker    *sse.Broker // optional
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(s store.Store, assembler *contextsvc.Assembler, writer *respond.Writer,
	engine *routing.Engine, redactor *redact.Redactor, manager *docs.Manager, broker *sse.Broker) *Handler {
	return &Handler{
		store:     s,
		assembler: assembler,
		writer:    writer,
		engine:    engine,
		redactor:  redactor,
		docs:      manager,
		broker:    broker,
	}
}

// docPath extracts the document path from the URL (everything after
// /api/documents/). Supports encoded slashes from OpenAPI clients.
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps classified errors to status codes, keeping the
// message for caller errors and hiding it for internal ones.
func writeError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(logMsg, slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// GetContext handles GET /api/documents/context.
//
//	@Summary		Assemble inherited AI context for a document
//	@Tags			context
//	@Produce		json
//	@Param			project			query		string	true	"Project name"
//	@Param			context_type	query		string	false	"Context type name"
//	@Param			artifact		query		string	false	"Artifact name"
//	@Param			document		query		string	false	"Document filename"
//	@Param			section			query		string	false	"Section to narrow to"
//	@Param			max_age_days	query		int		false	"Staleness threshold"
//	@Param			include_stale	query		bool	false	"Suppress staleness check"
//	@Success		200				{object}	contextsvc.InheritedContext
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/context [get]
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	if qp.Get("project") == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'project' is required"))
		return
	}

	q := contextsvc.Query{
		Project:     qp.Get("project"),
		ContextType: qp.Get("context_type"),
		Artifact:    qp.Get("artifact"),
		Document:    qp.Get("document"),
		Section:     qp.Get("section"),
	}
	if v := qp.Get("max_age_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("max_age_days must be an integer"))
			return
		}
		q.MaxAgeDays = &n
	}
	if v := qp.Get("include_stale"); v != "" {
		q.IncludeStale, _ = strconv.ParseBool(v)
	}

	ctx, err := h.assembler.GetContext(q)
	if err != nil {
		writeError(w, err, "get context failed")
		return
	}
	if ctx == nil {
		// Unknown project: nothing to show, no message either.
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

// Reply handles POST /api/documents/ai/reply.
//
//	@Summary		Write an AI response into a document
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReplyRequest	true	"Reply to insert"
//	@Success		200		{object}	respond.Result
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/ai/reply [post]
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Filename == "" || req.ItemText == "" || req.AIModel == "" || req.Response == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename, item_text, ai_model and response are required"))
		return
	}

	result, err := h.writer.WriteResponse(respond.Input{
		ArtifactID:  req.ArtifactID,
		Filename:    req.Filename,
		ItemText:    req.ItemText,
		AIModel:     req.AIModel,
		Response:    req.Response,
		Section:     req.Section,
		RoutingInfo: req.RoutingInfo,
	})
	if err != nil {
		writeError(w, err, "write reply failed")
		return
	}

	if h.broker != nil {
		h.broker.PublishAIReply(req.Filename, req.AIModel, result.InsertedAtLine)
	}
	writeJSON(w, http.StatusOK, result)
}

// Route handles POST /api/documents/ai/route.
//
//	@Summary		Pick an AI model for a piece of content
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RouteRequest	true	"Content to route"
//	@Success		200		{object}	routing.Decision
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/ai/route [post]
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	decision := h.engine.Route(req.Content, req.Context)
	if err := h.engine.LogPattern(req.Content, decision.Model, req.CorrectedModel, decision.Confidence); err != nil {
		slog.Warn("log routing pattern failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, decision)
}

// Redact handles POST /api/documents/ai/redact.
//
//	@Summary		Scrub PII before content leaves the machine
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RedactRequest	true	"Content to redact"
//	@Success		200		{object}	RedactResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/ai/redact [post]
func (h *Handler) Redact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req RedactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if req.Model != "" && !redact.ForModel(req.Model) {
		writeJSON(w, http.StatusOK, RedactResponse{
			Content:  req.Content,
			Mappings: map[string]string{},
		})
		return
	}

	redacted, mappings := h.redactor.RedactPII(req.Content, redact.Options{
		SkipEmails: req.SkipEmails,
		SkipNames:  req.SkipNames,
	})
	writeJSON(w, http.StatusOK, RedactResponse{
		Content:  redacted,
		Mappings: mappings,
		Redacted: true,
	})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a document by path, from content or a template
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	docs.Loaded
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	var (
		loaded *docs.Loaded
		err    error
	)
	if req.Template != "" {
		loaded, err = h.docs.CreateFromTemplate(req.Path, req.Template)
	} else {
		loaded, err = h.docs.CreateFromPath(req.Path, req.Content, req.Metadata)
	}
	if err != nil {
		writeError(w, err, "create document failed")
		return
	}

	if h.broker != nil {
		h.broker.PublishDocumentEvent("created", loaded.Path)
	}
	writeJSON(w, http.StatusCreated, loaded)
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Load a document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	docs.Loaded
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	loaded, err := h.docs.LoadByPath(path)
	if err != nil {
		writeError(w, err, "get document failed")
		return
	}
	w.Header().Set("ETag", `"`+checksum.Sum([]byte(loaded.Document.Content))+`"`)
	writeJSON(w, http.StatusOK, loaded)
}

// UpdateDocument handles PUT /api/documents/*.
//
//	@Summary		Update a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Document path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocumentRequest	true	"Updated fields"
//	@Success		200			{object}	models.Document
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil && req.Metadata == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content or metadata is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	if ifMatch != "" {
		loaded, err := h.docs.LoadByPath(path)
		if err != nil {
			writeError(w, err, "update document failed")
			return
		}
		if checksum.Sum([]byte(loaded.Document.Content)) != ifMatch {
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
			return
		}
	}

	document, err := h.docs.UpdateByPath(path, req.Content, req.Metadata)
	if err != nil {
		writeError(w, err, "update document failed")
		return
	}

	if h.broker != nil {
		h.broker.PublishDocumentEvent("updated", path)
	}
	writeJSON(w, http.StatusOK, document)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.docs.DeleteByPath(path); err != nil {
		writeError(w, err, "delete document failed")
		return
	}
	if h.broker != nil {
		h.broker.PublishDocumentEvent("deleted", path)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Interactions handles GET /api/interactions.
//
//	@Summary		List AI interactions for a document
//	@Tags			ai
//	@Produce		json
//	@Param			path	query		string	true	"Document path"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/interactions [get]
func (h *Handler) Interactions(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	loaded, err := h.docs.LoadByPath(path)
	if err != nil {
		writeError(w, err, "list interactions failed")
		return
	}
	items, err := h.store.DocumentInteractions(loaded.Document.ID)
	if err != nil {
		writeError(w, err, "list interactions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interactions": items,
	})
}

// Search handles GET /api/search.
//
//	@Summary		Substring search across a project's documents
//	@Tags			search
//	@Produce		json
//	@Param			project	query		string	true	"Project name"
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	projectName := r.URL.Query().Get("project")
	if projectName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'project' is required"))
		return
	}
	project, err := h.store.ProjectByName(projectName)
	if err != nil {
		writeError(w, err, "search failed")
		return
	}
	if project == nil {
		writeJSON(w, http.StatusNotFound, errorBody("Project \""+projectName+"\" not found"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.store.SearchDocuments(project.ID, q, limit)
	if err != nil {
		writeError(w, err, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	project, err := h.store.CreateProject(req.Name)
	if err != nil {
		writeError(w, err, "create project failed")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects()
	if err != nil {
		writeError(w, err, "list projects failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
	})
}

// UpsertContextFile handles POST /api/context-files.
//
//	@Summary		Create or replace a context file for one hierarchy level
//	@Tags			context
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ContextFileRequest	true	"Context file"
//	@Success		200		{object}	models.ContextFile
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/context-files [post]
func (h *Handler) UpsertContextFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ContextFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	file, err := h.store.UpsertContextFile(models.ContextFile{
		Content:       req.Content,
		ProjectID:     req.ProjectID,
		ContextTypeID: req.ContextTypeID,
		ArtifactID:    req.ArtifactID,
	})
	if err != nil {
		writeError(w, err, "upsert context file failed")
		return
	}
	writeJSON(w, http.StatusOK, file)
}
