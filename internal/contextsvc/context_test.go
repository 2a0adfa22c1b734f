package contextsvc

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clyqra/anthra/internal/apperr"
	"github.com/clyqra/anthra/internal/models"
	"github.com/clyqra/anthra/internal/store"
	"github.com/clyqra/anthra/internal/testutil"
)

// seed builds project/journal/sprint-1 with one document and a context
// file on every level.
func seed(t *testing.T, s store.Store) *models.Document {
	t.Helper()

	project, err := s.CreateProject("clyqra")
	if err != nil {
		t.Fatal(err)
	}
	ct, err := s.CreateContextType(project.ID, "journal")
	if err != nil {
		t.Fatal(err)
	}
	art, err := s.CreateArtifact(ct.ID, "sprint-1", models.StatusActive)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := s.CreateDocument(art.ID, "standup.md",
		"intro line\n\n## Blockers\n\n- waiting on keys\n\n## Tasks\n\n- ship it\n",
		`{"status":"draft"}`)
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range []models.ContextFile{
		{Content: "project-wide context", ProjectID: &project.ID},
		{Content: "journal conventions", ContextTypeID: &ct.ID},
		{Content: "sprint goals", ArtifactID: &art.ID},
	} {
		if _, err := s.UpsertContextFile(f); err != nil {
			t.Fatal(err)
		}
	}
	return doc
}

func TestGetContext_MissingProjectIsNil(t *testing.T) {
	s := testutil.TestDB(t)
	a := NewAssembler(s, nil)

	ctx, err := a.GetContext(Query{Project: "ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if ctx != nil {
		t.Errorf("ctx = %+v, want nil", ctx)
	}
}

func TestGetContext_MissingChildrenFailLoudly(t *testing.T) {
	s := testutil.TestDB(t)
	seed(t, s)
	a := NewAssembler(s, nil)

	cases := []struct {
		q    Query
		want string
	}{
		{Query{Project: "clyqra", ContextType: "nope"},
			`Context type "nope" not found in project "clyqra"`},
		{Query{Project: "clyqra", ContextType: "journal", Artifact: "nope"},
			`Artifact "nope" not found in context type "journal"`},
		{Query{Project: "clyqra", ContextType: "journal", Artifact: "sprint-1", Document: "nope.md"},
			`Document "nope.md" not found in artifact "sprint-1"`},
	}
	for _, tc := range cases {
		_, err := a.GetContext(tc.q)
		if err == nil || err.Error() != tc.want {
			t.Errorf("GetContext(%+v) err = %v, want %q", tc.q, err, tc.want)
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("err %v should match ErrNotFound", err)
		}
	}
}

func TestGetContext_InheritancePerLevel(t *testing.T) {
	s := testutil.TestDB(t)
	seed(t, s)
	a := NewAssembler(s, nil)

	ctx, err := a.GetContext(Query{Project: "clyqra"})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.ProjectContext != "project-wide context" || ctx.TypeContext != "" {
		t.Errorf("project level: %+v", ctx)
	}
	if ctx.Path != "clyqra" {
		t.Errorf("path = %q", ctx.Path)
	}

	ctx, err = a.GetContext(Query{Project: "clyqra", ContextType: "journal"})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.TypeContext != "journal conventions" || ctx.ArtifactContext != "" {
		t.Errorf("type level: %+v", ctx)
	}
	if ctx.Path != "clyqra/journal" {
		t.Errorf("path = %q", ctx.Path)
	}

	ctx, err = a.GetContext(Query{
		Project: "clyqra", ContextType: "journal", Artifact: "sprint-1", Document: "standup.md",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.ProjectContext == "" || ctx.TypeContext == "" || ctx.ArtifactContext == "" {
		t.Errorf("document level misses inherited context: %+v", ctx)
	}
	if !strings.Contains(ctx.DocumentContent, "waiting on keys") {
		t.Errorf("document_content = %q", ctx.DocumentContent)
	}
	if ctx.Metadata["status"] != "draft" {
		t.Errorf("metadata = %v", ctx.Metadata)
	}
	if ctx.Path != "clyqra/journal/sprint-1/standup.md" {
		t.Errorf("path = %q", ctx.Path)
	}
}

func TestGetContext_MalformedMetadataIgnored(t *testing.T) {
	s := testutil.TestDB(t)
	doc := seed(t, s)
	if _, err := s.UpdateDocument(doc.ArtifactID, doc.Filename, nil, strptr("{not json")); err != nil {
		t.Fatal(err)
	}

	a := NewAssembler(s, nil)
	ctx, err := a.GetContext(Query{
		Project: "clyqra", ContextType: "journal", Artifact: "sprint-1", Document: "standup.md",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Metadata != nil {
		t.Errorf("metadata = %v, want nil for malformed JSON", ctx.Metadata)
	}
}

func TestGetContext_SectionNarrowing(t *testing.T) {
	s := testutil.TestDB(t)
	seed(t, s)
	a := NewAssembler(s, nil)

	ctx, err := a.GetContext(Query{
		Project: "clyqra", ContextType: "journal", Artifact: "sprint-1",
		Document: "standup.md", Section: "Blockers",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx.DocumentContent, "waiting on keys") {
		t.Errorf("section content = %q", ctx.DocumentContent)
	}
	if strings.Contains(ctx.DocumentContent, "ship it") {
		t.Errorf("section leaked neighbours: %q", ctx.DocumentContent)
	}
	if ctx.Path != "clyqra/journal/sprint-1/standup.md#Blockers" {
		t.Errorf("path = %q", ctx.Path)
	}
}

func TestGetContext_StalenessWarning(t *testing.T) {
	s := testutil.TestDB(t)
	seed(t, s)

	// Fix the clock ten days past the document's creation.
	now := time.Now().Add(10*24*time.Hour + time.Hour)
	a := NewAssembler(s, func() time.Time { return now })

	maxAge := 3
	ctx, err := a.GetContext(Query{
		Project: "clyqra", ContextType: "journal", Artifact: "sprint-1",
		Document: "standup.md", MaxAgeDays: &maxAge,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx.StalenessWarning, "10 days old") {
		t.Errorf("staleness_warning = %q", ctx.StalenessWarning)
	}

	// include_stale suppresses the warning entirely.
	ctx, err = a.GetContext(Query{
		Project: "clyqra", ContextType: "journal", Artifact: "sprint-1",
		Document: "standup.md", MaxAgeDays: &maxAge, IncludeStale: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.StalenessWarning != "" {
		t.Errorf("staleness_warning = %q, want none with include_stale", ctx.StalenessWarning)
	}
}

func TestGetContext_ZeroMaxAgeMeansWeek(t *testing.T) {
	s := testutil.TestDB(t)
	seed(t, s)

	now := time.Now().Add(5*24*time.Hour + time.Hour)
	a := NewAssembler(s, func() time.Time { return now })

	maxAge := 0
	ctx, err := a.GetContext(Query{
		Project: "clyqra", ContextType: "journal", Artifact: "sprint-1",
		Document: "standup.md", MaxAgeDays: &maxAge,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.StalenessWarning != "" {
		t.Errorf("5 days is inside the 7-day fallback, got %q", ctx.StalenessWarning)
	}
}

func TestExtractSection(t *testing.T) {
	content := "## One\n\n- a\n\n## Two\n\n- b\n\n## One\n\nshadowed\n"

	got := ExtractSection(content, "two")
	if !strings.Contains(got, "- b") || strings.Contains(got, "- a") {
		t.Errorf("case-insensitive extract = %q", got)
	}

	// Duplicate headers: the last span wins for the first name in order.
	got = ExtractSection(content, "One")
	if !strings.Contains(got, "shadowed") {
		t.Errorf("duplicate header extract = %q", got)
	}

	if got := ExtractSection(content, "Missing"); got != content {
		t.Errorf("unknown section should return content unchanged")
	}
}

func TestExtractSection_FirstSectionKeepsIntro(t *testing.T) {
	content := "---\nstatus: draft\n---\n\n## Blockers\n\n- x\n\n## Tasks\n\n- y\n"

	got := ExtractSection(content, "Blockers")
	if !strings.Contains(got, "status: draft") {
		t.Errorf("frontmatter should ride along with the first section: %q", got)
	}
	if strings.Contains(got, "- y") {
		t.Errorf("next section leaked: %q", got)
	}

	got = ExtractSection(content, "Tasks")
	if strings.Contains(got, "status: draft") {
		t.Errorf("intro should not ride along with later sections: %q", got)
	}
}

func TestExtractSection_Identity(t *testing.T) {
	content := "## Only\n\n- a\n- b\n"
	if got := ExtractSection(content, "Only"); got != content {
		t.Errorf("single-section extract changed content:\nin:  %q\nout: %q", content, got)
	}
}

func TestFormatForAI_BlockOrder(t *testing.T) {
	ctx := &InheritedContext{
		ProjectContext:  "P",
		TypeContext:     "T",
		ArtifactContext: "A",
		DocumentContent: "body",
		Path:            "clyqra/journal/sprint-1/standup.md",
	}

	out := FormatForAI(ctx)
	order := []string{
		"# Project Context", "P",
		"# Context Type Context", "T",
		"# Artifact Context", "A",
		"# Current Document", "Path: clyqra/journal/sprint-1/standup.md", "body",
	}
	pos := -1
	for _, want := range order {
		i := strings.Index(out, want)
		if i < 0 || i < pos {
			t.Fatalf("block %q missing or out of order in %q", want, out)
		}
		pos = i
	}
}

func TestFormatForAI_OmitsEmptyBlocks(t *testing.T) {
	out := FormatForAI(&InheritedContext{DocumentContent: "body", Path: "p"})
	if strings.Contains(out, "# Project Context") || strings.Contains(out, "# Artifact Context") {
		t.Errorf("empty blocks should be omitted: %q", out)
	}
	if !strings.Contains(out, "# Current Document") {
		t.Errorf("document block missing: %q", out)
	}
}

func strptr(s string) *string { return &s }
