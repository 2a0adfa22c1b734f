package routing

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/clyqra/anthra/internal/models"
)

type fakePatternStore struct {
	created []models.RoutingPattern
}

func (f *fakePatternStore) CreateRoutingPattern(p models.RoutingPattern) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakePatternStore) RecentRoutingPatterns(limit int) ([]models.RoutingPattern, error) {
	if len(f.created) > limit {
		return f.created[:limit], nil
	}
	return f.created, nil
}

func TestRoute_CodeContent(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	d := e.Route("We hit a webpack bug and typescript error in the build", "")

	if d.Model != ModelCursor {
		t.Fatalf("model = %q, want cursor", d.Model)
	}
	if !strings.Contains(d.Reason, "code-related keywords") {
		t.Errorf("reason = %q", d.Reason)
	}
	if d.Confidence >= 0.6 && d.ShouldAskUser {
		t.Errorf("should_ask_user inconsistent with confidence %v", d.Confidence)
	}
	if d.ShouldAskUser != (d.Confidence < 0.6) {
		t.Errorf("should_ask_user = %v at confidence %v", d.ShouldAskUser, d.Confidence)
	}
}

func TestRoute_BusinessContent(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	d := e.Route("What pricing strategy fits the swedish market given competitor revenue?", "")

	if d.Model != ModelClaude {
		t.Fatalf("model = %q, want claude", d.Model)
	}
	if !strings.Contains(d.Reason, "business-related keywords") {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestRoute_PrivacyShortCircuit(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	// Code keywords present too; privacy must win regardless.
	d := e.Route("debug the password bug: gdpr consent data is leaking from the api", "")

	if d.Model != ModelLocal {
		t.Fatalf("model = %q, want local", d.Model)
	}
	if d.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", d.Confidence)
	}
	if d.ShouldAskUser {
		t.Error("privacy routing should never ask the user")
	}
	if !strings.Contains(d.Reason, "privacy-sensitive") {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestRoute_PrivacyInInheritedContext(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	d := e.Route("short question", "project handles gdpr consent and user data under data protection rules")
	if d.Model != ModelLocal {
		t.Errorf("model = %q, want local from inherited context", d.Model)
	}
}

func TestRoute_AmbiguousDefault(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	d := e.Route("hello there, how was your weekend?", "")

	if d.Model != ModelClaude {
		t.Fatalf("model = %q, want claude", d.Model)
	}
	if d.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", d.Confidence)
	}
	if !d.ShouldAskUser {
		t.Error("ambiguous routing must ask the user")
	}
	if !reflect.DeepEqual(d.Alternatives, []string{ModelCursor, ModelLocal}) {
		t.Errorf("alternatives = %v", d.Alternatives)
	}
}

func TestRoute_ExactTieFallsToDefault(t *testing.T) {
	lex := Lexicon{
		Code:     []string{"alpha", "beta"},
		Business: []string{"alpha", "beta"},
		Privacy:  []string{"zzz"},
	}
	e := NewEngine(lex, nil)
	d := e.Route("alpha beta", "")

	if d.Model != ModelClaude || d.Confidence != 0.5 || !d.ShouldAskUser {
		t.Errorf("tie should hit the ambiguous default, got %+v", d)
	}
}

func TestRoute_HighConfidenceDropsAlternatives(t *testing.T) {
	lex := Lexicon{
		Code:     []string{"alpha"},
		Business: []string{"q1", "q2", "q3", "q4"},
		Privacy:  []string{"zzz"},
	}
	e := NewEngine(lex, nil)
	d := e.Route("alpha", "")

	if d.Model != ModelCursor {
		t.Fatalf("model = %q", d.Model)
	}
	if d.Confidence != 0.95 {
		t.Errorf("confidence = %v, want capped 0.95", d.Confidence)
	}
	if d.Alternatives != nil {
		t.Errorf("alternatives = %v, want none at high confidence", d.Alternatives)
	}
	if d.ShouldAskUser {
		t.Error("high confidence should not ask the user")
	}
}

func TestRoute_Deterministic(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	const content = "fix the sql migration error in the docker deploy"
	first := e.Route(content, "backend context")
	for i := 0; i < 5; i++ {
		if got := e.Route(content, "backend context"); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestReload(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	if d := e.Route("quux", ""); d.Model != ModelClaude || d.Confidence != 0.5 {
		t.Fatalf("before reload: %+v", d)
	}

	e.Reload(Lexicon{
		Code:     []string{"quux"},
		Business: []string{"q1", "q2"},
		Privacy:  []string{"zzz"},
	})
	if d := e.Route("quux", ""); d.Model != ModelCursor {
		t.Errorf("after reload: %+v", d)
	}
}

func TestPatternKey(t *testing.T) {
	got := PatternKey("We hit a webpack bug and typescript error in the build")
	if got != "webpack typescript error build" {
		t.Errorf("key = %q", got)
	}

	long := strings.Repeat("longword ", 15)
	if n := len(strings.Fields(PatternKey(long))); n != 10 {
		t.Errorf("key words = %d, want capped at 10", n)
	}
}

func TestLogPattern(t *testing.T) {
	fs := &fakePatternStore{}
	e := NewEngine(DefaultLexicon(), fs)

	if err := e.LogPattern("Deploy broke the webpack build again", ModelCursor, "", 0.7); err != nil {
		t.Fatal(err)
	}
	if len(fs.created) != 1 {
		t.Fatalf("created = %d", len(fs.created))
	}
	p := fs.created[0]
	if p.ContentPattern != "deploy broke webpack build again" {
		t.Errorf("content_pattern = %q", p.ContentPattern)
	}
	if p.SuggestedModel != ModelCursor || p.ConfidenceScore != 0.7 {
		t.Errorf("pattern = %+v", p)
	}
}

func TestLogPattern_NoStore(t *testing.T) {
	e := NewEngine(DefaultLexicon(), nil)
	if err := e.LogPattern("x", ModelClaude, "", 0.5); err == nil {
		t.Error("expected error without a pattern store")
	}
}

func TestLearnFromHistory(t *testing.T) {
	fs := &fakePatternStore{}
	add := func(key, corrected string, n int) {
		for i := 0; i < n; i++ {
			fs.created = append(fs.created, models.RoutingPattern{
				ContentPattern: key,
				SuggestedModel: ModelClaude,
				CorrectedModel: corrected,
			})
		}
	}

	add("deploy webpack build", ModelCursor, 4) // consensus, enough volume
	add("pricing strategy", ModelCursor, 2)     // split below 60%
	add("pricing strategy", ModelLocal, 2)
	add("swedish market", ModelCursor, 3) // not enough overrides
	add("never corrected", "", 5)         // suggestions only

	e := NewEngine(DefaultLexicon(), fs)
	learned, err := e.LearnFromHistory()
	if err != nil {
		t.Fatal(err)
	}

	if learned["deploy webpack build"] != ModelCursor {
		t.Errorf("learned = %v, want cursor for deploy key", learned)
	}
	if _, ok := learned["pricing strategy"]; ok {
		t.Error("split overrides should not produce a mapping")
	}
	if _, ok := learned["swedish market"]; ok {
		t.Error("3 overrides is below the volume threshold")
	}
	if len(learned) != 1 {
		t.Errorf("learned = %v", learned)
	}
}

func TestLoadLexicon_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte("code:\n  - onlyword\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lex.Code) != 1 || lex.Code[0] != "onlyword" {
		t.Errorf("code = %v", lex.Code)
	}
	def := DefaultLexicon()
	if !reflect.DeepEqual(lex.Business, def.Business) {
		t.Error("business should fall back to defaults")
	}
	if !reflect.DeepEqual(lex.Privacy, def.Privacy) {
		t.Error("privacy should fall back to defaults")
	}
}

func TestLoadLexicon_MissingFile(t *testing.T) {
	if _, err := LoadLexicon(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
