package prompts

import (
	"strings"
	"testing"
	"testing/fstest"

	"knowthepast/pkg/model"
)

func TestManager_Render(t *testing.T) {
	fsys := fstest.MapFS{
		"common/macros.tmpl": {Data: []byte(`{{define "hello"}}Hello {{.Name}}{{end}}`)},
		"story/script.tmpl":  {Data: []byte(`{{template "hello" .}}! How are you?`)},
	}

	m, err := NewManager(fsys)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	out, err := m.Render("story/script.tmpl", struct{ Name string }{Name: "World"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	expected := "Hello World! How are you?"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
	if m.Has("common/macros.tmpl") {
		t.Error("common templates should not be registered by file name")
	}
}

func TestManager_Category(t *testing.T) {
	fsys := fstest.MapFS{
		"category/ancient.tmpl": {Data: []byte(`Ruins near {{.Name}}`)},
		"category/default.tmpl": {Data: []byte(`Anything near {{.Name}}`)},
		"main.tmpl":             {Data: []byte("Category: {{.Cat}}\n{{category .Cat .}}")},
	}

	m, err := NewManager(fsys)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tests := []struct {
		name     string
		cat      string
		expected string
	}{
		{"Known Category", "ancient", "Category: ancient\nRuins near Test"},
		{"Case Insensitive", "ANCIENT", "Category: ANCIENT\nRuins near Test"},
		{"Unknown Category Falls Back", "volcanoes", "Category: volcanoes\nAnything near Test"},
		{"Empty Category Falls Back", "", "Category: \nAnything near Test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := struct {
				Cat  string
				Name string
			}{Cat: tt.cat, Name: "Test"}
			out, err := m.Render("main.tmpl", data)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if out != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, out)
			}
		})
	}
}

func TestManager_CategoryWithoutDefault(t *testing.T) {
	m, err := NewManager(fstest.MapFS{
		"main.tmpl": {Data: []byte("[{{category . .}}]")},
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	out, err := m.Render("main.tmpl", "x")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "[]" {
		t.Errorf("missing category templates should render empty, got %q", out)
	}
}

func TestManager_ParseError(t *testing.T) {
	_, err := NewManager(fstest.MapFS{
		"broken.tmpl": {Data: []byte("{{if}}")},
	})
	if err == nil || !strings.Contains(err.Error(), "broken.tmpl") {
		t.Errorf("expected parse error naming the file, got %v", err)
	}
}

func TestMaybeFunc(t *testing.T) {
	for i := 0; i < 10; i++ {
		if maybeFunc(0, "content") != "" {
			t.Error("0% probability should never include content")
		}
		if maybeFunc(100, "content") != "content" {
			t.Error("100% probability should always include content")
		}
	}

	included := 0
	for i := 0; i < 100; i++ {
		if maybeFunc(50, "content") == "content" {
			included++
		}
	}
	if included < 20 || included > 80 {
		t.Errorf("50%% probability should include ~50 times, got %d", included)
	}
}

func TestPickFunc(t *testing.T) {
	if got := pickFunc("only option"); got != "only option" {
		t.Errorf("Single option should return that option, got %q", got)
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[pickFunc("A|||B|||C")] = true
	}
	if len(seen) < 2 {
		t.Error("pickFunc should produce varying results")
	}

	got := pickFunc("  spaced  |||  option  ")
	if got != "spaced" && got != "option" {
		t.Errorf("Options should be trimmed, got %q", got)
	}
}

func TestListFunc(t *testing.T) {
	if got := listFunc([]string{"Petra", "Stonehenge"}); got != "Petra, Stonehenge" {
		t.Errorf("listFunc = %q", got)
	}
	if got := listFunc(nil); got != "" {
		t.Errorf("listFunc(nil) = %q", got)
	}
}

// TestBuiltinTemplates verifies that the shipped templates parse and render with real data.
func TestBuiltinTemplates(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Failed to load built-in templates: %v", err)
	}

	for _, name := range []string{"discovery.tmpl", "story.tmpl", "category/default.tmpl"} {
		if !m.Has(name) {
			t.Errorf("built-in template %s missing", name)
		}
	}

	place := model.Place{
		Name:             "Ani",
		Description:      "A ruined medieval city.",
		Latitude:         40.5072,
		Longitude:        43.5725,
		Country:          "Turkey",
		HistoricalPeriod: "10th century",
		Details:          []model.PlaceDetail{{Label: "Founded", Value: "5th century", Icon: model.IconCalendar}},
	}

	discovery, err := m.Render("discovery.tmpl", map[string]any{
		"Category": model.Category{Key: "ancient", Name: "Ancient"},
		"Avoid":    []string{"Petra", "Colosseum"},
		"MinZoom":  model.MinZoom,
		"MaxZoom":  model.MaxZoom,
		"Icons":    []string{"calendar", "globe"},
	})
	if err != nil {
		t.Fatalf("render discovery: %v", err)
	}
	for _, want := range []string{"Ancient", "Petra, Colosseum", "ruins", "calendar, globe"} {
		if !strings.Contains(discovery, want) {
			t.Errorf("discovery prompt missing %q", want)
		}
	}

	story, err := m.Render("story.tmpl", map[string]any{
		"Place":      place,
		"Category":   model.Category{Key: "unknown", Name: "Unknown"},
		"SlideTypes": []string{"overview", "then_vs_now"},
		"MaxSlides":  model.MaxSlides,
	})
	if err != nil {
		t.Fatalf("render story: %v", err)
	}
	for _, want := range []string{"Name: Ani", "(Turkey)", "Period: 10th century", "Founded: 5th century", "overview, then_vs_now", "rich history"} {
		if !strings.Contains(story, want) {
			t.Errorf("story prompt missing %q:\n%s", want, story)
		}
	}
}

func TestLoad_FallsBackToBuiltin(t *testing.T) {
	m, err := Load(t.TempDir() + "/missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Has("discovery.tmpl") {
		t.Error("expected built-in templates when dir is missing")
	}
}
