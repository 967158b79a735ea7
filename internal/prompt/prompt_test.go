package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	p, err := DefaultPersona()
	if err != nil {
		t.Fatalf("DefaultPersona err: %v", err)
	}
	return NewBuilder(p)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := newTestBuilder(t)

	for _, loc := range Locales() {
		first := b.Build(string(loc))
		for i := 0; i < 5; i++ {
			if got := b.Build(string(loc)); got != first {
				t.Fatalf("prompt for %s changed between calls", loc)
			}
		}

		// A second builder from the same persona must agree byte for byte.
		if got := newTestBuilder(t).Build(string(loc)); got != first {
			t.Fatalf("prompt for %s differs across builders", loc)
		}
	}
}

func TestBuildFallsBackToDefaultLocale(t *testing.T) {
	b := newTestBuilder(t)
	want := b.Build(string(DefaultLocale))

	for _, tag := range []string{"", "fr", "EN", "hi-IN", " mr", "zz", "日本語"} {
		if got := b.Build(tag); got != want {
			t.Errorf("locale %q: expected default prompt", tag)
		}
	}
}

func TestBuildLanguageDirective(t *testing.T) {
	b := newTestBuilder(t)

	tests := []struct {
		locale     string
		language   string
		devanagari bool
	}{
		{"en", "English", false},
		{"hi", "हिन्दी", true},
		{"mr", "मराठी", true},
	}

	for _, tc := range tests {
		t.Run(tc.locale, func(t *testing.T) {
			got := b.Build(tc.locale)

			if !strings.Contains(got, "You MUST respond in "+tc.language+" language") {
				t.Fatalf("missing language directive for %s", tc.locale)
			}
			if has := strings.Contains(got, "Devanagari script"); has != tc.devanagari {
				t.Fatalf("devanagari note present=%v, want %v", has, tc.devanagari)
			}
		})
	}
}

func TestBuildIncludesPersonaAndGuidelines(t *testing.T) {
	got := newTestBuilder(t).Build("en")

	for _, want := range []string{
		"You are Prathamesh Chougale",
		"first person",
		"Never reveal that you're an AI",
		"contact form",
		"concise",
		"Smart India Hackathon Winner",
		"Carbon Track",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParsePersonaRequiresName(t *testing.T) {
	if _, err := ParsePersona([]byte("title: Engineer\n")); err == nil {
		t.Fatal("expected error for persona without name")
	}
}

func TestParsePersonaKeepsListOrder(t *testing.T) {
	data := []byte(`
name: Test Owner
skills: [Go, Rust, Zig]
projects:
  - name: First
  - name: Second
`)
	p, err := ParsePersona(data)
	if err != nil {
		t.Fatalf("ParsePersona err: %v", err)
	}
	if strings.Join(p.Skills, ",") != "Go,Rust,Zig" {
		t.Fatalf("unexpected skills order %v", p.Skills)
	}
	if p.Projects[0].Name != "First" || p.Projects[1].Name != "Second" {
		t.Fatalf("unexpected projects order %+v", p.Projects)
	}
}

func TestLoadPersona(t *testing.T) {
	def, err := DefaultPersona()
	if err != nil {
		t.Fatalf("DefaultPersona err: %v", err)
	}
	got, err := LoadPersona("")
	if err != nil {
		t.Fatalf("LoadPersona(\"\") err: %v", err)
	}
	if got.Name != def.Name {
		t.Fatalf("empty path should load the compiled-in persona, got %q", got.Name)
	}

	path := filepath.Join(t.TempDir(), "persona.yaml")
	if err := os.WriteFile(path, []byte("name: File Owner\n"), 0o600); err != nil {
		t.Fatalf("write persona: %v", err)
	}
	got, err = LoadPersona(path)
	if err != nil {
		t.Fatalf("LoadPersona(file) err: %v", err)
	}
	if got.Name != "File Owner" {
		t.Fatalf("expected persona from file, got %q", got.Name)
	}

	if _, err := LoadPersona(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing persona file")
	}
}
