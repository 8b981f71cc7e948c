package service

import (
	"testing"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
)

func TestMessageSearcher_AuthorAndTheme(t *testing.T) {
	g := newTestGraph(t)
	m := NewMessageSearcher(g.store, g.k, g.logger)
	message := g.message("Hello")
	author, theme := g.named("bob"), g.named("weather")
	g.relation(message, author, g.k.NrelAuthors)
	g.relation(message, theme, g.k.NrelMessageTheme)

	if got := m.Author(g.ctx, message); got != author {
		t.Errorf("Author = %s, want %s", got, author)
	}
	if got := m.Theme(g.ctx, message); got != theme {
		t.Errorf("Theme = %s, want %s", got, theme)
	}

	bare := g.message("")
	if m.Author(g.ctx, bare).IsValid() || m.Theme(g.ctx, bare).IsValid() {
		t.Error("expected no author or theme on a bare message")
	}
}

func TestMessageSearcher_Text(t *testing.T) {
	g := newTestGraph(t)
	m := NewMessageSearcher(g.store, g.k, g.logger)

	if got := m.Text(g.ctx, g.message("Hello")); got != "Hello" {
		t.Errorf("Text = %q, want Hello", got)
	}
	if got := m.Text(g.ctx, g.named("alice")); got != "alice" {
		t.Errorf("Text of named node = %q, want its identifier", got)
	}
	if got := m.Text(g.ctx, g.node()); got != "" {
		t.Errorf("Text of anonymous node = %q, want empty", got)
	}
	if got := m.Text(g.ctx, domain.InvalidAddr); got != "" {
		t.Errorf("Text of invalid addr = %q, want empty", got)
	}
}

func TestLanguageSearcher(t *testing.T) {
	g := newTestGraph(t)
	m := NewMessageSearcher(g.store, g.k, g.logger)
	l := NewLanguageSearcher(g.store, g.k, m)
	gen := NewConstructionsGenerator(g.store, g.k)

	langRu := g.named("lang_ru")
	g.access(g.k.ConceptLanguage, langRu)
	ru := g.message("")
	if _, err := gen.GenerateTextTranslation(g.ctx, ru, langRu, "Privet"); err != nil {
		t.Fatalf("GenerateTextTranslation: %v", err)
	}

	notALanguage := g.node()
	odd := g.message("")
	if _, err := gen.GenerateTextTranslation(g.ctx, odd, notALanguage, "???"); err != nil {
		t.Fatalf("GenerateTextTranslation: %v", err)
	}

	tests := []struct {
		name    string
		message domain.Addr
		want    domain.Addr
	}{
		{"explicit language", ru, langRu},
		{"english text", g.message("Hi"), g.k.LangEn},
		{"no text", g.message(""), g.k.LangEn},
		{"source is not a language", odd, g.k.LangEn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Language(g.ctx, tt.message); got != tt.want {
				t.Errorf("Language = %s, want %s", got, tt.want)
			}
		})
	}
}
