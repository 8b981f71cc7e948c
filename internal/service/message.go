package service

import (
	"context"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"go.uber.org/zap"
)

// MessageSearcher reads the author, theme and text of a dialog message.
type MessageSearcher struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
	logger   *zap.Logger
}

func NewMessageSearcher(s domain.GraphStore, k *keynodes.Keynodes, logger *zap.Logger) *MessageSearcher {
	return &MessageSearcher{store: s, keynodes: k, logger: logger}
}

func (m *MessageSearcher) Author(ctx context.Context, message domain.Addr) domain.Addr {
	return m.relation(ctx, message, m.keynodes.NrelAuthors, "author")
}

func (m *MessageSearcher) Theme(ctx context.Context, message domain.Addr) domain.Addr {
	return m.relation(ctx, message, m.keynodes.NrelMessageTheme, "theme")
}

func (m *MessageSearcher) relation(ctx context.Context, message, relation domain.Addr, name string) domain.Addr {
	addr, err := graph.RelationTarget(ctx, m.store, message, relation)
	if err != nil {
		m.logger.Warn("failed to read message "+name,
			zap.String("message", message.String()),
			zap.Error(err))
		return domain.InvalidAddr
	}
	return addr
}

// TextLink returns the link holding the text translation of element, if any.
func (m *MessageSearcher) TextLink(ctx context.Context, element domain.Addr) domain.Addr {
	translation, err := graph.RelationSource(ctx, m.store, element, m.keynodes.NrelScTextTranslation)
	if err != nil || !translation.IsValid() {
		return domain.InvalidAddr
	}
	members, err := graph.Members(ctx, m.store, translation)
	if err != nil {
		return domain.InvalidAddr
	}
	for _, addr := range members {
		el, err := m.store.Element(ctx, addr)
		if err == nil && el.Type.IsLink() {
			return addr
		}
	}
	return domain.InvalidAddr
}

// Text returns the text translation of element, or its system identifier
// when it has none.
func (m *MessageSearcher) Text(ctx context.Context, element domain.Addr) string {
	if !element.IsValid() {
		return ""
	}
	if link := m.TextLink(ctx, element); link.IsValid() {
		if el, err := m.store.Element(ctx, link); err == nil {
			return el.Content
		}
	}
	idtf, _ := m.store.Identifier(ctx, element)
	return idtf
}

// LanguageSearcher finds the language a message is written in.
type LanguageSearcher struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
	messages *MessageSearcher
}

func NewLanguageSearcher(s domain.GraphStore, k *keynodes.Keynodes, messages *MessageSearcher) *LanguageSearcher {
	return &LanguageSearcher{store: s, keynodes: k, messages: messages}
}

// Language returns the language class of the message text, falling back to
// lang_en when the text has none.
func (l *LanguageSearcher) Language(ctx context.Context, message domain.Addr) domain.Addr {
	link := l.messages.TextLink(ctx, message)
	if !link.IsValid() {
		return l.keynodes.LangEn
	}
	edges, err := l.store.InEdges(ctx, link)
	if err != nil {
		return l.keynodes.LangEn
	}
	for _, e := range edges {
		if !domain.EdgeAccessVarPos.Matches(e.Type) {
			continue
		}
		isLang, err := graph.IsMember(ctx, l.store, l.keynodes.ConceptLanguage, e.Source)
		if err == nil && isLang {
			return e.Source
		}
	}
	return l.keynodes.LangEn
}

var (
	_ domain.MessageResolver  = (*MessageSearcher)(nil)
	_ domain.LanguageResolver = (*LanguageSearcher)(nil)
)
