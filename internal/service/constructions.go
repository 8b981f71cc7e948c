package service

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
)

// ConstructionsGenerator writes message text into the graph as
//
//	translation =nrel_sc_text_translation=> message
//	translation -> link
//	lang -> link
type ConstructionsGenerator struct {
	store    domain.GraphStore
	keynodes *keynodes.Keynodes
}

func NewConstructionsGenerator(s domain.GraphStore, k *keynodes.Keynodes) *ConstructionsGenerator {
	return &ConstructionsGenerator{store: s, keynodes: k}
}

func (g *ConstructionsGenerator) GenerateTextTranslation(ctx context.Context, message, lang domain.Addr, text string) (domain.Addr, error) {
	link, err := g.store.CreateLink(ctx, text)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("create text link: %w", err)
	}
	if lang.IsValid() {
		if _, err := g.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, lang, link); err != nil {
			return domain.InvalidAddr, fmt.Errorf("set text language: %w", err)
		}
	}
	if err := g.GenerateTextTranslationForLink(ctx, message, link); err != nil {
		return domain.InvalidAddr, err
	}
	return link, nil
}

func (g *ConstructionsGenerator) GenerateTextTranslationForLink(ctx context.Context, message, link domain.Addr) error {
	translation, err := g.store.CreateNode(ctx, domain.NodeConst)
	if err != nil {
		return fmt.Errorf("create translation node: %w", err)
	}
	if _, err := g.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, translation, link); err != nil {
		return fmt.Errorf("add text link: %w", err)
	}
	edge, err := g.store.CreateEdge(ctx, domain.EdgeDCommonConst, translation, message)
	if err != nil {
		return fmt.Errorf("link translation: %w", err)
	}
	if _, err := g.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, g.keynodes.NrelScTextTranslation, edge); err != nil {
		return fmt.Errorf("tag translation: %w", err)
	}
	return nil
}
