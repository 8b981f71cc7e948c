package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"go.uber.org/zap"
)

var (
	ErrMessageTextEmpty = errors.New("message text is required")
	ErrMessageNotFound  = errors.New("message not found")
	ErrActionNotFound   = errors.New("action not found")
)

// MessageInput describes a dialog message to write into the graph. Author,
// theme and language are system identifiers; language defaults to lang_en.
type MessageInput struct {
	Text     string
	Author   string
	Theme    string
	Language string
}

// DialogService is the entry point used by the API: it records messages and
// requests replies to them.
type DialogService struct {
	store         domain.GraphStore
	keynodes      *keynodes.Keynodes
	actions       *ActionService
	messages      *MessageSearcher
	constructions *ConstructionsGenerator
	logger        *zap.Logger
}

func NewDialogService(s domain.GraphStore, k *keynodes.Keynodes, actions *ActionService, messages *MessageSearcher, constructions *ConstructionsGenerator, logger *zap.Logger) *DialogService {
	return &DialogService{
		store:         s,
		keynodes:      k,
		actions:       actions,
		messages:      messages,
		constructions: constructions,
		logger:        logger,
	}
}

// CreateMessage builds
//
//	concept_message -> message
//	message =nrel_authors=> author
//	message =nrel_message_theme=> theme
//
// plus the text translation of the message in the given language.
func (s *DialogService) CreateMessage(ctx context.Context, in MessageInput) (domain.Addr, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return domain.InvalidAddr, ErrMessageTextEmpty
	}

	message, err := s.store.CreateNode(ctx, domain.NodeConst)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("create message: %w", err)
	}
	if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, s.keynodes.ConceptMessage, message); err != nil {
		return domain.InvalidAddr, fmt.Errorf("classify message: %w", err)
	}

	if err := s.relate(ctx, message, s.keynodes.NrelAuthors, in.Author); err != nil {
		return domain.InvalidAddr, fmt.Errorf("set author: %w", err)
	}
	if err := s.relate(ctx, message, s.keynodes.NrelMessageTheme, in.Theme); err != nil {
		return domain.InvalidAddr, fmt.Errorf("set theme: %w", err)
	}

	lang, err := s.language(ctx, in.Language)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("resolve language: %w", err)
	}
	if _, err := s.constructions.GenerateTextTranslation(ctx, message, lang, in.Text); err != nil {
		return domain.InvalidAddr, err
	}

	s.logger.Debug("message created", zap.String("message", message.String()))
	return message, nil
}

func (s *DialogService) relate(ctx context.Context, message, relation domain.Addr, idtf string) error {
	idtf = strings.TrimSpace(idtf)
	if idtf == "" {
		return nil
	}
	target, err := s.store.ResolveIdentifier(ctx, idtf, domain.NodeConst)
	if err != nil {
		return err
	}
	edge, err := s.store.CreateEdge(ctx, domain.EdgeDCommonConst, message, target)
	if err != nil {
		return err
	}
	_, err = s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, relation, edge)
	return err
}

func (s *DialogService) language(ctx context.Context, idtf string) (domain.Addr, error) {
	idtf = strings.TrimSpace(idtf)
	if idtf == "" {
		return s.keynodes.LangEn, nil
	}
	lang, err := s.store.ResolveIdentifier(ctx, idtf, domain.NodeConst)
	if err != nil {
		return domain.InvalidAddr, err
	}
	isLang, err := s.store.EdgeExists(ctx, s.keynodes.ConceptLanguage, lang, domain.EdgeAccessConstPosPerm)
	if err != nil {
		return domain.InvalidAddr, err
	}
	if !isLang {
		if _, err := s.store.CreateEdge(ctx, domain.EdgeAccessConstPosPerm, s.keynodes.ConceptLanguage, lang); err != nil {
			return domain.InvalidAddr, err
		}
	}
	return lang, nil
}

// RequestReply initiates a standard message reply action for message with a
// fresh response slot. The reply is produced asynchronously.
func (s *DialogService) RequestReply(ctx context.Context, message domain.Addr) (domain.Addr, error) {
	isMessage, err := s.store.EdgeExists(ctx, s.keynodes.ConceptMessage, message, domain.EdgeAccessConstPosPerm)
	if err != nil {
		return domain.InvalidAddr, err
	}
	if !isMessage {
		return domain.InvalidAddr, ErrMessageNotFound
	}

	slot, err := s.store.CreateNode(ctx, domain.NodeConst)
	if err != nil {
		return domain.InvalidAddr, fmt.Errorf("create response slot: %w", err)
	}
	action, err := s.actions.InitAgent(ctx, s.keynodes.ActionStandardMessageReply, message, slot)
	if err != nil {
		return domain.InvalidAddr, err
	}
	s.logger.Info("reply requested",
		zap.String("message", message.String()),
		zap.String("action", action.String()))
	return action, nil
}

// ActionStatus reports the state of action and, once it has succeeded, the
// reply it produced.
func (s *DialogService) ActionStatus(ctx context.Context, action domain.Addr) (*domain.ActionStatus, error) {
	if _, err := s.store.Element(ctx, action); err != nil {
		return nil, ErrActionNotFound
	}
	status := &domain.ActionStatus{
		Action: action,
		State:  s.actions.State(ctx, action),
	}
	if status.State != domain.ActionStateSucceeded {
		return status, nil
	}

	result, err := s.actions.Result(ctx, action)
	if err != nil {
		return nil, fmt.Errorf("read action result: %w", err)
	}
	if result.IsValid() {
		status.Result = &result
		status.ReplyText = s.messages.Text(ctx, result)
	}
	return status, nil
}
